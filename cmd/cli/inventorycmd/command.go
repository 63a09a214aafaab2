package inventorycmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/inventory"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	commandUseConstant                 = "inventory"
	commandShortDescriptionConstant    = "Show or edit the persisted inventory"
	commandLongDescriptionConstant     = "inventory prints the repositories recorded by the last sync with their keep and ignore flags. --ignore and --unignore change a repository's ignore flag; an unignored repository is reconsidered by the next sync."
	inventoryFlagNameConstant          = "inventory"
	inventoryFlagUsageConstant         = "Path to the persisted inventory file"
	ignoreFlagNameConstant             = "ignore"
	ignoreFlagUsageConstant            = "Mark a repository as ignored (repeatable)"
	unignoreFlagNameConstant           = "unignore"
	unignoreFlagUsageConstant          = "Clear the ignore flag of a repository (repeatable)"
	inventoryLoadErrorTemplate         = "unable to load inventory: %w"
	inventorySaveErrorTemplate         = "unable to save inventory: %w"
	inventoryEditErrorTemplate         = "unable to update inventory: %w"
	conflictingEditTemplate            = "repository %q cannot be both ignored and unignored"
	headerTemplate                     = "account: %s\nrepositories: %d (kept %d, ignored %d)\n"
	repositoryLineTemplate             = "%s%s\n"
	flagSeparator                      = ", "
	flagPrefix                         = " ["
	flagSuffix                         = "]"
	flagPrivate                        = "private"
	flagFork                           = "fork"
	flagArchived                       = "archived"
	flagKeep                           = "keep"
	flagIgnored                        = "ignored"
	flagIgnoredReasonTemplate          = "ignored: %s"
	unknownAccountConstant             = "(none)"
	logMessageInventoryUpdatedConstant = "Inventory updated"
	logFieldInventoryConstant          = "inventory"
	logFieldIgnoredConstant            = "ignored"
	logFieldUnignoredConstant          = "unignored"
)

// ErrInventoryMissing indicates no inventory file exists at the configured path.
var ErrInventoryMissing = errors.New("inventory not found")

// CommandConfiguration captures persistent settings for the inventory command.
type CommandConfiguration struct {
	Inventory string `mapstructure:"inventory"`
}

// DefaultCommandConfiguration returns baseline configuration values for the inventory command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Inventory: inventory.DefaultInventoryFileName}
}

// Sanitize trims whitespace and applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Inventory = strings.TrimSpace(configuration.Inventory)
	if len(sanitized.Inventory) == 0 {
		sanitized.Inventory = DefaultCommandConfiguration().Inventory
	}
	return sanitized
}

// CommandBuilder assembles the inventory command.
type CommandBuilder struct {
	LoggerProvider        dependencies.LoggerProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the inventory command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(inventoryFlagNameConstant, "", inventoryFlagUsageConstant)
	command.Flags().StringArray(ignoreFlagNameConstant, nil, ignoreFlagUsageConstant)
	command.Flags().StringArray(unignoreFlagNameConstant, nil, unignoreFlagUsageConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if command.Flags().Changed(inventoryFlagNameConstant) {
		configuration.Inventory, _ = command.Flags().GetString(inventoryFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	inventoryPath, resolveError := pathutils.NewResolver().Resolve(inventoryFlagNameConstant, configuration.Inventory)
	if resolveError != nil {
		return resolveError
	}

	store := inventory.NewStore()
	persisted, found, loadError := store.Load(inventoryPath)
	if loadError != nil {
		return fmt.Errorf(inventoryLoadErrorTemplate, loadError)
	}
	if !found {
		return fmt.Errorf(inventoryLoadErrorTemplate, fmt.Errorf("%w: %s", ErrInventoryMissing, inventoryPath))
	}

	ignoreNames, _ := command.Flags().GetStringArray(ignoreFlagNameConstant)
	unignoreNames, _ := command.Flags().GetStringArray(unignoreFlagNameConstant)
	if len(ignoreNames) > 0 || len(unignoreNames) > 0 {
		updated, editError := applyEdits(persisted, ignoreNames, unignoreNames)
		if editError != nil {
			return fmt.Errorf(inventoryEditErrorTemplate, editError)
		}
		if saveError := store.Save(inventoryPath, updated); saveError != nil {
			return fmt.Errorf(inventorySaveErrorTemplate, saveError)
		}
		dependencies.ResolveLogger(builder.LoggerProvider).Info(logMessageInventoryUpdatedConstant,
			zap.String(logFieldInventoryConstant, inventoryPath),
			zap.Strings(logFieldIgnoredConstant, ignoreNames),
			zap.Strings(logFieldUnignoredConstant, unignoreNames),
		)
		persisted = updated
	}

	return renderInventory(command.OutOrStdout(), persisted)
}

func applyEdits(persisted inventory.Inventory, ignoreNames []string, unignoreNames []string) (inventory.Inventory, error) {
	ignoring := make(map[string]struct{}, len(ignoreNames))
	for _, name := range ignoreNames {
		ignoring[strings.TrimSpace(name)] = struct{}{}
	}
	for _, name := range unignoreNames {
		if _, conflict := ignoring[strings.TrimSpace(name)]; conflict {
			return persisted, fmt.Errorf(conflictingEditTemplate, strings.TrimSpace(name))
		}
	}

	updated := persisted
	var editError error
	for _, name := range ignoreNames {
		if updated, editError = updated.Ignore(strings.TrimSpace(name)); editError != nil {
			return persisted, editError
		}
	}
	for _, name := range unignoreNames {
		if updated, editError = updated.Unignore(strings.TrimSpace(name)); editError != nil {
			return persisted, editError
		}
	}
	return updated, nil
}

func renderInventory(output io.Writer, persisted inventory.Inventory) error {
	account := persisted.Username
	if len(strings.TrimSpace(account)) == 0 {
		account = unknownAccountConstant
	}

	names := make([]string, 0, len(persisted.Repos))
	keptCount := 0
	ignoredCount := 0
	for name, record := range persisted.Repos {
		names = append(names, name)
		if record.Keep {
			keptCount++
		}
		if record.Ignore {
			ignoredCount++
		}
	}
	sort.Strings(names)

	if _, writeError := fmt.Fprintf(output, headerTemplate, account, len(names), keptCount, ignoredCount); writeError != nil {
		return writeError
	}
	for _, name := range names {
		if _, writeError := fmt.Fprintf(output, repositoryLineTemplate, name, describeFlags(persisted.Repos[name])); writeError != nil {
			return writeError
		}
	}
	return nil
}

func describeFlags(record inventory.RepoRecord) string {
	var flags []string
	if record.Status.Private {
		flags = append(flags, flagPrivate)
	}
	if record.Status.Fork {
		flags = append(flags, flagFork)
	}
	if record.Status.Archived {
		flags = append(flags, flagArchived)
	}
	if record.Keep {
		flags = append(flags, flagKeep)
	}
	if record.Ignore {
		if len(record.IgnoreReason) > 0 {
			flags = append(flags, fmt.Sprintf(flagIgnoredReasonTemplate, record.IgnoreReason))
		} else {
			flags = append(flags, flagIgnored)
		}
	}
	if len(flags) == 0 {
		return ""
	}
	return flagPrefix + strings.Join(flags, flagSeparator) + flagSuffix
}
