package mirrorcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/mirror"
	"github.com/temirov/reposync/internal/report"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
	pathutils "github.com/temirov/reposync/internal/utils/path"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	commandUseConstant                 = "mirror"
	commandShortDescriptionConstant    = "Mirror inventory repositories to a secondary git host"
	commandLongDescriptionConstant     = "mirror creates every non-ignored inventory repository on the configured provider when it is missing and pushes the local clone with git push --mirror."
	targetFlagNameConstant             = "target"
	targetFlagUsageConstant            = "Directory holding the local clones"
	inventoryFlagNameConstant          = "inventory"
	inventoryFlagUsageConstant         = "Path to the persisted inventory file"
	providerFlagNameConstant           = "provider"
	providerFlagDescriptionConstant    = "Mirror destination"
	tokenFlagNameConstant              = "mirror-token"
	tokenFlagUsageConstant             = "API token for the mirror provider"
	ownerFlagNameConstant              = "mirror-owner"
	ownerFlagUsageConstant             = "Account owning the mirrored repositories (defaults to the inventory username)"
	urlFlagNameConstant                = "mirror-url"
	urlFlagUsageConstant               = "API base URL of the mirror provider (required for gitea)"
	visibilityFlagNameConstant         = "visibility"
	visibilityFlagDescriptionConstant  = "Visibility of created repositories"
	reportFlagNameConstant             = "report"
	reportFlagUsageConstant            = "Write a YAML run report to this path"
	inventoryLoadErrorTemplateConstant = "unable to load inventory: %w"
	providerErrorTemplateConstant      = "unable to configure mirror provider: %w"
	pusherErrorTemplateConstant        = "unable to configure mirror: %w"
	pushErrorTemplateConstant          = "mirror aborted: %w"
	reportRenderErrorTemplateConstant  = "unable to render report: %w"
	reportWriteErrorTemplateConstant   = "unable to write report: %w"
	inventoryMissingTemplateConstant   = "%w: %s (run sync first)"
	targetPathLabelConstant            = "target"
	inventoryPathLabelConstant         = "inventory"
	reportPathLabelConstant            = "report"
	logMessageMirrorStartedConstant    = "Mirror pass started"
	logFieldProviderConstant           = "provider"
	logFieldOwnerConstant              = "owner"
	logFieldTargetConstant             = "target"
	logFieldRepositoryCountConstant    = "repositories"
)

// ErrInventoryMissing indicates the mirror command found no inventory to mirror.
var ErrInventoryMissing = errors.New("inventory not found")

// CommandBuilder assembles the mirror command.
type CommandBuilder struct {
	LoggerProvider        dependencies.LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	GitExecutor           workspace.GitExecutor
	// ProviderFactory overrides mirror.NewProvider.
	ProviderFactory func(logger *zap.Logger, options mirror.ProviderOptions) (mirror.Provider, error)
	Clock           func() time.Time
}

// Build constructs the mirror command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(targetFlagNameConstant, "", targetFlagUsageConstant)
	command.Flags().String(inventoryFlagNameConstant, "", inventoryFlagUsageConstant)
	command.Flags().String(providerFlagNameConstant, "", flagutils.ChoiceUsage(providerFlagDescriptionConstant, string(defaults.Provider), mirror.ProviderChoices()))
	command.Flags().String(tokenFlagNameConstant, "", tokenFlagUsageConstant)
	command.Flags().String(ownerFlagNameConstant, "", ownerFlagUsageConstant)
	command.Flags().String(urlFlagNameConstant, "", urlFlagUsageConstant)
	command.Flags().String(visibilityFlagNameConstant, "", flagutils.ChoiceUsage(visibilityFlagDescriptionConstant, string(defaults.Visibility), mirror.VisibilityChoices()))
	command.Flags().String(reportFlagNameConstant, "", reportFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	options, optionsError := builder.resolveOptions(command)
	if optionsError != nil {
		return optionsError
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}
	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	runIdentifier, hasRunIdentifier := utils.NewCommandContextAccessor().RunIdentifier(executionContext)
	if !hasRunIdentifier {
		runIdentifier = utils.NewRunIdentifier()
		logger = utils.WithRunIdentifier(logger, runIdentifier)
	}
	startedAt := builder.now()

	persisted, found, loadError := inventory.NewStore().Load(options.Inventory)
	if loadError != nil {
		return fmt.Errorf(inventoryLoadErrorTemplateConstant, loadError)
	}
	if !found {
		return fmt.Errorf(inventoryLoadErrorTemplateConstant, fmt.Errorf(inventoryMissingTemplateConstant, ErrInventoryMissing, options.Inventory))
	}

	owner := options.Owner
	if len(owner) == 0 {
		owner = persisted.Username
	}
	provider, providerError := builder.providerFactory()(logger, mirror.ProviderOptions{
		Kind:    options.Provider,
		BaseURL: options.URL,
		Owner:   owner,
		Token:   options.Token,
	})
	if providerError != nil {
		return fmt.Errorf(providerErrorTemplateConstant, providerError)
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return fmt.Errorf(pusherErrorTemplateConstant, executorError)
	}
	localWorkspace, workspaceError := workspace.NewOSWorkspace(workspace.Dependencies{GitExecutor: gitExecutor, Logger: logger})
	if workspaceError != nil {
		return fmt.Errorf(pusherErrorTemplateConstant, workspaceError)
	}
	pusher, pusherError := mirror.NewPusher(mirror.Dependencies{
		Provider:    provider,
		GitExecutor: gitExecutor,
		Workspace:   localWorkspace,
		Logger:      logger,
	}, mirror.Options{TargetRoot: options.Target, Visibility: options.Visibility})
	if pusherError != nil {
		return fmt.Errorf(pusherErrorTemplateConstant, pusherError)
	}

	logger.Info(logMessageMirrorStartedConstant,
		zap.String(logFieldProviderConstant, provider.Name()),
		zap.String(logFieldOwnerConstant, owner),
		zap.String(logFieldTargetConstant, options.Target),
		zap.Int(logFieldRepositoryCountConstant, len(persisted.Repos)),
	)

	outcomes, pushError := pusher.Push(executionContext, persisted)
	if pushError != nil {
		return fmt.Errorf(pushErrorTemplateConstant, pushError)
	}

	entries, summary := report.FromMirror(outcomes)
	runReport := report.Report{
		RunID:      runIdentifier,
		Command:    report.CommandMirror,
		StartedAt:  startedAt,
		FinishedAt: builder.now(),
		Summary:    summary,
		Entries:    entries,
	}
	if renderError := report.RenderConsole(command.OutOrStdout(), runReport); renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, renderError)
	}
	if len(options.Report) > 0 {
		if writeError := report.WriteFile(options.Report, runReport); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
		}
	}
	return nil
}

func (builder *CommandBuilder) resolveOptions(command *cobra.Command) (CommandConfiguration, error) {
	options := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		options = builder.ConfigurationProvider()
	}
	flagSet := command.Flags()

	if flagSet.Changed(targetFlagNameConstant) {
		options.Target, _ = flagSet.GetString(targetFlagNameConstant)
	}
	if flagSet.Changed(inventoryFlagNameConstant) {
		options.Inventory, _ = flagSet.GetString(inventoryFlagNameConstant)
	}
	if flagSet.Changed(providerFlagNameConstant) {
		value, _ := flagSet.GetString(providerFlagNameConstant)
		if parseError := options.Provider.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(tokenFlagNameConstant) {
		options.Token, _ = flagSet.GetString(tokenFlagNameConstant)
	}
	if flagSet.Changed(ownerFlagNameConstant) {
		options.Owner, _ = flagSet.GetString(ownerFlagNameConstant)
	}
	if flagSet.Changed(urlFlagNameConstant) {
		options.URL, _ = flagSet.GetString(urlFlagNameConstant)
	}
	if flagSet.Changed(visibilityFlagNameConstant) {
		value, _ := flagSet.GetString(visibilityFlagNameConstant)
		if parseError := options.Visibility.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(reportFlagNameConstant) {
		options.Report, _ = flagSet.GetString(reportFlagNameConstant)
	}

	options = options.Sanitize()

	resolver := pathutils.NewResolver()
	var resolveError error
	if options.Target, resolveError = resolver.Resolve(targetPathLabelConstant, options.Target); resolveError != nil {
		return CommandConfiguration{}, resolveError
	}
	if options.Inventory, resolveError = resolver.Resolve(inventoryPathLabelConstant, options.Inventory); resolveError != nil {
		return CommandConfiguration{}, resolveError
	}
	if len(options.Report) > 0 {
		if options.Report, resolveError = resolver.Resolve(reportPathLabelConstant, options.Report); resolveError != nil {
			return CommandConfiguration{}, resolveError
		}
	}
	return options, nil
}

func (builder *CommandBuilder) providerFactory() func(*zap.Logger, mirror.ProviderOptions) (mirror.Provider, error) {
	if builder.ProviderFactory != nil {
		return builder.ProviderFactory
	}
	return mirror.NewProvider
}

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock != nil {
		return builder.Clock()
	}
	return time.Now().UTC()
}
