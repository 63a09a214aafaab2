package synccmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/branches"
	"github.com/temirov/reposync/internal/decision"
	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/filter"
	"github.com/temirov/reposync/internal/githubauth"
	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/remote"
	"github.com/temirov/reposync/internal/report"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
	pathutils "github.com/temirov/reposync/internal/utils/path"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	commandUseConstant                 = "sync"
	commandShortDescriptionConstant    = "Reconcile the local backup directory with the GitHub account"
	commandLongDescriptionConstant     = "sync fetches the repositories owned by the configured GitHub account, clones new ones, fetches every branch of existing ones, and resolves local directories that are no longer listed remotely."
	targetFlagNameConstant             = "target"
	targetFlagUsageConstant            = "Directory holding the local clones"
	inventoryFlagNameConstant          = "inventory"
	inventoryFlagUsageConstant         = "Path to the persisted inventory file"
	untrackedFlagNameConstant          = "untracked"
	untrackedFlagDescriptionConstant   = "Policy for local directories no longer listed remotely"
	unmatchedFlagNameConstant          = "unmatched"
	unmatchedFlagDescriptionConstant   = "Policy for local clones of repositories excluded by --allow and --deny"
	preDeleteChecksFlagNameConstant    = "pre-delete-checks"
	preDeleteChecksFlagUsageConstant   = "Number of passes an automatic deletion is deferred before the local clone is removed"
	cloneFlagNameConstant              = "clone"
	cloneFlagDescriptionConstant       = "Policy for repositories without a local clone"
	branchesFlagNameConstant           = "branches"
	branchesFlagDescriptionConstant    = "Remote-tracking branches to fetch"
	dryRunFlagNameConstant             = "dry-run"
	dryRunFlagUsageConstant            = "Report planned deletions and clones without changing the filesystem or the inventory"
	reportFlagNameConstant             = "report"
	reportFlagUsageConstant            = "Write a YAML run report to this path"
	allowFlagNameConstant              = "allow"
	allowFlagUsageConstant             = "Regular expression over owner/name/private/fork/archived that always retains a repository (repeatable)"
	denyFlagNameConstant               = "deny"
	denyFlagUsageConstant              = "Regular expression over owner/name/private/fork/archived that excludes a repository unless allowed (repeatable)"
	cronFlagNameConstant               = "cron"
	cronFlagUsageConstant              = "Cron expression; when set, passes repeat on this schedule until interrupted"
	apiURLFlagNameConstant             = "api-url"
	apiURLFlagUsageConstant            = "GitHub Enterprise API base URL"
	inventoryLoadErrorTemplateConstant = "unable to load inventory: %w"
	credentialsErrorTemplateConstant   = "unable to obtain credentials: %w"
	fetchErrorTemplateConstant         = "unable to fetch remote inventory: %w"
	filterErrorTemplateConstant        = "invalid repository filter: %w"
	workspaceErrorTemplateConstant     = "unable to prepare workspace: %w"
	engineErrorTemplateConstant        = "unable to configure reconciliation: %w"
	reconcileErrorTemplateConstant     = "reconciliation aborted: %w"
	inventorySaveErrorTemplateConstant = "unable to save inventory: %w"
	reportRenderErrorTemplateConstant  = "unable to render report: %w"
	reportWriteErrorTemplateConstant   = "unable to write report: %w"
	targetPathLabelConstant            = "target"
	inventoryPathLabelConstant         = "inventory"
	reportPathLabelConstant            = "report"
	logMessagePassStartedConstant      = "Sync pass started"
	logMessageRemoteFilteredConstant   = "Remote inventory retained after filtering"
	logMessageFilteredConstant         = "Repositories excluded by filter"
	logMessageEnvironmentTokenConstant = "Using GitHub token from the environment"
	logMessageInventorySavedConstant   = "Inventory saved"
	logMessageDryRunConstant           = "Dry run: inventory left unchanged"
	logFieldTargetConstant             = "target"
	logFieldInventoryConstant          = "inventory"
	logFieldAccountConstant            = "account"
	logFieldDryRunConstant             = "dry_run"
	logFieldExcludedConstant           = "excluded"
	logFieldRepositoryCountConstant    = "repositories"
)

// RemoteFetcher lists the repositories owned by an account.
type RemoteFetcher interface {
	Fetch(executionContext context.Context, account string, token string) (map[string]inventory.RepoDescriptor, error)
}

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider        dependencies.LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	RemoteFetcher         RemoteFetcher
	GitExecutor           workspace.GitExecutor
	DecisionProvider      decision.Provider
	EnvironmentLookup     githubauth.EnvironmentLookup
	Clock                 func() time.Time
}

// Build constructs the sync command.
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
	command.Flags().String(untrackedFlagNameConstant, "", flagutils.ChoiceUsage(untrackedFlagDescriptionConstant, string(defaults.Untracked), decision.UntrackedPolicyChoices()))
	command.Flags().String(unmatchedFlagNameConstant, "", flagutils.ChoiceUsage(unmatchedFlagDescriptionConstant, string(defaults.Unmatched), decision.UnmatchedPolicyChoices()))
	command.Flags().Int(preDeleteChecksFlagNameConstant, defaults.PreDeleteChecks, preDeleteChecksFlagUsageConstant)
	command.Flags().String(cloneFlagNameConstant, "", flagutils.ChoiceUsage(cloneFlagDescriptionConstant, string(defaults.Clone), decision.ClonePolicyChoices()))
	command.Flags().String(branchesFlagNameConstant, "", flagutils.ChoiceUsage(branchesFlagDescriptionConstant, string(defaults.Branches), branches.ScopeChoices()))
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)
	command.Flags().String(reportFlagNameConstant, "", reportFlagUsageConstant)
	command.Flags().StringArray(allowFlagNameConstant, nil, allowFlagUsageConstant)
	command.Flags().StringArray(denyFlagNameConstant, nil, denyFlagUsageConstant)
	command.Flags().String(cronFlagNameConstant, "", cronFlagUsageConstant)
	command.Flags().String(apiURLFlagNameConstant, "", apiURLFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	options, optionsError := builder.resolveOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	promptInput := dependencies.NewPromptInput(command.InOrStdin())
	output := command.OutOrStdout()

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	runner := passRunner{builder: builder, options: options, promptInput: promptInput, output: output}

	if len(options.Cron) > 0 {
		return runScheduled(executionContext, options.Cron, logger, func(passContext context.Context) error {
			passIdentifier := utils.NewRunIdentifier()
			return runner.run(passContext, utils.WithRunIdentifier(logger, passIdentifier), passIdentifier)
		})
	}

	runIdentifier, hasRunIdentifier := utils.NewCommandContextAccessor().RunIdentifier(executionContext)
	if !hasRunIdentifier {
		runIdentifier = utils.NewRunIdentifier()
		logger = utils.WithRunIdentifier(logger, runIdentifier)
	}
	return runner.run(executionContext, logger, runIdentifier)
}

func (builder *CommandBuilder) resolveOptions(command *cobra.Command) (CommandConfiguration, error) {
	options := builder.resolveConfiguration()
	flagSet := command.Flags()

	if flagSet.Changed(targetFlagNameConstant) {
		options.Target, _ = flagSet.GetString(targetFlagNameConstant)
	}
	if flagSet.Changed(inventoryFlagNameConstant) {
		options.Inventory, _ = flagSet.GetString(inventoryFlagNameConstant)
	}
	if flagSet.Changed(untrackedFlagNameConstant) {
		value, _ := flagSet.GetString(untrackedFlagNameConstant)
		if parseError := options.Untracked.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(unmatchedFlagNameConstant) {
		value, _ := flagSet.GetString(unmatchedFlagNameConstant)
		if parseError := options.Unmatched.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(preDeleteChecksFlagNameConstant) {
		options.PreDeleteChecks, _ = flagSet.GetInt(preDeleteChecksFlagNameConstant)
	}
	if flagSet.Changed(cloneFlagNameConstant) {
		value, _ := flagSet.GetString(cloneFlagNameConstant)
		if parseError := options.Clone.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(branchesFlagNameConstant) {
		value, _ := flagSet.GetString(branchesFlagNameConstant)
		if parseError := options.Branches.UnmarshalText([]byte(value)); parseError != nil {
			return CommandConfiguration{}, parseError
		}
	}
	if flagSet.Changed(dryRunFlagNameConstant) {
		options.DryRun, _ = flagSet.GetBool(dryRunFlagNameConstant)
	}
	if flagSet.Changed(reportFlagNameConstant) {
		options.Report, _ = flagSet.GetString(reportFlagNameConstant)
	}
	if flagSet.Changed(allowFlagNameConstant) {
		options.Allow, _ = flagSet.GetStringArray(allowFlagNameConstant)
	}
	if flagSet.Changed(denyFlagNameConstant) {
		options.Deny, _ = flagSet.GetStringArray(denyFlagNameConstant)
	}
	if flagSet.Changed(cronFlagNameConstant) {
		options.Cron, _ = flagSet.GetString(cronFlagNameConstant)
	}
	if flagSet.Changed(apiURLFlagNameConstant) {
		options.APIURL, _ = flagSet.GetString(apiURLFlagNameConstant)
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

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock != nil {
		return builder.Clock()
	}
	return time.Now().UTC()
}

func (builder *CommandBuilder) environmentLookup() githubauth.EnvironmentLookup {
	if builder.EnvironmentLookup != nil {
		return builder.EnvironmentLookup
	}
	return os.LookupEnv
}

// passRunner executes one full sync pass with resolved options.
type passRunner struct {
	builder     *CommandBuilder
	options     CommandConfiguration
	promptInput *dependencies.PromptInput
	output      io.Writer
}

func (runner passRunner) run(executionContext context.Context, logger *zap.Logger, runIdentifier string) error {
	startedAt := runner.builder.now()
	options := runner.options
	logger.Info(logMessagePassStartedConstant,
		zap.String(logFieldTargetConstant, options.Target),
		zap.String(logFieldInventoryConstant, options.Inventory),
		zap.Bool(logFieldDryRunConstant, options.DryRun),
	)

	rules, rulesError := filter.NewRules(options.Allow, options.Deny)
	if rulesError != nil {
		return fmt.Errorf(filterErrorTemplateConstant, rulesError)
	}

	store := inventory.NewStore()
	persisted, _, loadError := store.Load(options.Inventory)
	if loadError != nil {
		return fmt.Errorf(inventoryLoadErrorTemplateConstant, loadError)
	}

	if len(strings.TrimSpace(persisted.Token)) == 0 {
		if environmentToken, found := githubauth.TokenFromEnvironment(runner.builder.environmentLookup()); found {
			persisted.Token = environmentToken
			logger.Info(logMessageEnvironmentTokenConstant)
		}
	}
	if !persisted.HasCredentials() {
		prompter := inventory.NewCredentialPrompter(runner.promptInput, runner.output)
		var credentialsError error
		if persisted, credentialsError = prompter.EnsureCredentials(persisted); credentialsError != nil {
			return fmt.Errorf(credentialsErrorTemplateConstant, credentialsError)
		}
	}

	fetcher, fetcherError := runner.resolveFetcher(logger)
	if fetcherError != nil {
		return fmt.Errorf(fetchErrorTemplateConstant, fetcherError)
	}
	remoteInventory, fetchError := fetcher.Fetch(executionContext, persisted.Username, persisted.Token)
	if fetchError != nil {
		return fmt.Errorf(fetchErrorTemplateConstant, fetchError)
	}

	retained, excluded := remoteInventory, map[string]inventory.RepoDescriptor{}
	if !rules.Empty() {
		retained, excluded = rules.Apply(persisted.Username, remoteInventory)
	}
	if len(excluded) > 0 {
		logger.Info(logMessageFilteredConstant, zap.Strings(logFieldExcludedConstant, slices.Sorted(maps.Keys(excluded))))
	}
	logger.Debug(logMessageRemoteFilteredConstant,
		zap.String(logFieldAccountConstant, persisted.Username),
		zap.Int(logFieldRepositoryCountConstant, len(retained)),
	)

	localWorkspace, synchronizer, dryRunWorkspace, workspaceError := runner.resolveWorkspace(logger)
	if workspaceError != nil {
		return fmt.Errorf(workspaceErrorTemplateConstant, workspaceError)
	}

	decisionProvider := runner.builder.DecisionProvider
	if decisionProvider == nil {
		decisionProvider = decision.NewInteractive(runner.promptInput, runner.output)
	}

	engine, engineError := reconcile.NewEngine(reconcile.Dependencies{
		Workspace:          localWorkspace,
		BranchSynchronizer: synchronizer,
		DecisionProvider:   decisionProvider,
		Logger:             logger,
	}, reconcile.Options{
		TargetRoot:      options.Target,
		UntrackedPolicy: options.Untracked,
		UnmatchedPolicy: options.Unmatched,
		ClonePolicy:     options.Clone,
		BranchScope:     options.Branches,
		PreDeleteChecks: options.PreDeleteChecks,
	})
	if engineError != nil {
		return fmt.Errorf(engineErrorTemplateConstant, engineError)
	}

	result, reconcileError := engine.ReconcileFiltered(executionContext, persisted.Repos, retained, excluded)
	if reconcileError != nil {
		return fmt.Errorf(reconcileErrorTemplateConstant, reconcileError)
	}

	if options.DryRun {
		logger.Info(logMessageDryRunConstant, zap.String(logFieldInventoryConstant, options.Inventory))
	} else {
		persisted.Repos = result.Inventory
		if saveError := store.Save(options.Inventory, persisted); saveError != nil {
			return fmt.Errorf(inventorySaveErrorTemplateConstant, saveError)
		}
		logger.Info(logMessageInventorySavedConstant, zap.String(logFieldInventoryConstant, options.Inventory))
	}

	entries, summary := report.FromReconcile(result)
	runReport := report.Report{
		RunID:      runIdentifier,
		Command:    report.CommandSync,
		DryRun:     options.DryRun,
		StartedAt:  startedAt,
		FinishedAt: runner.builder.now(),
		Summary:    summary,
		Entries:    entries,
	}
	if dryRunWorkspace != nil {
		runReport.Planned = report.FromPlan(dryRunWorkspace.Planned())
	}
	if renderError := report.RenderConsole(runner.output, runReport); renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, renderError)
	}
	if len(options.Report) > 0 {
		if writeError := report.WriteFile(options.Report, runReport); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
		}
	}
	return nil
}

func (runner passRunner) resolveFetcher(logger *zap.Logger) (RemoteFetcher, error) {
	if runner.builder.RemoteFetcher != nil {
		return runner.builder.RemoteFetcher, nil
	}
	return remote.NewFetcher(logger, remote.Options{BaseURL: runner.options.APIURL})
}

func (runner passRunner) resolveWorkspace(logger *zap.Logger) (reconcile.Workspace, reconcile.BranchSynchronizer, *workspace.DryRunWorkspace, error) {
	if runner.options.DryRun {
		dryRunWorkspace := workspace.NewDryRunWorkspace()
		return dryRunWorkspace, branches.NoopSynchronizer{}, dryRunWorkspace, nil
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(runner.builder.GitExecutor, logger)
	if executorError != nil {
		return nil, nil, nil, executorError
	}
	localWorkspace, workspaceError := workspace.NewOSWorkspace(workspace.Dependencies{GitExecutor: gitExecutor, Logger: logger})
	if workspaceError != nil {
		return nil, nil, nil, workspaceError
	}
	synchronizer, synchronizerError := branches.NewSynchronizer(branches.Dependencies{GitExecutor: gitExecutor, Logger: logger})
	if synchronizerError != nil {
		return nil, nil, nil, synchronizerError
	}
	return localWorkspace, synchronizer, nil, nil
}
