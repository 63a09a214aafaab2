package branches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
)

const (
	scopeAllConstant                            = "all"
	scopeCurrentConstant                        = "current"
	unsupportedScopeTemplateConstant            = "unsupported branch scope %q (expected all or current)"
	gitExecutorMissingMessageConstant           = "git executor not configured"
	repositoryPathRequiredMessageConstant       = "repository path must be provided"
	listBranchesErrorTemplateConstant           = "failed to list remote branches in %s: %s"
	currentBranchErrorTemplateConstant          = "failed to resolve current branch in %s: %s"
	detachErrorTemplateConstant                 = "failed to detach HEAD in %s: %s"
	restoreErrorTemplateConstant                = "failed to restore previous ref in %s: %s"
	fetchErrorTemplateConstant                  = "failed to fetch %s: %s"
	gitBranchSubcommandConstant                 = "branch"
	gitRemoteFlagConstant                       = "-r"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitAbbreviatedReferenceFlagConstant         = "--abbrev-ref"
	gitCheckoutSubcommandConstant               = "checkout"
	gitDetachFlagConstant                       = "--detach"
	gitPreviousReferenceConstant                = "-"
	gitFetchSubcommandConstant                  = "fetch"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	logMessageMalformedBranchConstant           = "Skipping malformed remote branch"
	logMessageBranchFetchFailedConstant         = "Branch fetch failed"
	logMessageNoBranchesSelectedConstant        = "No remote branches selected"
	logMessageBranchesSynchronizedConstant      = "Synchronized remote branches"
	logFieldRepositoryPathConstant              = "repository_path"
	logFieldBranchConstant                      = "branch"
	logFieldScopeConstant                       = "scope"
	logFieldFetchedCountConstant                = "fetched"
	logFieldFailedCountConstant                 = "failed"
)

// Scope selects which remote-tracking branches are fetched.
type Scope string

// Supported scopes.
const (
	ScopeAll     Scope = Scope(scopeAllConstant)
	ScopeCurrent Scope = Scope(scopeCurrentConstant)
)

// UnmarshalText validates a textual scope.
func (scope *Scope) UnmarshalText(text []byte) error {
	candidate := Scope(strings.ToLower(strings.TrimSpace(string(text))))
	switch candidate {
	case ScopeAll, ScopeCurrent:
		*scope = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedScopeTemplateConstant, string(text))
	}
}

// ScopeChoices lists the accepted scope values.
func ScopeChoices() []string {
	return []string{scopeAllConstant, scopeCurrentConstant}
}

// ErrGitExecutorNotConfigured indicates the synchronizer was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRepositoryPathRequired indicates an empty repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ListError reports a failure to enumerate remote-tracking branches.
type ListError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the listing failure.
func (listError ListError) Error() string {
	return fmt.Sprintf(listBranchesErrorTemplateConstant, listError.RepositoryPath, listError.Cause)
}

// Unwrap exposes the underlying cause.
func (listError ListError) Unwrap() error {
	return listError.Cause
}

// CurrentBranchError reports a failure to resolve the checked-out ref.
type CurrentBranchError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the resolution failure.
func (currentBranchError CurrentBranchError) Error() string {
	return fmt.Sprintf(currentBranchErrorTemplateConstant, currentBranchError.RepositoryPath, currentBranchError.Cause)
}

// Unwrap exposes the underlying cause.
func (currentBranchError CurrentBranchError) Unwrap() error {
	return currentBranchError.Cause
}

// DetachError reports a failure to detach HEAD; no branch is fetched in that case.
type DetachError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the detach failure.
func (detachError DetachError) Error() string {
	return fmt.Sprintf(detachErrorTemplateConstant, detachError.RepositoryPath, detachError.Cause)
}

// Unwrap exposes the underlying cause.
func (detachError DetachError) Unwrap() error {
	return detachError.Cause
}

// RestoreError reports a working tree left detached after fetching.
type RestoreError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the restore failure.
func (restoreError RestoreError) Error() string {
	return fmt.Sprintf(restoreErrorTemplateConstant, restoreError.RepositoryPath, restoreError.Cause)
}

// Unwrap exposes the underlying cause.
func (restoreError RestoreError) Unwrap() error {
	return restoreError.Cause
}

// FetchError reports a single branch that could not be fetched.
type FetchError struct {
	Branch RemoteBranch
	Cause  error
}

// Error describes the fetch failure.
func (fetchError FetchError) Error() string {
	return fmt.Sprintf(fetchErrorTemplateConstant, fetchError.Branch, fetchError.Cause)
}

// Unwrap exposes the underlying cause.
func (fetchError FetchError) Unwrap() error {
	return fetchError.Cause
}

// Result captures the outcome of synchronizing one repository.
type Result struct {
	RepositoryPath string
	Fetched        []RemoteBranch
	Failures       []FetchError
}

// GitExecutor runs git commands with explicit working directories.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies enumerates the collaborators required by Synchronizer.
type Dependencies struct {
	GitExecutor GitExecutor
	Logger      *zap.Logger
}

// Synchronizer fetches remote-tracking branches while HEAD is detached.
type Synchronizer struct {
	executor GitExecutor
	logger   *zap.Logger
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(dependencies Dependencies) (*Synchronizer, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{executor: dependencies.GitExecutor, logger: logger}, nil
}

// Synchronize fetches the branches selected by scope. Individual fetch failures are collected in the
// result; the previous ref is restored even when fetches fail or the context is cancelled.
func (synchronizer *Synchronizer) Synchronize(executionContext context.Context, repositoryPath string, scope Scope) (result Result, synchronizeError error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return Result{}, ErrRepositoryPathRequired
	}
	result.RepositoryPath = trimmedPath
	repositoryLogger := synchronizer.logger.With(zap.String(logFieldRepositoryPathConstant, trimmedPath))

	listOutput, listError := synchronizer.executeGit(executionContext, trimmedPath, gitBranchSubcommandConstant, gitRemoteFlagConstant)
	if listError != nil {
		return result, ListError{RepositoryPath: trimmedPath, Cause: listError}
	}

	remoteBranches, parseErrors := ParseRemoteBranchList(listOutput)
	for _, parseError := range parseErrors {
		repositoryLogger.Warn(logMessageMalformedBranchConstant, zap.Error(parseError))
	}
	// An empty clone has no remote branches and no commit behind HEAD.
	if len(remoteBranches) == 0 {
		repositoryLogger.Debug(logMessageNoBranchesSelectedConstant, zap.String(logFieldScopeConstant, string(scope)))
		return result, nil
	}

	currentReference, currentError := synchronizer.executeGit(executionContext, trimmedPath, gitRevParseSubcommandConstant, gitAbbreviatedReferenceFlagConstant, headReferenceNameConstant)
	if currentError != nil {
		return result, CurrentBranchError{RepositoryPath: trimmedPath, Cause: currentError}
	}
	currentBranch := strings.TrimSpace(currentReference)
	alreadyDetached := currentBranch == headReferenceNameConstant

	selectedBranches := selectBranches(remoteBranches, scope, currentBranch, alreadyDetached)
	if len(selectedBranches) == 0 {
		repositoryLogger.Debug(logMessageNoBranchesSelectedConstant, zap.String(logFieldScopeConstant, string(scope)))
		return result, nil
	}

	if !alreadyDetached {
		if _, detachError := synchronizer.executeGit(executionContext, trimmedPath, gitCheckoutSubcommandConstant, gitDetachFlagConstant); detachError != nil {
			return result, DetachError{RepositoryPath: trimmedPath, Cause: detachError}
		}
		defer func() {
			if _, restoreError := synchronizer.executeGit(context.WithoutCancel(executionContext), trimmedPath, gitCheckoutSubcommandConstant, gitPreviousReferenceConstant); restoreError != nil {
				synchronizeError = errors.Join(synchronizeError, RestoreError{RepositoryPath: trimmedPath, Cause: restoreError})
			}
		}()
	}

	for _, remoteBranch := range selectedBranches {
		if contextError := executionContext.Err(); contextError != nil {
			return result, contextError
		}
		if _, fetchError := synchronizer.executeGit(executionContext, trimmedPath, gitFetchSubcommandConstant, remoteBranch.Remote, remoteBranch.Branch); fetchError != nil {
			repositoryLogger.Warn(logMessageBranchFetchFailedConstant, zap.String(logFieldBranchConstant, remoteBranch.String()), zap.Error(fetchError))
			result.Failures = append(result.Failures, FetchError{Branch: remoteBranch, Cause: fetchError})
			continue
		}
		result.Fetched = append(result.Fetched, remoteBranch)
	}

	repositoryLogger.Info(logMessageBranchesSynchronizedConstant,
		zap.Int(logFieldFetchedCountConstant, len(result.Fetched)),
		zap.Int(logFieldFailedCountConstant, len(result.Failures)),
	)
	return result, nil
}

func (synchronizer *Synchronizer) executeGit(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	executionResult, executionError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
	if executionError != nil {
		return "", executionError
	}
	return executionResult.StandardOutput, nil
}

func selectBranches(remoteBranches []RemoteBranch, scope Scope, currentBranch string, detached bool) []RemoteBranch {
	if scope != ScopeCurrent {
		return remoteBranches
	}
	if detached {
		return nil
	}
	var selected []RemoteBranch
	for _, remoteBranch := range remoteBranches {
		if remoteBranch.Branch == currentBranch {
			selected = append(selected, remoteBranch)
		}
	}
	return selected
}

// NoopSynchronizer reports success without running git; dry runs use it.
type NoopSynchronizer struct{}

// Synchronize returns an empty result for the repository.
func (NoopSynchronizer) Synchronize(_ context.Context, repositoryPath string, _ Scope) (Result, error) {
	return Result{RepositoryPath: repositoryPath}, nil
}
