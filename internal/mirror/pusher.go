package mirror

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	gitPushSubcommandConstant                   = "push"
	gitMirrorFlagConstant                       = "--mirror"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	detailPushedConstant                        = "pushed"
	detailNoLocalCloneConstant                  = "no local clone"
	logMessageMirrorPushedConstant              = "Mirrored repository"
	logMessageMirrorFailedConstant              = "Mirror failed"
	logMessageMirrorSkippedConstant             = "Mirror push skipped"
	logMessageMirrorCompletedConstant           = "Mirror pass completed"
	logFieldPathConstant                        = "path"
	logFieldCreatedConstant                     = "created"
	logFieldPushedCountConstant                 = "pushed"
	logFieldFailureCountConstant                = "failures"
)

// Visibility selects how destination repositories are created.
type Visibility string

// Visibility choices.
const (
	VisibilitySource  Visibility = "source"
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// UnmarshalText parses a visibility choice.
func (visibility *Visibility) UnmarshalText(text []byte) error {
	candidate := Visibility(strings.ToLower(strings.TrimSpace(string(text))))
	switch candidate {
	case VisibilitySource, VisibilityPrivate, VisibilityPublic:
		*visibility = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedVisibilityTemplateConstant, string(text))
	}
}

// VisibilityChoices lists the accepted visibility values.
func VisibilityChoices() []string {
	return []string{string(VisibilitySource), string(VisibilityPrivate), string(VisibilityPublic)}
}

func (visibility Visibility) private(record inventory.RepoRecord) bool {
	switch visibility {
	case VisibilityPrivate:
		return true
	case VisibilityPublic:
		return false
	default:
		return record.Status.Private
	}
}

// GitExecutor runs git commands with explicit working directories.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// DirectoryChecker reports whether a local clone is materialized.
type DirectoryChecker interface {
	Exists(path string) (bool, error)
}

// Dependencies enumerates the collaborators required by Pusher.
type Dependencies struct {
	Provider    Provider
	GitExecutor GitExecutor
	Workspace   DirectoryChecker
	Logger      *zap.Logger
}

// Options configures a Pusher.
type Options struct {
	TargetRoot string
	Visibility Visibility
}

// Outcome reports what happened to one repository.
type Outcome struct {
	Name   string
	Path   string
	Remote RemoteRepository
	Pushed bool
	Detail string
	Err    error
}

// Pusher mirrors inventory repositories to a Provider.
type Pusher struct {
	provider Provider
	executor GitExecutor
	checker  DirectoryChecker
	logger   *zap.Logger
	options  Options
}

// NewPusher validates dependencies and constructs a Pusher.
func NewPusher(dependencies Dependencies, options Options) (*Pusher, error) {
	if dependencies.Provider == nil {
		return nil, ErrProviderNotConfigured
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.Workspace == nil {
		return nil, ErrWorkspaceNotConfigured
	}
	if len(strings.TrimSpace(options.TargetRoot)) == 0 {
		return nil, ErrTargetRootRequired
	}
	if len(options.Visibility) == 0 {
		options.Visibility = VisibilitySource
	}
	if visibilityError := options.Visibility.UnmarshalText([]byte(options.Visibility)); visibilityError != nil {
		return nil, visibilityError
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pusher{
		provider: dependencies.Provider,
		executor: dependencies.GitExecutor,
		checker:  dependencies.Workspace,
		logger:   logger,
		options:  options,
	}, nil
}

// Push mirrors every non-ignored repository in name order. Per-repository failures are recorded in the
// outcomes and never stop the loop; only context cancellation does.
func (pusher *Pusher) Push(executionContext context.Context, repositories inventory.Inventory) ([]Outcome, error) {
	names := make([]string, 0, len(repositories.Repos))
	for name, record := range repositories.Repos {
		if record.Ignore {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]Outcome, 0, len(names))
	pushedCount := 0
	failureCount := 0
	for _, name := range names {
		if contextError := executionContext.Err(); contextError != nil {
			return outcomes, contextError
		}
		outcome := pusher.pushOne(executionContext, name, repositories.Repos[name])
		if outcome.Err != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return outcomes, contextError
			}
			failureCount++
		}
		if outcome.Pushed {
			pushedCount++
		}
		outcomes = append(outcomes, outcome)
	}

	pusher.logger.Info(logMessageMirrorCompletedConstant,
		zap.String(logFieldProviderConstant, pusher.provider.Name()),
		zap.Int(logFieldPushedCountConstant, pushedCount),
		zap.Int(logFieldFailureCountConstant, failureCount),
	)
	return outcomes, nil
}

func (pusher *Pusher) pushOne(executionContext context.Context, name string, record inventory.RepoRecord) Outcome {
	outcome := Outcome{Name: name}
	fields := []zap.Field{
		zap.String(logFieldProviderConstant, pusher.provider.Name()),
		zap.String(logFieldMirrorRepositoryConstant, name),
	}

	repositoryPath, pathError := workspace.RepositoryPath(pusher.options.TargetRoot, name)
	if pathError != nil {
		outcome.Err = pathError
		pusher.logger.Warn(logMessageMirrorFailedConstant, append(fields, zap.Error(pathError))...)
		return outcome
	}
	outcome.Path = repositoryPath
	fields = append(fields, zap.String(logFieldPathConstant, repositoryPath))

	destination, ensureError := pusher.provider.EnsureRepository(executionContext, name, pusher.options.Visibility.private(record))
	outcome.Remote = destination
	if ensureError != nil {
		outcome.Err = ensureError
		pusher.logger.Warn(logMessageMirrorFailedConstant, append(fields, zap.Error(ensureError))...)
		return outcome
	}

	exists, existsError := pusher.checker.Exists(repositoryPath)
	if existsError != nil {
		outcome.Err = existsError
		pusher.logger.Warn(logMessageMirrorFailedConstant, append(fields, zap.Error(existsError))...)
		return outcome
	}
	if !exists {
		outcome.Detail = detailNoLocalCloneConstant
		pusher.logger.Debug(logMessageMirrorSkippedConstant, fields...)
		return outcome
	}

	_, pushError := pusher.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, gitMirrorFlagConstant, destination.PushURL},
		WorkingDirectory: repositoryPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
	if pushError != nil {
		outcome.Err = PushError{Repository: name, Cause: pushError}
		pusher.logger.Warn(logMessageMirrorFailedConstant, append(fields, zap.Error(outcome.Err))...)
		return outcome
	}

	outcome.Pushed = true
	outcome.Detail = detailPushedConstant
	pusher.logger.Info(logMessageMirrorPushedConstant, append(fields, zap.Bool(logFieldCreatedConstant, destination.Created))...)
	return outcome
}
