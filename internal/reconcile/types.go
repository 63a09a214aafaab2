package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/branches"
	"github.com/temirov/reposync/internal/decision"
	"github.com/temirov/reposync/internal/inventory"
)

const (
	workspaceMissingMessageConstant        = "reconcile workspace not configured"
	synchronizerMissingMessageConstant     = "reconcile branch synchronizer not configured"
	decisionProviderMissingMessageConstant = "reconcile decision provider not configured"
	targetRootMissingMessageConstant       = "reconcile target root must be provided"
	unsupportedUntrackedPolicyTemplate     = "unsupported untracked policy %q"
	unsupportedClonePolicyTemplate         = "unsupported clone policy %q"
	unsupportedBranchScopeTemplate         = "unsupported branch scope %q"
	unsupportedUnmatchedPolicyTemplate     = "unsupported unmatched policy %q"
	negativePreDeleteChecksTemplate        = "pre-delete checks must not be negative, got %d"
	disjointnessErrorTemplateConstant      = "repository %q produced by more than one reconciliation pass"
)

var (
	// ErrWorkspaceNotConfigured indicates a missing Workspace dependency.
	ErrWorkspaceNotConfigured = errors.New(workspaceMissingMessageConstant)
	// ErrBranchSynchronizerNotConfigured indicates a missing BranchSynchronizer dependency.
	ErrBranchSynchronizerNotConfigured = errors.New(synchronizerMissingMessageConstant)
	// ErrDecisionProviderNotConfigured indicates a missing DecisionProvider dependency.
	ErrDecisionProviderNotConfigured = errors.New(decisionProviderMissingMessageConstant)
	// ErrTargetRootRequired indicates an empty target root option.
	ErrTargetRootRequired = errors.New(targetRootMissingMessageConstant)
)

// ActionKind classifies the disposition applied to a repository.
type ActionKind string

// Action kinds.
const (
	ActionNoOp          ActionKind = "noop"
	ActionDeleteLocal   ActionKind = "delete"
	ActionMarkKeep      ActionKind = "keep"
	ActionMarkIgnore    ActionKind = "ignore"
	ActionClone         ActionKind = "clone"
	ActionFetchBranches ActionKind = "fetch"
)

// Action records one disposition and its outcome. Err is set when the side effect failed.
type Action struct {
	Kind   ActionKind
	Name   string
	Path   string
	Detail string
	Err    error
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Inventory map[string]inventory.RepoRecord
	Actions   []Action
}

// Count returns the number of actions of the given kind.
func (result Result) Count(kind ActionKind) int {
	count := 0
	for _, action := range result.Actions {
		if action.Kind == kind {
			count++
		}
	}
	return count
}

// Failures returns the actions whose side effects failed.
func (result Result) Failures() []Action {
	var failed []Action
	for _, action := range result.Actions {
		if action.Err != nil {
			failed = append(failed, action)
		}
	}
	return failed
}

// DisjointnessError reports a repository name emitted by two passes of the same run.
type DisjointnessError struct {
	Name string
}

// Error describes the collision.
func (disjointnessError DisjointnessError) Error() string {
	return fmt.Sprintf(disjointnessErrorTemplateConstant, disjointnessError.Name)
}

// Workspace performs filesystem checks and mutations for repository directories.
type Workspace interface {
	Exists(path string) (bool, error)
	DeleteLocal(path string) error
	Clone(executionContext context.Context, endpoint string, destination string) error
}

// BranchSynchronizer refreshes remote-tracking branches of an existing clone.
type BranchSynchronizer interface {
	Synchronize(executionContext context.Context, repositoryPath string, scope branches.Scope) (branches.Result, error)
}

// Dependencies enumerates the collaborators of an Engine.
type Dependencies struct {
	Workspace          Workspace
	BranchSynchronizer BranchSynchronizer
	DecisionProvider   decision.Provider
	Logger             *zap.Logger
}

// Options is the immutable configuration of an Engine. PreDeleteChecks is the number of passes an
// automatic deletion is deferred before the local clone is removed.
type Options struct {
	TargetRoot      string
	UntrackedPolicy decision.UntrackedPolicy
	UnmatchedPolicy decision.UnmatchedPolicy
	ClonePolicy     decision.ClonePolicy
	BranchScope     branches.Scope
	PreDeleteChecks int
}

func (options Options) validate() (Options, error) {
	if len(options.TargetRoot) == 0 {
		return options, ErrTargetRootRequired
	}
	if len(options.UntrackedPolicy) == 0 {
		options.UntrackedPolicy = decision.UntrackedAsk
	}
	if len(options.UnmatchedPolicy) == 0 {
		options.UnmatchedPolicy = decision.UnmatchedIgnore
	}
	if len(options.ClonePolicy) == 0 {
		options.ClonePolicy = decision.CloneAsk
	}
	if len(options.BranchScope) == 0 {
		options.BranchScope = branches.ScopeAll
	}

	switch options.UntrackedPolicy {
	case decision.UntrackedAsk, decision.UntrackedDelete, decision.UntrackedKeep:
	default:
		return options, fmt.Errorf(unsupportedUntrackedPolicyTemplate, options.UntrackedPolicy)
	}
	switch options.UnmatchedPolicy {
	case decision.UnmatchedIgnore, decision.UnmatchedDelete:
	default:
		return options, fmt.Errorf(unsupportedUnmatchedPolicyTemplate, options.UnmatchedPolicy)
	}
	switch options.ClonePolicy {
	case decision.CloneAsk, decision.CloneAll, decision.CloneNone:
	default:
		return options, fmt.Errorf(unsupportedClonePolicyTemplate, options.ClonePolicy)
	}
	switch options.BranchScope {
	case branches.ScopeAll, branches.ScopeCurrent:
	default:
		return options, fmt.Errorf(unsupportedBranchScopeTemplate, options.BranchScope)
	}
	if options.PreDeleteChecks < 0 {
		return options, fmt.Errorf(negativePreDeleteChecksTemplate, options.PreDeleteChecks)
	}
	return options, nil
}
