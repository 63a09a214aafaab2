package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/branches"
	"github.com/temirov/reposync/internal/decision"
	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	detailKeptConstant              = "keep flag set"
	detailGoneConstant              = "gone locally and remotely"
	detailDeletedConstant           = "deleted untracked directory"
	detailDeletedExcludedConstant   = "deleted clone excluded by filter"
	detailExcludedConstant          = "excluded by filter"
	detailExcludedGoneConstant      = "excluded by filter and gone locally"
	detailDeferredTemplateConstant  = "deletion deferred (check %d of %d)"
	detailMarkedKeepConstant        = "marked keep"
	detailLeftInPlaceConstant       = "left in place and unregistered"
	detailIgnoredTemplateConstant   = "ignored (%s)"
	detailIgnoredConstant           = "ignored"
	detailClonePolicyNoneConstant   = "clone policy none"
	detailCloneDeclinedConstant     = "clone declined"
	detailClonedConstant            = "cloned"
	detailCloneFailedConstant       = "clone failed"
	detailDecisionFailedConstant    = "decision failed"
	detailInspectionFailedConstant  = "inspection failed"
	detailFetchedTemplateConstant   = "fetched %d branches, %d failed"
	logMessageRepositoryConstant    = "Reconciled repository"
	logMessageRepositoryFailed      = "Repository action failed"
	logMessagePassCompletedConstant = "Reconciliation pass completed"
	logFieldRepositoryConstant      = "repository"
	logFieldActionConstant          = "action"
	logFieldPathConstant            = "path"
	logFieldDetailConstant          = "detail"
	logFieldInventorySizeConstant   = "inventory_size"
	logFieldActionCountConstant     = "actions"
	logFieldFailureCountConstant    = "failures"
)

// Engine reconciles prior and remote inventories.
type Engine struct {
	workspace    Workspace
	synchronizer BranchSynchronizer
	decisions    decision.Provider
	logger       *zap.Logger
	options      Options
}

// NewEngine validates dependencies and options and constructs an Engine.
func NewEngine(dependencies Dependencies, options Options) (*Engine, error) {
	if dependencies.Workspace == nil {
		return nil, ErrWorkspaceNotConfigured
	}
	if dependencies.BranchSynchronizer == nil {
		return nil, ErrBranchSynchronizerNotConfigured
	}
	if dependencies.DecisionProvider == nil {
		return nil, ErrDecisionProviderNotConfigured
	}
	validatedOptions, optionsError := options.validate()
	if optionsError != nil {
		return nil, optionsError
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		workspace:    dependencies.Workspace,
		synchronizer: dependencies.BranchSynchronizer,
		decisions:    dependencies.DecisionProvider,
		logger:       logger,
		options:      validatedOptions,
	}, nil
}

// pass accumulates the records and actions of one reconciliation run.
type pass struct {
	engine          *Engine
	untrackedCarry  map[string]inventory.RepoRecord
	ignoredCarry    map[string]inventory.RepoRecord
	excludedCarry   map[string]inventory.RepoRecord
	processedRemote map[string]inventory.RepoRecord
	actions         []Action
}

// Reconcile runs the untracked, ignored-carryover, and new-or-active passes and merges their records.
// Inputs are not modified. Only context cancellation aborts the run.
func (engine *Engine) Reconcile(executionContext context.Context, prior map[string]inventory.RepoRecord, remote map[string]inventory.RepoDescriptor) (Result, error) {
	return engine.ReconcileFiltered(executionContext, prior, remote, nil)
}

// ReconcileFiltered is Reconcile for a remote inventory narrowed by filter rules. Excluded holds the
// repositories still listed remotely but filtered out; their records never reach the untracked pass
// and follow the unmatched policy instead.
func (engine *Engine) ReconcileFiltered(executionContext context.Context, prior map[string]inventory.RepoRecord, remote map[string]inventory.RepoDescriptor, excluded map[string]inventory.RepoDescriptor) (Result, error) {
	currentPass := &pass{
		engine:          engine,
		untrackedCarry:  map[string]inventory.RepoRecord{},
		ignoredCarry:    map[string]inventory.RepoRecord{},
		excludedCarry:   map[string]inventory.RepoRecord{},
		processedRemote: map[string]inventory.RepoRecord{},
	}

	for _, name := range sortedKeys(prior) {
		if _, present := remote[name]; present {
			continue
		}
		if _, filtered := excluded[name]; filtered {
			continue
		}
		if contextError := executionContext.Err(); contextError != nil {
			return Result{}, contextError
		}
		if untrackedError := currentPass.reconcileUntracked(executionContext, name, prior[name]); untrackedError != nil {
			return Result{}, untrackedError
		}
	}

	for _, name := range sortedKeys(excluded) {
		priorRecord, known := prior[name]
		if !known {
			continue
		}
		if _, present := remote[name]; present {
			continue
		}
		if contextError := executionContext.Err(); contextError != nil {
			return Result{}, contextError
		}
		currentPass.reconcileExcluded(name, excluded[name], priorRecord)
	}

	for _, name := range sortedKeys(remote) {
		priorRecord, known := prior[name]
		if !known || !priorRecord.Ignore {
			continue
		}
		carried := priorRecord.WithDescriptor(remote[name])
		currentPass.ignoredCarry[name] = carried
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Detail: ignoredDetail(carried.IgnoreReason)})
	}

	for _, name := range sortedKeys(remote) {
		if _, ignored := currentPass.ignoredCarry[name]; ignored {
			continue
		}
		if contextError := executionContext.Err(); contextError != nil {
			return Result{}, contextError
		}
		priorRecord, known := prior[name]
		if activeError := currentPass.reconcileActive(executionContext, name, remote[name], priorRecord, known); activeError != nil {
			return Result{}, activeError
		}
	}

	merged, mergeError := mergeDisjoint(currentPass.untrackedCarry, currentPass.ignoredCarry, currentPass.excludedCarry, currentPass.processedRemote)
	if mergeError != nil {
		return Result{}, mergeError
	}

	result := Result{Inventory: merged, Actions: currentPass.actions}
	engine.logger.Info(logMessagePassCompletedConstant,
		zap.Int(logFieldInventorySizeConstant, len(merged)),
		zap.Int(logFieldActionCountConstant, len(result.Actions)),
		zap.Int(logFieldFailureCountConstant, len(result.Failures())),
	)
	return result, nil
}

func (currentPass *pass) reconcileUntracked(executionContext context.Context, name string, record inventory.RepoRecord) error {
	if record.Keep {
		currentPass.untrackedCarry[name] = record
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Detail: detailKeptConstant})
		return nil
	}

	repositoryPath, exists, inspectionError := currentPass.inspect(name)
	if inspectionError != nil {
		currentPass.untrackedCarry[name] = record
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailInspectionFailedConstant, Err: inspectionError})
		return nil
	}
	if !exists {
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailGoneConstant})
		return nil
	}

	switch currentPass.engine.options.UntrackedPolicy {
	case decision.UntrackedDelete:
		currentPass.deleteAfterChecks(currentPass.untrackedCarry, name, repositoryPath, record, detailDeletedConstant)
		return nil
	case decision.UntrackedKeep:
		currentPass.markKeep(name, repositoryPath, record)
		return nil
	}

	confirmedDelete, deleteDecisionError := currentPass.engine.decisions.ConfirmDelete(executionContext, name, repositoryPath)
	if deleteDecisionError != nil {
		return currentPass.decisionFailed(executionContext, name, repositoryPath, deleteDecisionError, func() {
			currentPass.untrackedCarry[name] = record
		})
	}
	if confirmedDelete {
		currentPass.deleteLocal(currentPass.untrackedCarry, name, repositoryPath, record, detailDeletedConstant)
		return nil
	}

	confirmedKeep, keepDecisionError := currentPass.engine.decisions.ConfirmKeep(executionContext, name, repositoryPath)
	if keepDecisionError != nil {
		return currentPass.decisionFailed(executionContext, name, repositoryPath, keepDecisionError, func() {
			currentPass.untrackedCarry[name] = record
		})
	}
	if confirmedKeep {
		currentPass.markKeep(name, repositoryPath, record)
		return nil
	}

	currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailLeftInPlaceConstant})
	return nil
}

// reconcileExcluded carries or removes the record of a repository filtered out of this pass.
func (currentPass *pass) reconcileExcluded(name string, descriptor inventory.RepoDescriptor, record inventory.RepoRecord) {
	carried := record.WithDescriptor(descriptor)
	if currentPass.engine.options.UnmatchedPolicy == decision.UnmatchedIgnore || record.Keep {
		currentPass.excludedCarry[name] = carried
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Detail: detailExcludedConstant})
		return
	}

	repositoryPath, exists, inspectionError := currentPass.inspect(name)
	if inspectionError != nil {
		currentPass.excludedCarry[name] = carried
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailInspectionFailedConstant, Err: inspectionError})
		return
	}
	if !exists {
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailExcludedGoneConstant})
		return
	}
	carried.Absences = record.Absences
	currentPass.deleteAfterChecks(currentPass.excludedCarry, name, repositoryPath, carried, detailDeletedExcludedConstant)
}

// deleteAfterChecks defers an automatic deletion until the record has been seen for the configured
// number of passes. A deferred record is carried with its count incremented.
func (currentPass *pass) deleteAfterChecks(carry map[string]inventory.RepoRecord, name string, repositoryPath string, record inventory.RepoRecord, detail string) {
	required := currentPass.engine.options.PreDeleteChecks
	if record.Absences < required {
		record.Absences++
		carry[name] = record
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: fmt.Sprintf(detailDeferredTemplateConstant, record.Absences, required)})
		return
	}
	currentPass.deleteLocal(carry, name, repositoryPath, record, detail)
}

func (currentPass *pass) deleteLocal(carry map[string]inventory.RepoRecord, name string, repositoryPath string, record inventory.RepoRecord, detail string) {
	if deleteError := currentPass.engine.workspace.DeleteLocal(repositoryPath); deleteError != nil {
		carry[name] = record
		currentPass.emit(Action{Kind: ActionDeleteLocal, Name: name, Path: repositoryPath, Err: deleteError})
		return
	}
	currentPass.emit(Action{Kind: ActionDeleteLocal, Name: name, Path: repositoryPath, Detail: detail})
}

func (currentPass *pass) markKeep(name string, repositoryPath string, record inventory.RepoRecord) {
	record.Keep = true
	record.Ignore = false
	record.IgnoreReason = ""
	currentPass.untrackedCarry[name] = record
	currentPass.emit(Action{Kind: ActionMarkKeep, Name: name, Path: repositoryPath, Detail: detailMarkedKeepConstant})
}

func (currentPass *pass) reconcileActive(executionContext context.Context, name string, descriptor inventory.RepoDescriptor, priorRecord inventory.RepoRecord, known bool) error {
	preserved := inventory.NewRecord(descriptor)
	if known {
		preserved = priorRecord.WithDescriptor(descriptor)
	}

	repositoryPath, exists, inspectionError := currentPass.inspect(name)
	if inspectionError != nil {
		currentPass.processedRemote[name] = preserved
		currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailInspectionFailedConstant, Err: inspectionError})
		return nil
	}

	if !exists {
		switch currentPass.engine.options.ClonePolicy {
		case decision.CloneNone:
			currentPass.processedRemote[name] = inventory.IgnoredRecord(descriptor, inventory.IgnoreReasonPolicy)
			currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailClonePolicyNoneConstant})
			return nil
		case decision.CloneAsk:
			confirmedClone, cloneDecisionError := currentPass.engine.decisions.ConfirmClone(executionContext, name, descriptor.SSHURL)
			if cloneDecisionError != nil {
				return currentPass.decisionFailed(executionContext, name, repositoryPath, cloneDecisionError, func() {
					if known {
						currentPass.processedRemote[name] = preserved
					}
				})
			}
			if !confirmedClone {
				currentPass.processedRemote[name] = inventory.IgnoredRecord(descriptor, inventory.IgnoreReasonDeclined)
				currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailCloneDeclinedConstant})
				return nil
			}
		}

		if cloneError := currentPass.engine.workspace.Clone(executionContext, descriptor.SSHURL, repositoryPath); cloneError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			currentPass.processedRemote[name] = inventory.IgnoredRecord(descriptor, inventory.IgnoreReasonCloneFailed)
			currentPass.emit(Action{Kind: ActionMarkIgnore, Name: name, Path: repositoryPath, Detail: detailCloneFailedConstant, Err: cloneError})
			return nil
		}
		currentPass.emit(Action{Kind: ActionClone, Name: name, Path: repositoryPath, Detail: detailClonedConstant})
	}

	synchronizeResult, synchronizeError := currentPass.engine.synchronizer.Synchronize(executionContext, repositoryPath, currentPass.engine.options.BranchScope)
	if synchronizeError != nil && executionContext.Err() != nil && errors.Is(synchronizeError, executionContext.Err()) {
		return executionContext.Err()
	}

	currentPass.processedRemote[name] = inventory.NewRecord(descriptor)
	currentPass.emit(Action{
		Kind:   ActionFetchBranches,
		Name:   name,
		Path:   repositoryPath,
		Detail: fmt.Sprintf(detailFetchedTemplateConstant, len(synchronizeResult.Fetched), len(synchronizeResult.Failures)),
		Err:    joinSynchronizeErrors(synchronizeResult, synchronizeError),
	})
	return nil
}

// inspect derives the repository path and reports whether its directory exists.
func (currentPass *pass) inspect(name string) (string, bool, error) {
	repositoryPath, pathError := workspace.RepositoryPath(currentPass.engine.options.TargetRoot, name)
	if pathError != nil {
		return "", false, pathError
	}
	exists, existsError := currentPass.engine.workspace.Exists(repositoryPath)
	if existsError != nil {
		return repositoryPath, false, existsError
	}
	return repositoryPath, exists, nil
}

// decisionFailed aborts on cancellation; otherwise it preserves prior state and records a NoOp.
func (currentPass *pass) decisionFailed(executionContext context.Context, name string, repositoryPath string, decisionError error, preserve func()) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}
	preserve()
	currentPass.emit(Action{Kind: ActionNoOp, Name: name, Path: repositoryPath, Detail: detailDecisionFailedConstant, Err: decisionError})
	return nil
}

func (currentPass *pass) emit(action Action) {
	currentPass.actions = append(currentPass.actions, action)

	fields := []zap.Field{
		zap.String(logFieldRepositoryConstant, action.Name),
		zap.String(logFieldActionConstant, string(action.Kind)),
		zap.String(logFieldPathConstant, action.Path),
		zap.String(logFieldDetailConstant, action.Detail),
	}
	if action.Err != nil {
		currentPass.engine.logger.Warn(logMessageRepositoryFailed, append(fields, zap.Error(action.Err))...)
		return
	}
	if action.Kind == ActionNoOp {
		currentPass.engine.logger.Debug(logMessageRepositoryConstant, fields...)
		return
	}
	currentPass.engine.logger.Info(logMessageRepositoryConstant, fields...)
}

func joinSynchronizeErrors(synchronizeResult branches.Result, synchronizeError error) error {
	collected := make([]error, 0, len(synchronizeResult.Failures)+1)
	if synchronizeError != nil {
		collected = append(collected, synchronizeError)
	}
	for _, failure := range synchronizeResult.Failures {
		collected = append(collected, failure)
	}
	return errors.Join(collected...)
}

func ignoredDetail(reason inventory.IgnoreReason) string {
	if len(reason) == 0 {
		return detailIgnoredConstant
	}
	return fmt.Sprintf(detailIgnoredTemplateConstant, reason)
}

func mergeDisjoint(sources ...map[string]inventory.RepoRecord) (map[string]inventory.RepoRecord, error) {
	size := 0
	for _, source := range sources {
		size += len(source)
	}
	merged := make(map[string]inventory.RepoRecord, size)
	for _, source := range sources {
		for name, record := range source {
			if _, duplicate := merged[name]; duplicate {
				return nil, DisjointnessError{Name: name}
			}
			merged[name] = record
		}
	}
	return merged, nil
}

func sortedKeys[Value any](values map[string]Value) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
