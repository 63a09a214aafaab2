package workspace

import (
	"context"
	"sync"
)

// PlannedOperationKind identifies a mutation a dry run would have performed.
type PlannedOperationKind string

// Planned operation kinds.
const (
	PlannedDelete PlannedOperationKind = "delete"
	PlannedClone  PlannedOperationKind = "clone"
)

// PlannedOperation records one suppressed mutation.
type PlannedOperation struct {
	Kind     PlannedOperationKind
	Path     string
	Endpoint string
}

// DryRunWorkspace answers existence checks from disk but only records deletions and clones.
type DryRunWorkspace struct {
	mutex   sync.Mutex
	planned []PlannedOperation
}

// NewDryRunWorkspace constructs a DryRunWorkspace.
func NewDryRunWorkspace() *DryRunWorkspace {
	return &DryRunWorkspace{}
}

// Exists reports whether a directory is materialized at path.
func (workspace *DryRunWorkspace) Exists(path string) (bool, error) {
	return directoryExists(path)
}

// DeleteLocal records the deletion without touching the filesystem.
func (workspace *DryRunWorkspace) DeleteLocal(path string) error {
	workspace.record(PlannedOperation{Kind: PlannedDelete, Path: path})
	return nil
}

// Clone records the clone without invoking git.
func (workspace *DryRunWorkspace) Clone(_ context.Context, endpoint string, destination string) error {
	workspace.record(PlannedOperation{Kind: PlannedClone, Path: destination, Endpoint: endpoint})
	return nil
}

// Planned returns the recorded operations in order.
func (workspace *DryRunWorkspace) Planned() []PlannedOperation {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()
	return append([]PlannedOperation(nil), workspace.planned...)
}

func (workspace *DryRunWorkspace) record(operation PlannedOperation) {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()
	workspace.planned = append(workspace.planned, operation)
}
