package decision

import "context"

// Provider answers the questions reconciliation asks about individual repositories.
type Provider interface {
	ConfirmDelete(executionContext context.Context, name string, path string) (bool, error)
	ConfirmKeep(executionContext context.Context, name string, path string) (bool, error)
	ConfirmClone(executionContext context.Context, name string, endpoint string) (bool, error)
}
