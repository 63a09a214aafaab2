package workspace

import (
	"errors"
	"fmt"
)

const (
	invalidNameErrorTemplateConstant         = "invalid repository name %q: %s"
	ioErrorTemplateConstant                  = "filesystem operation on %s failed: %s"
	cloneErrorTemplateConstant               = "failed to clone %s into %s: %s"
	destinationExistsMessageConstant         = "destination already exists"
	gitExecutorMissingMessageConstant        = "git executor not configured"
	targetRootRequiredMessageConstant        = "target root must be provided"
	invalidNameEmptyReasonConstant           = "name is empty"
	invalidNameSeparatorReasonConstant       = "name contains a path separator"
	invalidNameParentReferenceReasonConstant = "name refers to a parent or current directory"
)

// ErrGitExecutorNotConfigured indicates the workspace was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrTargetRootRequired indicates an empty target root was supplied.
var ErrTargetRootRequired = errors.New(targetRootRequiredMessageConstant)

// ErrDestinationExists indicates a clone destination is already occupied.
var ErrDestinationExists = errors.New(destinationExistsMessageConstant)

// InvalidNameError reports a repository name that cannot be mapped to a single directory.
type InvalidNameError struct {
	Name   string
	Reason string
}

// Error describes the invalid name.
func (invalidNameError InvalidNameError) Error() string {
	return fmt.Sprintf(invalidNameErrorTemplateConstant, invalidNameError.Name, invalidNameError.Reason)
}

// IOError reports a filesystem operation that failed for a repository directory.
type IOError struct {
	Path  string
	Cause error
}

// Error describes the filesystem failure.
func (ioError IOError) Error() string {
	return fmt.Sprintf(ioErrorTemplateConstant, ioError.Path, ioError.Cause)
}

// Unwrap exposes the underlying cause.
func (ioError IOError) Unwrap() error {
	return ioError.Cause
}

// CloneError reports a clone that could not be completed.
type CloneError struct {
	Endpoint    string
	Destination string
	Cause       error
}

// Error describes the clone failure.
func (cloneError CloneError) Error() string {
	return fmt.Sprintf(cloneErrorTemplateConstant, cloneError.Endpoint, cloneError.Destination, cloneError.Cause)
}

// Unwrap exposes the underlying cause.
func (cloneError CloneError) Unwrap() error {
	return cloneError.Cause
}
