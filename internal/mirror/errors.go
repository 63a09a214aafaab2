package mirror

import (
	"errors"
	"fmt"
)

const (
	tokenRequiredMessageConstant          = "mirror token must be provided"
	ownerRequiredMessageConstant          = "mirror owner must be provided"
	baseURLRequiredMessageConstant        = "mirror provider requires a base URL"
	pushURLMissingMessageConstant         = "provider returned no push URL"
	providerMissingMessageConstant        = "mirror provider not configured"
	gitExecutorMissingMessageConstant     = "mirror git executor not configured"
	workspaceMissingMessageConstant       = "mirror workspace not configured"
	targetRootMissingMessageConstant      = "mirror target root must be provided"
	providerErrorTemplateConstant         = "%s: %s %s failed: %s"
	providerStatusErrorTemplateConstant   = "%s: %s %s failed with HTTP %d"
	pushErrorTemplateConstant             = "push of %s to mirror failed: %s"
	redactedSecretReplacementConstant     = "[redacted]"
	unsupportedProviderTemplateConstant   = "unsupported mirror provider %q (expected gitee, gitea or github)"
	unsupportedVisibilityTemplateConstant = "unsupported mirror visibility %q (expected source, private or public)"
	operationLookupConstant               = "lookup"
	operationCreateConstant               = "create"
	operationIdentifyConstant             = "identify"
)

var (
	// ErrTokenRequired indicates the provider was configured without an access token.
	ErrTokenRequired = errors.New(tokenRequiredMessageConstant)
	// ErrOwnerRequired indicates the provider was configured without an owner.
	ErrOwnerRequired = errors.New(ownerRequiredMessageConstant)
	// ErrBaseURLRequired indicates a self-hosted provider without a host.
	ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)
	// ErrPushURLMissing indicates the provider response carried no usable push URL.
	ErrPushURLMissing = errors.New(pushURLMissingMessageConstant)
	// ErrProviderNotConfigured indicates a Pusher without a Provider.
	ErrProviderNotConfigured = errors.New(providerMissingMessageConstant)
	// ErrGitExecutorNotConfigured indicates a Pusher without a git executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	// ErrWorkspaceNotConfigured indicates a Pusher without a directory checker.
	ErrWorkspaceNotConfigured = errors.New(workspaceMissingMessageConstant)
	// ErrTargetRootRequired indicates a Pusher without a target root.
	ErrTargetRootRequired = errors.New(targetRootMissingMessageConstant)
)

// ProviderError reports a failed lookup or creation on the mirror provider.
type ProviderError struct {
	Provider   string
	Operation  string
	Repository string
	StatusCode int
	Cause      error
}

// Error describes the provider failure.
func (providerError ProviderError) Error() string {
	if providerError.Cause == nil {
		return fmt.Sprintf(providerStatusErrorTemplateConstant, providerError.Provider, providerError.Operation, providerError.Repository, providerError.StatusCode)
	}
	return fmt.Sprintf(providerErrorTemplateConstant, providerError.Provider, providerError.Operation, providerError.Repository, providerError.Cause)
}

// Unwrap exposes the underlying cause.
func (providerError ProviderError) Unwrap() error {
	return providerError.Cause
}

// PushError reports a failed git push --mirror.
type PushError struct {
	Repository string
	Cause      error
}

// Error describes the push failure.
func (pushError PushError) Error() string {
	return fmt.Sprintf(pushErrorTemplateConstant, pushError.Repository, pushError.Cause)
}

// Unwrap exposes the underlying cause.
func (pushError PushError) Unwrap() error {
	return pushError.Cause
}

// redactedError hides a secret that a transport error may echo through a request URL.
type redactedError struct {
	cause  error
	secret string
}

func redact(cause error, secret string) error {
	if cause == nil || len(secret) == 0 {
		return cause
	}
	return redactedError{cause: cause, secret: secret}
}

func (secretError redactedError) Error() string {
	return redactSecret(secretError.cause.Error(), secretError.secret)
}

func (secretError redactedError) Unwrap() error {
	return secretError.cause
}
