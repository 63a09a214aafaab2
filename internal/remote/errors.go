package remote

import (
	"errors"
	"fmt"
)

const (
	authErrorTemplateConstant             = "GitHub rejected the credentials for %s (HTTP %d): %s"
	transientErrorTemplateConstant        = "GitHub request failed: %s"
	protocolErrorTemplateConstant         = "unexpected GitHub response: %s"
	protocolErrorWithCauseTemplate        = "unexpected GitHub response: %s: %s"
	accountRequiredMessageConstant        = "account must be provided"
	loggerNotConfiguredMessageConstant    = "remote fetcher logger not configured"
	protocolMissingTotalReasonConstant    = "search result is missing total_count"
	protocolMissingNameReasonConstant     = "repository without a name"
	protocolMissingEndpointReasonTemplate = "repository %q has no clone URL"
	protocolDuplicateReasonTemplate       = "repository %q listed more than once"
	protocolUndecodableReasonConstant     = "response body could not be decoded"
	protocolRejectedReasonTemplate        = "request rejected with HTTP %d"
	incompleteResultsMessageConstant      = "search results reported as incomplete"
)

var (
	// ErrAccountRequired indicates an empty account identifier.
	ErrAccountRequired = errors.New(accountRequiredMessageConstant)
	// ErrLoggerNotConfigured indicates the fetcher was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrIncompleteResults indicates GitHub served a partial search result, usually after an internal timeout.
	ErrIncompleteResults = errors.New(incompleteResultsMessageConstant)
)

// AuthError reports a rejected credential. It is fatal for the run.
type AuthError struct {
	Account    string
	StatusCode int
	Cause      error
}

// Error describes the rejected credential.
func (authError AuthError) Error() string {
	return fmt.Sprintf(authErrorTemplateConstant, authError.Account, authError.StatusCode, authError.Cause)
}

// Unwrap exposes the underlying cause.
func (authError AuthError) Unwrap() error {
	return authError.Cause
}

// TransientNetworkError reports a connectivity failure, server error, or rate limit. Re-running may succeed.
type TransientNetworkError struct {
	Cause error
}

// Error describes the transient failure.
func (transientError TransientNetworkError) Error() string {
	return fmt.Sprintf(transientErrorTemplateConstant, transientError.Cause)
}

// Unwrap exposes the underlying cause.
func (transientError TransientNetworkError) Unwrap() error {
	return transientError.Cause
}

// ProtocolError reports a response whose shape the fetcher cannot use.
type ProtocolError struct {
	Reason string
	Cause  error
}

// Error describes the unexpected response.
func (protocolError ProtocolError) Error() string {
	if protocolError.Cause == nil {
		return fmt.Sprintf(protocolErrorTemplateConstant, protocolError.Reason)
	}
	return fmt.Sprintf(protocolErrorWithCauseTemplate, protocolError.Reason, protocolError.Cause)
}

// Unwrap exposes the underlying cause.
func (protocolError ProtocolError) Unwrap() error {
	return protocolError.Cause
}
