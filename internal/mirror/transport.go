package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	// DefaultRetryMax bounds the retries of one provider request.
	DefaultRetryMax = 3
	// DefaultRetryWaitMin is the first backoff interval between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond
	// DefaultRetryWaitMax caps the backoff interval between retries.
	DefaultRetryWaitMax = 5 * time.Second

	contentTypeHeaderConstant      = "Content-Type"
	acceptHeaderConstant           = "Accept"
	jsonContentTypeConstant        = "application/json"
	requestBodyEncodeErrorTemplate = "encode request body: %w"
	responseDecodeErrorTemplate    = "decode response body: %w"
	responseBodyReadErrorTemplate  = "read response body: %w"
)

// TransportOptions tunes the retrying HTTP transport shared by the REST providers.
type TransportOptions struct {
	// HTTPClient is the underlying client; nil uses a pooled default.
	HTTPClient   *http.Client
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// restClient issues JSON requests through go-retryablehttp.
type restClient struct {
	client *retryablehttp.Client
	secret string
}

func newRESTClient(logger *zap.Logger, options TransportOptions, secret string) *restClient {
	client := retryablehttp.NewClient()
	if options.HTTPClient != nil {
		client.HTTPClient = options.HTTPClient
	}
	client.RetryMax = DefaultRetryMax
	if options.RetryMax > 0 {
		client.RetryMax = options.RetryMax
	}
	client.RetryWaitMin = DefaultRetryWaitMin
	if options.RetryWaitMin > 0 {
		client.RetryWaitMin = options.RetryWaitMin
	}
	client.RetryWaitMax = DefaultRetryWaitMax
	if options.RetryWaitMax > 0 {
		client.RetryWaitMax = options.RetryWaitMax
	}
	client.Logger = leveledLogger{logger: logger.Sugar(), secret: secret}
	return &restClient{client: client, secret: secret}
}

// do sends a JSON request and decodes a successful response into target. Non-2xx statuses are returned
// without error so callers can branch on them.
func (client *restClient) do(executionContext context.Context, method string, requestURL string, headers map[string]string, payload any, target any) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, encodeError := json.Marshal(payload)
		if encodeError != nil {
			return 0, fmt.Errorf(requestBodyEncodeErrorTemplate, encodeError)
		}
		body = bytes.NewReader(encoded)
	}

	request, requestError := retryablehttp.NewRequestWithContext(executionContext, method, requestURL, body)
	if requestError != nil {
		return 0, redact(requestError, client.secret)
	}
	request.Header.Set(acceptHeaderConstant, jsonContentTypeConstant)
	if payload != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	}
	for name, value := range headers {
		request.Header.Set(name, value)
	}

	response, responseError := client.client.Do(request)
	if responseError != nil {
		return 0, redact(responseError, client.secret)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices || target == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return response.StatusCode, nil
	}

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return response.StatusCode, fmt.Errorf(responseBodyReadErrorTemplate, redact(readError, client.secret))
	}
	if decodeError := json.Unmarshal(responseBody, target); decodeError != nil {
		return response.StatusCode, fmt.Errorf(responseDecodeErrorTemplate, decodeError)
	}
	return response.StatusCode, nil
}

// leveledLogger routes retryablehttp diagnostics into zap with the access token removed.
type leveledLogger struct {
	logger *zap.SugaredLogger
	secret string
}

func (adapter leveledLogger) Error(message string, keysAndValues ...any) {
	adapter.logger.Errorw(message, adapter.sanitize(keysAndValues)...)
}

func (adapter leveledLogger) Warn(message string, keysAndValues ...any) {
	adapter.logger.Warnw(message, adapter.sanitize(keysAndValues)...)
}

func (adapter leveledLogger) Info(message string, keysAndValues ...any) {
	adapter.logger.Debugw(message, adapter.sanitize(keysAndValues)...)
}

func (adapter leveledLogger) Debug(message string, keysAndValues ...any) {
	adapter.logger.Debugw(message, adapter.sanitize(keysAndValues)...)
}

func (adapter leveledLogger) sanitize(keysAndValues []any) []any {
	sanitized := make([]any, len(keysAndValues))
	for index, value := range keysAndValues {
		switch typed := value.(type) {
		case string:
			sanitized[index] = redactSecret(typed, adapter.secret)
		case fmt.Stringer:
			sanitized[index] = redactSecret(typed.String(), adapter.secret)
		case error:
			sanitized[index] = redactSecret(typed.Error(), adapter.secret)
		default:
			sanitized[index] = value
		}
	}
	return sanitized
}

func redactSecret(text string, secret string) string {
	if len(secret) == 0 {
		return text
	}
	return strings.ReplaceAll(text, secret, redactedSecretReplacementConstant)
}
