package mirror

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultGiteeBaseURL is the public gitee API root.
	DefaultGiteeBaseURL = "https://gitee.com/api/v5"

	giteeProviderNameConstant        = "gitee"
	giteeRepositoryPathTemplate      = "%s/repos/%s/%s"
	giteeCreatePathTemplate          = "%s/user/repos"
	giteeAccessTokenParameter        = "access_token"
	logMessageMirrorCreatedConstant  = "Created mirror repository"
	logFieldProviderConstant         = "provider"
	logFieldMirrorRepositoryConstant = "repository"
)

type giteeRepository struct {
	Name   string `json:"name"`
	SSHURL string `json:"ssh_url"`
}

type giteeCreateRequest struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Private     bool   `json:"private"`
}

// GiteeProvider creates and resolves repositories through the gitee v5 API.
type GiteeProvider struct {
	client  *restClient
	logger  *zap.Logger
	baseURL string
	owner   string
	token   string
}

// NewGiteeProvider constructs a GiteeProvider. An empty BaseURL selects DefaultGiteeBaseURL.
func NewGiteeProvider(logger *zap.Logger, options ProviderOptions) *GiteeProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(baseURL) == 0 {
		baseURL = DefaultGiteeBaseURL
	}
	token := strings.TrimSpace(options.Token)
	return &GiteeProvider{
		client:  newRESTClient(logger, options.Transport, token),
		logger:  logger,
		baseURL: baseURL,
		owner:   strings.TrimSpace(options.Owner),
		token:   token,
	}
}

// Name identifies the provider.
func (provider *GiteeProvider) Name() string {
	return giteeProviderNameConstant
}

// EnsureRepository looks the repository up and creates it under the authenticated user when absent.
func (provider *GiteeProvider) EnsureRepository(executionContext context.Context, name string, private bool) (RemoteRepository, error) {
	var existing giteeRepository
	lookupURL := formatURL(giteeRepositoryPathTemplate, provider.baseURL, url.PathEscape(provider.owner), url.PathEscape(name)) +
		"?" + url.Values{giteeAccessTokenParameter: []string{provider.token}}.Encode()

	statusCode, lookupError := provider.client.do(executionContext, http.MethodGet, lookupURL, nil, nil, &existing)
	if lookupError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationLookupConstant, Repository: name, StatusCode: statusCode, Cause: lookupError}
	}
	if statusCode == http.StatusOK {
		return remoteRepository(name, existing.SSHURL, false)
	}
	if statusCode != http.StatusNotFound {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationLookupConstant, Repository: name, StatusCode: statusCode}
	}

	var created giteeRepository
	createURL := formatURL(giteeCreatePathTemplate, provider.baseURL)
	statusCode, createError := provider.client.do(executionContext, http.MethodPost, createURL, nil, giteeCreateRequest{
		AccessToken: provider.token,
		Name:        name,
		Private:     private,
	}, &created)
	if createError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationCreateConstant, Repository: name, StatusCode: statusCode, Cause: createError}
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationCreateConstant, Repository: name, StatusCode: statusCode}
	}

	provider.logger.Info(logMessageMirrorCreatedConstant,
		zap.String(logFieldProviderConstant, provider.Name()),
		zap.String(logFieldMirrorRepositoryConstant, name),
	)
	return remoteRepository(name, created.SSHURL, true)
}
