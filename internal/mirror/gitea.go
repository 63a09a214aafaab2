package mirror

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	giteaProviderNameConstant   = "gitea"
	giteaAPISuffixConstant      = "/api/v1"
	giteaRepositoryPathTemplate = "%s/repos/%s/%s"
	giteaCreatePathTemplate     = "%s/user/repos"
	authorizationHeaderConstant = "Authorization"
	giteaAuthorizationTemplate  = "token %s"
)

type giteaRepository struct {
	Name     string `json:"name"`
	SSHURL   string `json:"ssh_url"`
	CloneURL string `json:"clone_url"`
}

type giteaCreateRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

// GiteaProvider creates and resolves repositories on a self-hosted gitea instance.
type GiteaProvider struct {
	client  *restClient
	logger  *zap.Logger
	baseURL string
	owner   string
	token   string
}

// NewGiteaProvider constructs a GiteaProvider. BaseURL is the instance host; /api/v1 is appended when missing.
func NewGiteaProvider(logger *zap.Logger, options ProviderOptions) (*GiteaProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, ErrBaseURLRequired
	}
	if !strings.HasSuffix(baseURL, giteaAPISuffixConstant) {
		baseURL += giteaAPISuffixConstant
	}
	token := strings.TrimSpace(options.Token)
	return &GiteaProvider{
		client:  newRESTClient(logger, options.Transport, token),
		logger:  logger,
		baseURL: baseURL,
		owner:   strings.TrimSpace(options.Owner),
		token:   token,
	}, nil
}

// Name identifies the provider.
func (provider *GiteaProvider) Name() string {
	return giteaProviderNameConstant
}

// EnsureRepository looks the repository up and creates it under the authenticated user when absent.
func (provider *GiteaProvider) EnsureRepository(executionContext context.Context, name string, private bool) (RemoteRepository, error) {
	headers := map[string]string{authorizationHeaderConstant: fmt.Sprintf(giteaAuthorizationTemplate, provider.token)}

	var existing giteaRepository
	lookupURL := formatURL(giteaRepositoryPathTemplate, provider.baseURL, url.PathEscape(provider.owner), url.PathEscape(name))
	statusCode, lookupError := provider.client.do(executionContext, http.MethodGet, lookupURL, headers, nil, &existing)
	if lookupError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationLookupConstant, Repository: name, StatusCode: statusCode, Cause: lookupError}
	}
	if statusCode == http.StatusOK {
		return remoteRepository(name, firstNonEmpty(existing.SSHURL, existing.CloneURL), false)
	}
	if statusCode != http.StatusNotFound {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationLookupConstant, Repository: name, StatusCode: statusCode}
	}

	var created giteaRepository
	createURL := formatURL(giteaCreatePathTemplate, provider.baseURL)
	statusCode, createError := provider.client.do(executionContext, http.MethodPost, createURL, headers, giteaCreateRequest{Name: name, Private: private}, &created)
	if createError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationCreateConstant, Repository: name, StatusCode: statusCode, Cause: createError}
	}
	if statusCode != http.StatusCreated && statusCode != http.StatusOK {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationCreateConstant, Repository: name, StatusCode: statusCode}
	}

	provider.logger.Info(logMessageMirrorCreatedConstant,
		zap.String(logFieldProviderConstant, provider.Name()),
		zap.String(logFieldMirrorRepositoryConstant, name),
	)
	return remoteRepository(name, firstNonEmpty(created.SSHURL, created.CloneURL), true)
}
