package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v82/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/temirov/reposync/internal/inventory"
)

const (
	// DefaultPageSize is the largest page the search API serves.
	DefaultPageSize = 100

	searchQueryTemplateConstant        = "user:%s"
	firstPageConstant                  = 1
	enterpriseUploadPathConstant       = "api/uploads/"
	urlPathSeparatorConstant           = "/"
	enterpriseClientErrorTemplate      = "invalid GitHub API URL %q: %w"
	logMessagePageFetchedConstant      = "Fetched repository page"
	logMessageInventoryFetchedConstant = "Fetched remote inventory"
	logFieldAccountConstant            = "account"
	logFieldPageConstant               = "page"
	logFieldPageItemsConstant          = "items"
	logFieldTotalConstant              = "total"
	logFieldRepositoryCountConstant    = "repositories"
)

// Options configures a Fetcher.
type Options struct {
	// BaseURL selects a GitHub Enterprise API endpoint; empty uses api.github.com.
	BaseURL string
	// PageSize overrides DefaultPageSize.
	PageSize int
	// HTTPClient is the transport wrapped by the token source; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Fetcher pages through the repositories owned by an account.
type Fetcher struct {
	options Options
	logger  *zap.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(logger *zap.Logger, options Options) (*Fetcher, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	return &Fetcher{options: options, logger: logger}, nil
}

// Fetch returns every repository owned by account keyed by name. Paging stops on an empty page or once
// the accumulated count reaches the total declared by the API. A page flagged as incomplete fails the
// whole fetch so callers never reconcile against a partial view.
func (fetcher *Fetcher) Fetch(executionContext context.Context, account string, token string) (map[string]inventory.RepoDescriptor, error) {
	trimmedAccount := strings.TrimSpace(account)
	if len(trimmedAccount) == 0 {
		return nil, ErrAccountRequired
	}

	client, clientError := fetcher.newClient(executionContext, token)
	if clientError != nil {
		return nil, clientError
	}

	query := fmt.Sprintf(searchQueryTemplateConstant, trimmedAccount)
	descriptors := map[string]inventory.RepoDescriptor{}

	for page := firstPageConstant; ; page++ {
		searchResult, _, searchError := client.Search.Repositories(executionContext, query, &github.SearchOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: fetcher.options.PageSize},
		})
		if searchError != nil {
			return nil, classifyError(trimmedAccount, searchError)
		}
		if searchResult == nil || searchResult.Total == nil {
			return nil, ProtocolError{Reason: protocolMissingTotalReasonConstant}
		}
		if searchResult.GetIncompleteResults() {
			return nil, TransientNetworkError{Cause: ErrIncompleteResults}
		}

		fetcher.logger.Debug(logMessagePageFetchedConstant,
			zap.String(logFieldAccountConstant, trimmedAccount),
			zap.Int(logFieldPageConstant, page),
			zap.Int(logFieldPageItemsConstant, len(searchResult.Repositories)),
			zap.Int(logFieldTotalConstant, searchResult.GetTotal()),
		)

		if len(searchResult.Repositories) == 0 {
			break
		}

		for _, repository := range searchResult.Repositories {
			descriptor, descriptorError := normalizeRepository(repository)
			if descriptorError != nil {
				return nil, descriptorError
			}
			if _, duplicate := descriptors[descriptor.Name]; duplicate {
				return nil, ProtocolError{Reason: fmt.Sprintf(protocolDuplicateReasonTemplate, descriptor.Name)}
			}
			descriptors[descriptor.Name] = descriptor
		}

		if len(descriptors) >= searchResult.GetTotal() {
			break
		}
	}

	fetcher.logger.Info(logMessageInventoryFetchedConstant,
		zap.String(logFieldAccountConstant, trimmedAccount),
		zap.Int(logFieldRepositoryCountConstant, len(descriptors)),
	)
	return descriptors, nil
}

func (fetcher *Fetcher) newClient(executionContext context.Context, token string) (*github.Client, error) {
	return NewGitHubClient(executionContext, token, fetcher.options.BaseURL, fetcher.options.HTTPClient)
}

// NewGitHubClient builds a go-github client authenticated with token when one is given. A non-empty baseURL
// selects a GitHub Enterprise API endpoint.
func NewGitHubClient(executionContext context.Context, token string, baseURL string, httpClient *http.Client) (*github.Client, error) {
	if trimmedToken := strings.TrimSpace(token); len(trimmedToken) > 0 {
		tokenContext := executionContext
		if httpClient != nil {
			tokenContext = context.WithValue(executionContext, oauth2.HTTPClient, httpClient)
		}
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken})
		httpClient = oauth2.NewClient(tokenContext, tokenSource)
	}

	client := github.NewClient(httpClient)
	trimmedBaseURL := strings.TrimSpace(baseURL)
	if len(trimmedBaseURL) == 0 {
		return client, nil
	}
	if !strings.HasSuffix(trimmedBaseURL, urlPathSeparatorConstant) {
		trimmedBaseURL += urlPathSeparatorConstant
	}
	enterpriseClient, enterpriseError := client.WithEnterpriseURLs(trimmedBaseURL, trimmedBaseURL+enterpriseUploadPathConstant)
	if enterpriseError != nil {
		return nil, fmt.Errorf(enterpriseClientErrorTemplate, baseURL, enterpriseError)
	}
	return enterpriseClient, nil
}

func normalizeRepository(repository *github.Repository) (inventory.RepoDescriptor, error) {
	name := strings.TrimSpace(repository.GetName())
	if len(name) == 0 {
		return inventory.RepoDescriptor{}, ProtocolError{Reason: protocolMissingNameReasonConstant}
	}
	endpoint := strings.TrimSpace(repository.GetSSHURL())
	if len(endpoint) == 0 {
		endpoint = strings.TrimSpace(repository.GetCloneURL())
	}
	if len(endpoint) == 0 {
		return inventory.RepoDescriptor{}, ProtocolError{Reason: fmt.Sprintf(protocolMissingEndpointReasonTemplate, name)}
	}

	return inventory.RepoDescriptor{
		Name: name,
		Status: inventory.RepoStatus{
			Private:  repository.GetPrivate(),
			Fork:     repository.GetFork(),
			Archived: repository.GetArchived(),
		},
		Date: inventory.RepoDates{
			CreatedAt: repository.GetCreatedAt().Time,
			UpdatedAt: repository.GetUpdatedAt().Time,
		},
		SSHURL: endpoint,
	}, nil
}

func classifyError(account string, searchError error) error {
	if errors.Is(searchError, context.Canceled) || errors.Is(searchError, context.DeadlineExceeded) {
		return searchError
	}

	var rateLimitError *github.RateLimitError
	if errors.As(searchError, &rateLimitError) {
		return TransientNetworkError{Cause: searchError}
	}
	var abuseRateLimitError *github.AbuseRateLimitError
	if errors.As(searchError, &abuseRateLimitError) {
		return TransientNetworkError{Cause: searchError}
	}

	var errorResponse *github.ErrorResponse
	if errors.As(searchError, &errorResponse) && errorResponse.Response != nil {
		statusCode := errorResponse.Response.StatusCode
		switch {
		case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
			return AuthError{Account: account, StatusCode: statusCode, Cause: searchError}
		case statusCode >= http.StatusInternalServerError:
			return TransientNetworkError{Cause: searchError}
		default:
			return ProtocolError{Reason: fmt.Sprintf(protocolRejectedReasonTemplate, statusCode), Cause: searchError}
		}
	}

	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	if errors.As(searchError, &syntaxError) || errors.As(searchError, &typeError) {
		return ProtocolError{Reason: protocolUndecodableReasonConstant, Cause: searchError}
	}

	return TransientNetworkError{Cause: searchError}
}
