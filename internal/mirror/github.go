package mirror

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/go-github/v82/github"

	"github.com/temirov/reposync/internal/remote"
)

const githubProviderNameConstant = "github"

// GitHubProvider creates and resolves mirror repositories on a second GitHub account or Enterprise host.
type GitHubProvider struct {
	client *github.Client
	owner  string
	login  string
}

// NewGitHubProvider constructs a GitHubProvider. A non-empty BaseURL selects a GitHub Enterprise API.
func NewGitHubProvider(executionContext context.Context, options ProviderOptions) (*GitHubProvider, error) {
	client, clientError := remote.NewGitHubClient(executionContext, options.Token, options.BaseURL, options.Transport.HTTPClient)
	if clientError != nil {
		return nil, clientError
	}
	return &GitHubProvider{client: client, owner: strings.TrimSpace(options.Owner)}, nil
}

// Name identifies the provider.
func (provider *GitHubProvider) Name() string {
	return githubProviderNameConstant
}

// EnsureRepository looks the repository up under the owner and creates it there when absent.
func (provider *GitHubProvider) EnsureRepository(executionContext context.Context, name string, private bool) (RemoteRepository, error) {
	existing, _, lookupError := provider.client.Repositories.Get(executionContext, provider.owner, name)
	if lookupError == nil {
		return remoteRepository(name, firstNonEmpty(existing.GetSSHURL(), existing.GetCloneURL()), false)
	}
	if !isNotFound(lookupError) {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationLookupConstant, Repository: name, StatusCode: statusOf(lookupError), Cause: lookupError}
	}

	creationOwner, ownerError := provider.creationOwner(executionContext)
	if ownerError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationIdentifyConstant, Repository: name, StatusCode: statusOf(ownerError), Cause: ownerError}
	}

	created, _, createError := provider.client.Repositories.Create(executionContext, creationOwner, &github.Repository{
		Name:    github.Ptr(name),
		Private: github.Ptr(private),
	})
	if createError != nil {
		return RemoteRepository{}, ProviderError{Provider: provider.Name(), Operation: operationCreateConstant, Repository: name, StatusCode: statusOf(createError), Cause: createError}
	}
	return remoteRepository(name, firstNonEmpty(created.GetSSHURL(), created.GetCloneURL()), true)
}

// creationOwner returns "" when the owner is the authenticated account, which go-github maps to
// POST /user/repos; any other owner is created through POST /orgs/{owner}/repos.
func (provider *GitHubProvider) creationOwner(executionContext context.Context) (string, error) {
	if len(provider.login) == 0 {
		authenticated, _, userError := provider.client.Users.Get(executionContext, "")
		if userError != nil {
			return "", userError
		}
		provider.login = authenticated.GetLogin()
	}
	if strings.EqualFold(provider.login, provider.owner) {
		return "", nil
	}
	return provider.owner, nil
}

func isNotFound(requestError error) bool {
	return statusOf(requestError) == http.StatusNotFound
}

func statusOf(requestError error) int {
	var errorResponse *github.ErrorResponse
	if errors.As(requestError, &errorResponse) && errorResponse.Response != nil {
		return errorResponse.Response.StatusCode
	}
	return 0
}
