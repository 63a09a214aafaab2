package mirror_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/internal/mirror"
)

const (
	testMirrorOwnerConstant = "mirror-owner"
	testMirrorTokenConstant = "s3cr3t-token"
)

func fastTransport() mirror.TransportOptions {
	return mirror.TransportOptions{RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond}
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	_ = json.NewEncoder(responseWriter).Encode(payload)
}

func TestGiteeProviderEnsureRepository(testInstance *testing.T) {
	var createdPayloads []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/api/v5/repos/mirror-owner/existing":
			require.Equal(testInstance, testMirrorTokenConstant, request.URL.Query().Get("access_token"))
			writeJSON(responseWriter, http.StatusOK, map[string]any{"name": "existing", "ssh_url": "git@gitee.com:mirror-owner/existing.git"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v5/repos/mirror-owner/missing":
			writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found Project"})
		case request.Method == http.MethodPost && request.URL.Path == "/api/v5/user/repos":
			payload := map[string]any{}
			require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&payload))
			createdPayloads = append(createdPayloads, payload)
			writeJSON(responseWriter, http.StatusCreated, map[string]any{"name": payload["name"], "ssh_url": fmt.Sprintf("git@gitee.com:mirror-owner/%s.git", payload["name"])})
		default:
			writeJSON(responseWriter, http.StatusTeapot, map[string]any{})
		}
	}))
	defer server.Close()

	provider := mirror.NewGiteeProvider(zap.NewNop(), mirror.ProviderOptions{
		BaseURL:   server.URL + "/api/v5/",
		Owner:     testMirrorOwnerConstant,
		Token:     testMirrorTokenConstant,
		Transport: fastTransport(),
	})
	require.Equal(testInstance, "gitee", provider.Name())

	existing, existingError := provider.EnsureRepository(context.Background(), "existing", true)
	require.NoError(testInstance, existingError)
	require.Equal(testInstance, mirror.RemoteRepository{Name: "existing", PushURL: "git@gitee.com:mirror-owner/existing.git"}, existing)
	require.Empty(testInstance, createdPayloads)

	created, createdError := provider.EnsureRepository(context.Background(), "missing", true)
	require.NoError(testInstance, createdError)
	require.Equal(testInstance, mirror.RemoteRepository{Name: "missing", PushURL: "git@gitee.com:mirror-owner/missing.git", Created: true}, created)
	require.Len(testInstance, createdPayloads, 1)
	require.Equal(testInstance, map[string]any{"access_token": testMirrorTokenConstant, "name": "missing", "private": true}, createdPayloads[0])
}

func TestGiteeProviderRetriesServerErrors(testInstance *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if attempts.Add(1) == 1 {
			writeJSON(responseWriter, http.StatusBadGateway, map[string]any{})
			return
		}
		writeJSON(responseWriter, http.StatusOK, map[string]any{"name": "flaky", "ssh_url": "git@gitee.com:mirror-owner/flaky.git"})
	}))
	defer server.Close()

	provider := mirror.NewGiteeProvider(zap.NewNop(), mirror.ProviderOptions{BaseURL: server.URL, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant, Transport: fastTransport()})

	repository, ensureError := provider.EnsureRepository(context.Background(), "flaky", false)
	require.NoError(testInstance, ensureError)
	require.Equal(testInstance, "git@gitee.com:mirror-owner/flaky.git", repository.PushURL)
	require.EqualValues(testInstance, 2, attempts.Load())
}

func TestGiteeProviderReportsRejectedRequests(testInstance *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		writeJSON(responseWriter, http.StatusUnauthorized, map[string]any{"message": "401 Unauthorized: Access token does not exist"})
	}))
	defer server.Close()

	provider := mirror.NewGiteeProvider(zap.NewNop(), mirror.ProviderOptions{BaseURL: server.URL, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant, Transport: fastTransport()})

	_, ensureError := provider.EnsureRepository(context.Background(), "denied", false)

	var providerError mirror.ProviderError
	require.ErrorAs(testInstance, ensureError, &providerError)
	require.Equal(testInstance, http.StatusUnauthorized, providerError.StatusCode)
	require.Equal(testInstance, "lookup", providerError.Operation)
	require.EqualValues(testInstance, 1, attempts.Load())
}

func TestGiteeProviderRedactsTokenFromTransportFailures(testInstance *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	observerCore, observerLogs := observer.New(zapcore.DebugLevel)
	provider := mirror.NewGiteeProvider(zap.New(observerCore), mirror.ProviderOptions{BaseURL: serverURL, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant, Transport: fastTransport()})

	_, ensureError := provider.EnsureRepository(context.Background(), "unreachable", false)

	require.Error(testInstance, ensureError)
	require.NotContains(testInstance, ensureError.Error(), testMirrorTokenConstant)
	require.NotEmpty(testInstance, observerLogs.All())
	for _, entry := range observerLogs.All() {
		require.NotContains(testInstance, entry.Message, testMirrorTokenConstant)
		for _, value := range entry.ContextMap() {
			require.NotContains(testInstance, fmt.Sprint(value), testMirrorTokenConstant)
		}
	}
}

func TestGiteaProviderEnsureRepository(testInstance *testing.T) {
	var created atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "token "+testMirrorTokenConstant, request.Header.Get("Authorization"))
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/api/v1/repos/mirror-owner/project":
			if created.Load() {
				writeJSON(responseWriter, http.StatusOK, map[string]any{"name": "project", "ssh_url": "git@gitea.local:mirror-owner/project.git"})
				return
			}
			writeJSON(responseWriter, http.StatusNotFound, map[string]any{})
		case request.Method == http.MethodPost && request.URL.Path == "/api/v1/user/repos":
			payload := map[string]any{}
			require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&payload))
			require.Equal(testInstance, map[string]any{"name": "project", "private": false}, payload)
			created.Store(true)
			writeJSON(responseWriter, http.StatusCreated, map[string]any{"name": "project", "clone_url": "https://gitea.local/mirror-owner/project.git"})
		default:
			writeJSON(responseWriter, http.StatusTeapot, map[string]any{})
		}
	}))
	defer server.Close()

	provider, creationError := mirror.NewGiteaProvider(zap.NewNop(), mirror.ProviderOptions{BaseURL: server.URL + "/", Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant, Transport: fastTransport()})
	require.NoError(testInstance, creationError)

	first, firstError := provider.EnsureRepository(context.Background(), "project", false)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, mirror.RemoteRepository{Name: "project", PushURL: "https://gitea.local/mirror-owner/project.git", Created: true}, first)

	second, secondError := provider.EnsureRepository(context.Background(), "project", false)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, mirror.RemoteRepository{Name: "project", PushURL: "git@gitea.local:mirror-owner/project.git"}, second)
}

func TestGiteaProviderRequiresBaseURL(testInstance *testing.T) {
	_, creationError := mirror.NewGiteaProvider(zap.NewNop(), mirror.ProviderOptions{Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant})
	require.ErrorIs(testInstance, creationError, mirror.ErrBaseURLRequired)
}

func TestGitHubProviderEnsureRepository(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "Bearer "+testMirrorTokenConstant, request.Header.Get("Authorization"))
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/user":
			writeJSON(responseWriter, http.StatusOK, map[string]any{"login": "Mirror-Owner"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/repos/mirror-owner/present":
			writeJSON(responseWriter, http.StatusOK, map[string]any{"name": "present", "ssh_url": "git@github.example.com:mirror-owner/present.git"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/repos/mirror-owner/absent":
			writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/repos/mirror-owner/forbidden":
			writeJSON(responseWriter, http.StatusForbidden, map[string]any{"message": "Forbidden"})
		case request.Method == http.MethodPost && request.URL.Path == "/api/v3/user/repos":
			payload := map[string]any{}
			require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&payload))
			require.Equal(testInstance, "absent", payload["name"])
			require.Equal(testInstance, true, payload["private"])
			writeJSON(responseWriter, http.StatusCreated, map[string]any{"name": "absent", "ssh_url": "git@github.example.com:mirror-owner/absent.git"})
		default:
			writeJSON(responseWriter, http.StatusTeapot, map[string]any{"message": "unexpected"})
		}
	}))
	defer server.Close()

	provider, creationError := mirror.NewGitHubProvider(context.Background(), mirror.ProviderOptions{BaseURL: server.URL, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant})
	require.NoError(testInstance, creationError)

	present, presentError := provider.EnsureRepository(context.Background(), "present", true)
	require.NoError(testInstance, presentError)
	require.False(testInstance, present.Created)
	require.Equal(testInstance, "git@github.example.com:mirror-owner/present.git", present.PushURL)

	absent, absentError := provider.EnsureRepository(context.Background(), "absent", true)
	require.NoError(testInstance, absentError)
	require.True(testInstance, absent.Created)

	_, forbiddenError := provider.EnsureRepository(context.Background(), "forbidden", true)
	var providerError mirror.ProviderError
	require.ErrorAs(testInstance, forbiddenError, &providerError)
	require.Equal(testInstance, http.StatusForbidden, providerError.StatusCode)
}

func TestGitHubProviderCreatesUnderOrganizationOwner(testInstance *testing.T) {
	var userLookups atomic.Int32
	var organizationCreates atomic.Int32
	created := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/user":
			userLookups.Add(1)
			writeJSON(responseWriter, http.StatusOK, map[string]any{"login": "mirror-bot"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/repos/mirror-org/alpha":
			if created["alpha"] {
				writeJSON(responseWriter, http.StatusOK, map[string]any{"name": "alpha", "ssh_url": "git@github.example.com:mirror-org/alpha.git"})
				return
			}
			writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		case request.Method == http.MethodGet && request.URL.Path == "/api/v3/repos/mirror-org/beta":
			writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		case request.Method == http.MethodPost && request.URL.Path == "/api/v3/orgs/mirror-org/repos":
			organizationCreates.Add(1)
			payload := map[string]any{}
			require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&payload))
			name := fmt.Sprint(payload["name"])
			created[name] = true
			writeJSON(responseWriter, http.StatusCreated, map[string]any{"name": name, "ssh_url": "git@github.example.com:mirror-org/" + name + ".git"})
		default:
			writeJSON(responseWriter, http.StatusTeapot, map[string]any{"message": "unexpected " + request.Method + " " + request.URL.Path})
		}
	}))
	defer server.Close()

	provider, creationError := mirror.NewGitHubProvider(context.Background(), mirror.ProviderOptions{BaseURL: server.URL, Owner: "mirror-org", Token: testMirrorTokenConstant})
	require.NoError(testInstance, creationError)

	first, firstError := provider.EnsureRepository(context.Background(), "alpha", false)
	require.NoError(testInstance, firstError)
	require.True(testInstance, first.Created)
	require.Equal(testInstance, "git@github.example.com:mirror-org/alpha.git", first.PushURL)

	second, secondError := provider.EnsureRepository(context.Background(), "alpha", false)
	require.NoError(testInstance, secondError)
	require.False(testInstance, second.Created)

	_, betaError := provider.EnsureRepository(context.Background(), "beta", true)
	require.NoError(testInstance, betaError)

	require.Equal(testInstance, int32(2), organizationCreates.Load())
	require.Equal(testInstance, int32(1), userLookups.Load())
}

func TestGitHubProviderReportsUnidentifiedAccount(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/v3/user" {
			writeJSON(responseWriter, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
			return
		}
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}))
	defer server.Close()

	provider, creationError := mirror.NewGitHubProvider(context.Background(), mirror.ProviderOptions{BaseURL: server.URL, Owner: "mirror-org", Token: testMirrorTokenConstant})
	require.NoError(testInstance, creationError)

	_, ensureError := provider.EnsureRepository(context.Background(), "alpha", false)
	var providerError mirror.ProviderError
	require.ErrorAs(testInstance, ensureError, &providerError)
	require.Equal(testInstance, "identify", providerError.Operation)
	require.Equal(testInstance, http.StatusUnauthorized, providerError.StatusCode)
}

func TestNewProviderValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		options       mirror.ProviderOptions
		expectedError error
		expectedName  string
	}{
		{name: "missing_token", options: mirror.ProviderOptions{Owner: testMirrorOwnerConstant}, expectedError: mirror.ErrTokenRequired},
		{name: "missing_owner", options: mirror.ProviderOptions{Token: testMirrorTokenConstant}, expectedError: mirror.ErrOwnerRequired},
		{name: "gitea_without_host", options: mirror.ProviderOptions{Kind: mirror.ProviderGitea, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant}, expectedError: mirror.ErrBaseURLRequired},
		{name: "default_is_gitee", options: mirror.ProviderOptions{Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant}, expectedName: "gitee"},
		{name: "gitea", options: mirror.ProviderOptions{Kind: mirror.ProviderGitea, BaseURL: "https://gitea.local", Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant}, expectedName: "gitea"},
		{name: "github", options: mirror.ProviderOptions{Kind: mirror.ProviderGitHub, Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant}, expectedName: "github"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			provider, creationError := mirror.NewProvider(zap.NewNop(), testCase.options)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, creationError, testCase.expectedError)
				require.Nil(testInstance, provider)
				return
			}
			require.NoError(testInstance, creationError)
			require.Equal(testInstance, testCase.expectedName, provider.Name())
		})
	}

	_, unknownError := mirror.NewProvider(zap.NewNop(), mirror.ProviderOptions{Kind: "bitbucket", Owner: testMirrorOwnerConstant, Token: testMirrorTokenConstant})
	require.Error(testInstance, unknownError)
}

func TestProviderKindAndVisibilityParsing(testInstance *testing.T) {
	var kind mirror.ProviderKind
	require.NoError(testInstance, kind.UnmarshalText([]byte(" GitHub ")))
	require.Equal(testInstance, mirror.ProviderGitHub, kind)
	require.Error(testInstance, kind.UnmarshalText([]byte("bitbucket")))

	var visibility mirror.Visibility
	require.NoError(testInstance, visibility.UnmarshalText([]byte("PRIVATE")))
	require.Equal(testInstance, mirror.VisibilityPrivate, visibility)
	require.Error(testInstance, visibility.UnmarshalText([]byte("internal")))

	require.Equal(testInstance, []string{"gitee", "gitea", "github"}, mirror.ProviderChoices())
	require.Equal(testInstance, []string{"source", "private", "public"}, mirror.VisibilityChoices())
}
