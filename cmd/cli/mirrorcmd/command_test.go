package mirrorcmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/reposync/cmd/cli/mirrorcmd"
	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/mirror"
)

const (
	testAccountConstant     = "octocat"
	testMirrorTokenConstant = "mirror-token"
	testPushURLTemplate     = "git@gitee.com:octocat/%s.git"
)

type stubProvider struct {
	requests map[string]bool
}

func (provider *stubProvider) Name() string {
	return "stub"
}

func (provider *stubProvider) EnsureRepository(_ context.Context, name string, private bool) (mirror.RemoteRepository, error) {
	provider.requests[name] = private
	return mirror.RemoteRepository{Name: name, PushURL: strings.ReplaceAll(testPushURLTemplate, "%s", name)}, nil
}

type recordingGitExecutor struct {
	invocations []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.invocations = append(executor.invocations, details)
	return execshell.ExecutionResult{}, nil
}

type mirrorFixture struct {
	targetRoot      string
	inventoryPath   string
	provider        *stubProvider
	providerOptions []mirror.ProviderOptions
	executor        *recordingGitExecutor
	output          *bytes.Buffer
}

func newMirrorFixture(testInstance *testing.T) *mirrorFixture {
	testInstance.Helper()
	workingDirectory := testInstance.TempDir()
	return &mirrorFixture{
		targetRoot:    filepath.Join(workingDirectory, "backup"),
		inventoryPath: filepath.Join(workingDirectory, "inventory.json"),
		provider:      &stubProvider{requests: map[string]bool{}},
		executor:      &recordingGitExecutor{},
		output:        &bytes.Buffer{},
	}
}

func (fixture *mirrorFixture) seed(testInstance *testing.T) {
	testInstance.Helper()
	seeded := inventory.NewInventory()
	seeded.Username = testAccountConstant
	seeded.Token = "github-token"
	seeded.Repos["alpha"] = inventory.NewRecord(inventory.RepoDescriptor{Name: "alpha", Status: inventory.RepoStatus{Private: true}})
	seeded.Repos["beta"] = inventory.NewRecord(inventory.RepoDescriptor{Name: "beta"})
	seeded.Repos["gamma"] = inventory.IgnoredRecord(inventory.RepoDescriptor{Name: "gamma"}, inventory.IgnoreReasonOperator)
	require.NoError(testInstance, inventory.NewStore().Save(fixture.inventoryPath, seeded))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(fixture.targetRoot, "alpha"), 0o755))
}

func (fixture *mirrorFixture) execute(testInstance *testing.T, arguments ...string) error {
	testInstance.Helper()
	builder := mirrorcmd.CommandBuilder{
		LoggerProvider:  func() *zap.Logger { return zap.NewNop() },
		GitExecutor:     fixture.executor,
		ProviderFactory: func(_ *zap.Logger, options mirror.ProviderOptions) (mirror.Provider, error) {
			fixture.providerOptions = append(fixture.providerOptions, options)
			if len(options.Token) == 0 {
				return nil, mirror.ErrTokenRequired
			}
			return fixture.provider, nil
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetOut(fixture.output)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(append([]string{"--target", fixture.targetRoot, "--inventory", fixture.inventoryPath}, arguments...))
	return command.Execute()
}

func TestMirrorPushesExistingClones(testInstance *testing.T) {
	fixture := newMirrorFixture(testInstance)
	fixture.seed(testInstance)

	executionError := fixture.execute(testInstance, "--mirror-token", testMirrorTokenConstant)
	require.NoError(testInstance, executionError)

	require.Len(testInstance, fixture.providerOptions, 1)
	require.Equal(testInstance, mirror.ProviderGitee, fixture.providerOptions[0].Kind)
	require.Equal(testInstance, testAccountConstant, fixture.providerOptions[0].Owner)
	require.Equal(testInstance, testMirrorTokenConstant, fixture.providerOptions[0].Token)

	require.Equal(testInstance, map[string]bool{"alpha": true, "beta": false}, fixture.provider.requests)
	require.Len(testInstance, fixture.executor.invocations, 1)
	require.Equal(testInstance, []string{"push", "--mirror", "git@gitee.com:octocat/alpha.git"}, fixture.executor.invocations[0].Arguments)
	require.Equal(testInstance, filepath.Join(fixture.targetRoot, "alpha"), fixture.executor.invocations[0].WorkingDirectory)

	rendered := fixture.output.String()
	require.Contains(testInstance, rendered, "PUSHED: alpha (pushed)")
	require.Contains(testInstance, rendered, "SKIPPED: beta (no local clone)")
	require.NotContains(testInstance, rendered, "gamma")
	require.Contains(testInstance, rendered, "mirror summary:")
}

func TestMirrorFlagsOverrideProviderOptions(testInstance *testing.T) {
	fixture := newMirrorFixture(testInstance)
	fixture.seed(testInstance)

	executionError := fixture.execute(testInstance,
		"--provider", "gitea",
		"--mirror-token", testMirrorTokenConstant,
		"--mirror-owner", "mirrors",
		"--mirror-url", "https://git.example.com",
		"--visibility", "public",
	)
	require.NoError(testInstance, executionError)

	require.Len(testInstance, fixture.providerOptions, 1)
	require.Equal(testInstance, mirror.ProviderGitea, fixture.providerOptions[0].Kind)
	require.Equal(testInstance, "mirrors", fixture.providerOptions[0].Owner)
	require.Equal(testInstance, "https://git.example.com", fixture.providerOptions[0].BaseURL)
	require.Equal(testInstance, map[string]bool{"alpha": false, "beta": false}, fixture.provider.requests)
}

func TestMirrorFailsFast(testInstance *testing.T) {
	testCases := []struct {
		name      string
		seed      bool
		arguments []string
		expected  error
		message   string
	}{
		{name: "missing_inventory", seed: false, arguments: []string{"--mirror-token", testMirrorTokenConstant}, expected: mirrorcmd.ErrInventoryMissing},
		{name: "missing_token", seed: true, expected: mirror.ErrTokenRequired},
		{name: "unknown_provider", seed: true, arguments: []string{"--provider", "bitbucket"}, message: "bitbucket"},
		{name: "unknown_visibility", seed: true, arguments: []string{"--visibility", "internal"}, message: "internal"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newMirrorFixture(testInstance)
			if testCase.seed {
				fixture.seed(testInstance)
			}

			executionError := fixture.execute(testInstance, testCase.arguments...)
			require.Error(testInstance, executionError)
			if testCase.expected != nil {
				require.ErrorIs(testInstance, executionError, testCase.expected)
			}
			if len(testCase.message) > 0 {
				require.Contains(testInstance, executionError.Error(), testCase.message)
			}
			require.Empty(testInstance, fixture.executor.invocations)
			require.Empty(testInstance, fixture.provider.requests)
		})
	}
}
