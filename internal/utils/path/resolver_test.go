package pathutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/reposync/internal/utils/path"
)

func TestResolverResolve(testInstance *testing.T) {
	homeDirectory := filepath.Join(string(os.PathSeparator), "home", "operator")
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "home_only", input: "~", expected: homeDirectory},
		{name: "home_relative", input: "~/backup/repos", expected: filepath.Join(homeDirectory, "backup", "repos")},
		{name: "absolute", input: filepath.Join(string(os.PathSeparator), "srv", "backup"), expected: filepath.Join(string(os.PathSeparator), "srv", "backup")},
		{name: "relative", input: "backup", expected: filepath.Join(workingDirectory, "backup")},
		{name: "user_form_not_expanded", input: "~other/backup", expected: filepath.Join(workingDirectory, "~other", "backup")},
		{name: "trimmed", input: "  ~/inventory.json ", expected: filepath.Join(homeDirectory, "inventory.json")},
	}

	resolver := pathutils.NewResolverWithHome(func() (string, error) {
		return homeDirectory, nil
	})
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolved, resolveError := resolver.Resolve("target", testCase.input)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expected, resolved)
		})
	}
}

func TestResolverReportsHomeFailure(testInstance *testing.T) {
	lookupFailure := errors.New("no home")
	resolver := pathutils.NewResolverWithHome(func() (string, error) {
		return "", lookupFailure
	})

	_, resolveError := resolver.Resolve("inventory", "~/inventory.json")
	require.ErrorIs(testInstance, resolveError, lookupFailure)

	var resolutionError pathutils.ResolutionError
	require.ErrorAs(testInstance, resolveError, &resolutionError)
	require.Equal(testInstance, "inventory", resolutionError.Label)
	require.Contains(testInstance, resolveError.Error(), `unable to resolve inventory path "~/inventory.json"`)
}
