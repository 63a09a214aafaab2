// Package githubauth locates GitHub API tokens supplied through the environment.
package githubauth

import "strings"

// Environment variables consulted for a GitHub token, in order of preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
)

// EnvironmentLookup reads one environment variable; os.LookupEnv satisfies it.
type EnvironmentLookup func(key string) (string, bool)

var tokenPreference = []string{EnvGitHubCLIToken, EnvGitHubToken}

// TokenFromEnvironment returns the first non-blank token among the preferred variables.
func TokenFromEnvironment(lookup EnvironmentLookup) (string, bool) {
	if lookup == nil {
		return "", false
	}
	for _, key := range tokenPreference {
		value, exists := lookup(key)
		if !exists {
			continue
		}
		if trimmed := strings.TrimSpace(value); len(trimmed) > 0 {
			return trimmed, true
		}
	}
	return "", false
}
