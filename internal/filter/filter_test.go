package filter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/filter"
	"github.com/temirov/reposync/internal/inventory"
)

const (
	testOwnerConstant      = "octocat"
	repositoryNameRegex    = "[a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+"
	publicRepositoryRegex  = repositoryNameRegex + "/0/[01]/[01]"
	privateRepositoryRegex = repositoryNameRegex + "/1/[01]/[01]"
)

func TestIdentity(testInstance *testing.T) {
	descriptor := inventory.RepoDescriptor{Name: "dotfiles", Status: inventory.RepoStatus{Private: true, Archived: true}}
	require.Equal(testInstance, "octocat/dotfiles/1/0/1", filter.Identity(testOwnerConstant, descriptor))
}

func TestRulesExcludes(testInstance *testing.T) {
	testCases := []struct {
		name           string
		allow          []string
		deny           []string
		identity       string
		expectExcluded bool
	}{
		{name: "no_rules", identity: "octocat/a/0/0/0"},
		{name: "deny_private", deny: []string{privateRepositoryRegex}, identity: "octocat/a/1/0/0", expectExcluded: true},
		{name: "deny_does_not_match_public", deny: []string{privateRepositoryRegex}, identity: "octocat/a/0/1/0"},
		{name: "allow_overrides_deny", allow: []string{"^octocat/keepme/"}, deny: []string{".*"}, identity: "octocat/keepme/1/0/0"},
		{name: "deny_everything_else", allow: []string{"^octocat/keepme/"}, deny: []string{".*"}, identity: "octocat/other/0/0/0", expectExcluded: true},
		{name: "allow_alone_excludes_nothing", allow: []string{publicRepositoryRegex}, identity: "octocat/a/1/0/0"},
		{name: "deny_archived_forks", deny: []string{"/[01]/1/1$"}, identity: "octocat/a/0/1/1", expectExcluded: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rules, rulesError := filter.NewRules(testCase.allow, testCase.deny)
			require.NoError(testInstance, rulesError)
			require.Equal(testInstance, testCase.expectExcluded, rules.Excludes(testCase.identity))
		})
	}
}

func TestNewRulesRejectsInvalidPattern(testInstance *testing.T) {
	_, rulesError := filter.NewRules(nil, []string{"("})

	var patternError filter.PatternError
	require.ErrorAs(testInstance, rulesError, &patternError)
	require.Equal(testInstance, "deny", patternError.Kind)
	require.Equal(testInstance, "(", patternError.Pattern)
}

func TestRulesApply(testInstance *testing.T) {
	rules, rulesError := filter.NewRules(nil, []string{privateRepositoryRegex, ""})
	require.NoError(testInstance, rulesError)
	require.False(testInstance, rules.Empty())

	descriptors := map[string]inventory.RepoDescriptor{
		"public":  {Name: "public"},
		"secret":  {Name: "secret", Status: inventory.RepoStatus{Private: true}},
		"secret2": {Name: "secret2", Status: inventory.RepoStatus{Private: true, Fork: true}},
	}

	retained, excluded := rules.Apply(testOwnerConstant, descriptors)

	require.Equal(testInstance, map[string]inventory.RepoDescriptor{"public": {Name: "public"}}, retained)
	require.Equal(testInstance, map[string]inventory.RepoDescriptor{
		"secret":  descriptors["secret"],
		"secret2": descriptors["secret2"],
	}, excluded)
	require.Len(testInstance, descriptors, 3)
}

func TestRulesEmpty(testInstance *testing.T) {
	rules, rulesError := filter.NewRules(nil, []string{""})
	require.NoError(testInstance, rulesError)
	require.True(testInstance, rules.Empty())

	rules, rulesError = filter.NewRules([]string{publicRepositoryRegex}, nil)
	require.NoError(testInstance, rulesError)
	require.False(testInstance, rules.Empty())
}
