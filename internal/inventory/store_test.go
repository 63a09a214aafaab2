package inventory_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/inventory"
)

const (
	testInventoryFileNameConstant = "inventory.json"
	testUsernameConstant          = "octocat"
	testTokenConstant             = "ghp_example"
	testRepositoryNameConstant    = "dotfiles"
	testSSHURLConstant            = "git@github.com:octocat/dotfiles.git"
	testLegacyInventoryConstant   = `{
  "username": "octocat",
  "token": "ghp_example",
  "repos": {
    "dotfiles": {
      "name": "dotfiles",
      "status": {"private": true, "fork": false, "archived": false},
      "date": {"created_at": "2020-01-02T03:04:05Z", "updated_at": "2021-01-02T03:04:05Z"},
      "ssh_url": "git@github.com:octocat/dotfiles.git"
    }
  }
}`
)

func TestStoreLoadMissingFileReturnsEmptyInventory(testInstance *testing.T) {
	store := inventory.NewStore()

	loaded, found, loadError := store.Load(filepath.Join(testInstance.TempDir(), testInventoryFileNameConstant))

	require.NoError(testInstance, loadError)
	require.False(testInstance, found)
	require.NotNil(testInstance, loaded.Repos)
	require.Empty(testInstance, loaded.Repos)
}

func TestStoreLoadReadsLegacyDocument(testInstance *testing.T) {
	inventoryPath := filepath.Join(testInstance.TempDir(), testInventoryFileNameConstant)
	require.NoError(testInstance, os.WriteFile(inventoryPath, []byte(testLegacyInventoryConstant), 0o600))

	loaded, found, loadError := inventory.NewStore().Load(inventoryPath)

	require.NoError(testInstance, loadError)
	require.True(testInstance, found)
	require.Equal(testInstance, testUsernameConstant, loaded.Username)
	require.Equal(testInstance, testTokenConstant, loaded.Token)

	record := loaded.Repos[testRepositoryNameConstant]
	require.True(testInstance, record.Status.Private)
	require.Equal(testInstance, testSSHURLConstant, record.SSHURL)
	require.False(testInstance, record.Keep)
	require.False(testInstance, record.Ignore)
	require.Empty(testInstance, record.IgnoreReason)
	require.Equal(testInstance, 2020, record.Date.CreatedAt.Year())
}

func TestStoreLoadErrors(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "malformed_json", content: "{not json"},
		{name: "unknown_ignore_reason", content: `{"repos": {"a": {"ignore": true, "ignore_reason": "whim"}}}`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			inventoryPath := filepath.Join(testInstance.TempDir(), testInventoryFileNameConstant)
			require.NoError(testInstance, os.WriteFile(inventoryPath, []byte(testCase.content), 0o600))

			_, _, loadError := inventory.NewStore().Load(inventoryPath)

			var typedError inventory.LoadError
			require.ErrorAs(testInstance, loadError, &typedError)
			require.Equal(testInstance, inventoryPath, typedError.Path)
		})
	}
}

func TestStoreRejectsEmptyPath(testInstance *testing.T) {
	store := inventory.NewStore()

	_, _, loadError := store.Load("")
	require.ErrorIs(testInstance, loadError, inventory.ErrInventoryPathRequired)
	require.ErrorIs(testInstance, store.Save("", inventory.NewInventory()), inventory.ErrInventoryPathRequired)
}

func TestStoreSaveWritesIndentedDocumentAndRoundTrips(testInstance *testing.T) {
	inventoryDirectory := testInstance.TempDir()
	inventoryPath := filepath.Join(inventoryDirectory, "nested", testInventoryFileNameConstant)

	descriptor := inventory.RepoDescriptor{
		Name:   testRepositoryNameConstant,
		Status: inventory.RepoStatus{Fork: true},
		Date:   inventory.RepoDates{CreatedAt: time.Date(2022, 5, 6, 7, 8, 9, 0, time.UTC)},
		SSHURL: testSSHURLConstant,
	}
	original := inventory.Inventory{
		Username: testUsernameConstant,
		Token:    testTokenConstant,
		Repos: map[string]inventory.RepoRecord{
			testRepositoryNameConstant: inventory.IgnoredRecord(descriptor, inventory.IgnoreReasonCloneFailed),
		},
	}

	store := inventory.NewStore()
	require.NoError(testInstance, store.Save(inventoryPath, original))

	content, readError := os.ReadFile(inventoryPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(content), "\n  \"username\": \"octocat\"")
	require.Contains(testInstance, string(content), "\"ignore_reason\": \"clone_failed\"")

	var generic map[string]any
	require.NoError(testInstance, json.Unmarshal(content, &generic))
	require.ElementsMatch(testInstance, []string{"username", "token", "repos"}, keys(generic))

	reloaded, found, loadError := store.Load(inventoryPath)
	require.NoError(testInstance, loadError)
	require.True(testInstance, found)
	require.Equal(testInstance, original, reloaded)

	directoryEntries, listError := os.ReadDir(filepath.Dir(inventoryPath))
	require.NoError(testInstance, listError)
	require.Len(testInstance, directoryEntries, 1)
}

func TestStoreSaveOmitsEmptyIgnoreReason(testInstance *testing.T) {
	inventoryPath := filepath.Join(testInstance.TempDir(), testInventoryFileNameConstant)
	document := inventory.NewInventory()
	document.Repos[testRepositoryNameConstant] = inventory.RepoRecord{Keep: true}

	require.NoError(testInstance, inventory.NewStore().Save(inventoryPath, document))

	content, readError := os.ReadFile(inventoryPath)
	require.NoError(testInstance, readError)
	require.NotContains(testInstance, string(content), "ignore_reason")
	require.Contains(testInstance, string(content), "\"name\": \"dotfiles\"")
}

func keys(values map[string]any) []string {
	result := make([]string, 0, len(values))
	for key := range values {
		result = append(result, key)
	}
	return result
}
