package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/inventory"
)

func TestMergeDisjointRejectsSharedKeys(testInstance *testing.T) {
	first := map[string]inventory.RepoRecord{"a": {}}
	second := map[string]inventory.RepoRecord{"b": {}}
	third := map[string]inventory.RepoRecord{"a": {Keep: true}}
	excluded := map[string]inventory.RepoRecord{"c": {Absences: 1}}

	merged, mergeError := mergeDisjoint(first, second, excluded)
	require.NoError(testInstance, mergeError)
	require.Len(testInstance, merged, 3)
	require.Equal(testInstance, 1, merged["c"].Absences)

	_, mergeError = mergeDisjoint(first, second, excluded, third)
	require.ErrorAs(testInstance, mergeError, &DisjointnessError{})
	require.EqualError(testInstance, mergeError, `repository "a" produced by more than one reconciliation pass`)
}
