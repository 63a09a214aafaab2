package inventory

import (
	"fmt"
	"strings"
	"time"
)

const (
	ignoreReasonDeclinedConstant          = "declined"
	ignoreReasonPolicyConstant            = "policy"
	ignoreReasonCloneFailedConstant       = "clone_failed"
	ignoreReasonOperatorConstant          = "operator"
	unsupportedIgnoreReasonTemplate       = "unsupported ignore reason %q"
	repositoryNotInInventoryErrorTemplate = "repository %q is not present in the inventory"
)

// RepoStatus captures the visibility and lifecycle flags reported by the hosting provider.
type RepoStatus struct {
	Private  bool `json:"private"`
	Fork     bool `json:"fork"`
	Archived bool `json:"archived"`
}

// RepoDates captures informational provider timestamps.
type RepoDates struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RepoDescriptor is the normalized view of a remote repository produced on every fetch.
type RepoDescriptor struct {
	Name   string     `json:"name"`
	Status RepoStatus `json:"status"`
	Date   RepoDates  `json:"date"`
	SSHURL string     `json:"ssh_url"`
}

// IgnoreReason records why a repository was excluded from clone, fetch, and mirror actions.
type IgnoreReason string

// Known ignore reasons.
const (
	IgnoreReasonDeclined    IgnoreReason = IgnoreReason(ignoreReasonDeclinedConstant)
	IgnoreReasonPolicy      IgnoreReason = IgnoreReason(ignoreReasonPolicyConstant)
	IgnoreReasonCloneFailed IgnoreReason = IgnoreReason(ignoreReasonCloneFailedConstant)
	IgnoreReasonOperator    IgnoreReason = IgnoreReason(ignoreReasonOperatorConstant)
)

// UnmarshalText accepts known reasons and the empty string written by older inventories.
func (reason *IgnoreReason) UnmarshalText(text []byte) error {
	candidate := IgnoreReason(strings.TrimSpace(string(text)))
	switch candidate {
	case "", IgnoreReasonDeclined, IgnoreReasonPolicy, IgnoreReasonCloneFailed, IgnoreReasonOperator:
		*reason = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedIgnoreReasonTemplate, string(text))
	}
}

// RepoRecord is the persisted form of a repository, extending the descriptor with policy flags.
// Keep applies only to repositories absent remotely; Ignore only to repositories present remotely.
// Absences counts consecutive passes that deferred an automatic deletion of the local clone.
type RepoRecord struct {
	RepoDescriptor
	Keep         bool         `json:"keep"`
	Ignore       bool         `json:"ignore"`
	IgnoreReason IgnoreReason `json:"ignore_reason,omitempty"`
	Absences     int          `json:"absences,omitempty"`
}

// NewRecord builds an active record for a descriptor with both policy flags cleared.
func NewRecord(descriptor RepoDescriptor) RepoRecord {
	return RepoRecord{RepoDescriptor: descriptor}
}

// IgnoredRecord builds a record excluded from further actions for the supplied reason.
func IgnoredRecord(descriptor RepoDescriptor, reason IgnoreReason) RepoRecord {
	return RepoRecord{RepoDescriptor: descriptor, Ignore: true, IgnoreReason: reason}
}

// WithDescriptor returns a copy of the record with descriptor fields refreshed and policy flags preserved.
// The absence count is cleared because the repository is listed remotely again.
func (record RepoRecord) WithDescriptor(descriptor RepoDescriptor) RepoRecord {
	record.RepoDescriptor = descriptor
	record.Absences = 0
	return record
}

// Inventory is the persisted document holding account credentials and known repositories.
type Inventory struct {
	Username string                `json:"username"`
	Token    string                `json:"token"`
	Repos    map[string]RepoRecord `json:"repos"`
}

// NewInventory returns an empty inventory with an initialized repository map.
func NewInventory() Inventory {
	return Inventory{Repos: map[string]RepoRecord{}}
}

// HasCredentials reports whether both the username and token are present.
func (inventory Inventory) HasCredentials() bool {
	return len(strings.TrimSpace(inventory.Username)) > 0 && len(strings.TrimSpace(inventory.Token)) > 0
}

// RepositoryNotFoundError reports an operation that referenced an unknown repository name.
type RepositoryNotFoundError struct {
	Name string
}

// Error describes the missing repository.
func (notFoundError RepositoryNotFoundError) Error() string {
	return fmt.Sprintf(repositoryNotInInventoryErrorTemplate, notFoundError.Name)
}

// Unignore clears the ignore flag and reason so the next sync reconsiders the repository.
func (inventory Inventory) Unignore(name string) (Inventory, error) {
	record, exists := inventory.Repos[name]
	if !exists {
		return inventory, RepositoryNotFoundError{Name: name}
	}

	updatedRepos := make(map[string]RepoRecord, len(inventory.Repos))
	for existingName, existingRecord := range inventory.Repos {
		updatedRepos[existingName] = existingRecord
	}
	record.Ignore = false
	record.IgnoreReason = ""
	updatedRepos[name] = record

	inventory.Repos = updatedRepos
	return inventory, nil
}

// Ignore marks the repository as excluded at the operator's request.
func (inventory Inventory) Ignore(name string) (Inventory, error) {
	record, exists := inventory.Repos[name]
	if !exists {
		return inventory, RepositoryNotFoundError{Name: name}
	}

	updatedRepos := make(map[string]RepoRecord, len(inventory.Repos))
	for existingName, existingRecord := range inventory.Repos {
		updatedRepos[existingName] = existingRecord
	}
	record.Ignore = true
	record.IgnoreReason = IgnoreReasonOperator
	updatedRepos[name] = record

	inventory.Repos = updatedRepos
	return inventory, nil
}
