package workspace

import (
	"path/filepath"
	"strings"
)

const (
	currentDirectoryNameConstant = "."
	parentDirectoryNameConstant  = ".."
	forwardSlashConstant         = "/"
	backslashConstant            = `\`
)

// RepositoryPath derives the working-tree directory for a repository name beneath targetRoot.
func RepositoryPath(targetRoot string, name string) (string, error) {
	if len(strings.TrimSpace(targetRoot)) == 0 {
		return "", ErrTargetRootRequired
	}
	if validationError := ValidateName(name); validationError != nil {
		return "", validationError
	}
	return filepath.Join(targetRoot, name), nil
}

// ValidateName rejects names that would escape or collapse the target root.
func ValidateName(name string) error {
	switch {
	case len(strings.TrimSpace(name)) == 0:
		return InvalidNameError{Name: name, Reason: invalidNameEmptyReasonConstant}
	case name == currentDirectoryNameConstant || name == parentDirectoryNameConstant:
		return InvalidNameError{Name: name, Reason: invalidNameParentReferenceReasonConstant}
	case strings.Contains(name, forwardSlashConstant) || strings.Contains(name, backslashConstant) || strings.ContainsRune(name, filepath.Separator):
		return InvalidNameError{Name: name, Reason: invalidNameSeparatorReasonConstant}
	default:
		return nil
	}
}
