package branches

import (
	"errors"
	"fmt"
	"strings"
)

const (
	remoteBranchSeparatorConstant        = "/"
	currentBranchMarkerConstant          = "*"
	symbolicReferenceArrowConstant       = "->"
	headReferenceNameConstant            = "HEAD"
	symbolicReferenceMessageConstant     = "symbolic reference"
	malformedBranchErrorTemplateConstant = "malformed remote branch %q: %s"
	malformedEmptyReasonConstant         = "line is empty"
	malformedSeparatorReasonConstant     = "missing remote separator"
	malformedRemoteReasonConstant        = "remote name is empty"
	malformedBranchReasonConstant        = "branch name is empty"
)

// ErrSymbolicReference marks a `git branch -r` line that aliases another ref, such as origin/HEAD.
var ErrSymbolicReference = errors.New(symbolicReferenceMessageConstant)

// RemoteBranch identifies a remote-tracking branch.
type RemoteBranch struct {
	Remote string
	Branch string
}

// String renders the branch as remote/branch.
func (remoteBranch RemoteBranch) String() string {
	return remoteBranch.Remote + remoteBranchSeparatorConstant + remoteBranch.Branch
}

// MalformedBranchError reports a line that cannot be split into remote and branch parts.
type MalformedBranchError struct {
	Line   string
	Reason string
}

// Error describes the malformed line.
func (malformedError MalformedBranchError) Error() string {
	return fmt.Sprintf(malformedBranchErrorTemplateConstant, malformedError.Line, malformedError.Reason)
}

// ParseRemoteBranch splits a remote-tracking branch line on the first separator only, so
// origin/feature/login yields remote origin and branch feature/login.
func ParseRemoteBranch(line string) (RemoteBranch, error) {
	trimmedLine := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), currentBranchMarkerConstant))
	if len(trimmedLine) == 0 {
		return RemoteBranch{}, MalformedBranchError{Line: line, Reason: malformedEmptyReasonConstant}
	}
	if strings.Contains(trimmedLine, symbolicReferenceArrowConstant) {
		return RemoteBranch{}, ErrSymbolicReference
	}

	remoteName, branchName, separatorFound := strings.Cut(trimmedLine, remoteBranchSeparatorConstant)
	if !separatorFound {
		return RemoteBranch{}, MalformedBranchError{Line: line, Reason: malformedSeparatorReasonConstant}
	}
	if len(remoteName) == 0 {
		return RemoteBranch{}, MalformedBranchError{Line: line, Reason: malformedRemoteReasonConstant}
	}
	if len(branchName) == 0 {
		return RemoteBranch{}, MalformedBranchError{Line: line, Reason: malformedBranchReasonConstant}
	}
	if branchName == headReferenceNameConstant {
		return RemoteBranch{}, ErrSymbolicReference
	}

	return RemoteBranch{Remote: remoteName, Branch: branchName}, nil
}

// ParseRemoteBranchList parses `git branch -r` output, dropping symbolic aliases and blank lines.
// Malformed lines are returned separately so callers can report them.
func ParseRemoteBranchList(output string) ([]RemoteBranch, []error) {
	var parsedBranches []RemoteBranch
	var parseErrors []error
	for _, line := range strings.Split(output, "\n") {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		remoteBranch, parseError := ParseRemoteBranch(line)
		if errors.Is(parseError, ErrSymbolicReference) {
			continue
		}
		if parseError != nil {
			parseErrors = append(parseErrors, parseError)
			continue
		}
		parsedBranches = append(parsedBranches, remoteBranch)
	}
	return parsedBranches, parseErrors
}
