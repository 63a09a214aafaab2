// Package pathutils resolves user-supplied filesystem paths.
package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	homeShortcutConstant    = "~"
	resolutionErrorTemplate = "unable to resolve %s path %q: %v"
)

// ErrHomeDirectoryUnavailable indicates the home directory lookup returned an empty path.
var ErrHomeDirectoryUnavailable = errors.New("home directory unavailable")

// HomeDirectoryProvider returns the current user's home directory.
type HomeDirectoryProvider func() (string, error)

// ResolutionError reports a path that could not be made absolute.
type ResolutionError struct {
	Label string
	Path  string
	Cause error
}

// Error describes the failed resolution.
func (resolutionError ResolutionError) Error() string {
	return fmt.Sprintf(resolutionErrorTemplate, resolutionError.Label, resolutionError.Path, resolutionError.Cause)
}

// Unwrap exposes the underlying cause.
func (resolutionError ResolutionError) Unwrap() error {
	return resolutionError.Cause
}

// Resolver expands a leading ~ and makes paths absolute against the working directory.
type Resolver struct {
	homeDirectory HomeDirectoryProvider
}

// NewResolver constructs a Resolver backed by os.UserHomeDir.
func NewResolver() Resolver {
	return Resolver{homeDirectory: os.UserHomeDir}
}

// NewResolverWithHome constructs a Resolver with a custom home directory lookup.
func NewResolverWithHome(provider HomeDirectoryProvider) Resolver {
	if provider == nil {
		return NewResolver()
	}
	return Resolver{homeDirectory: provider}
}

// Resolve returns the absolute, cleaned form of candidate. Label names the path in errors.
// Only "~" and "~/..." are expanded; "~user" forms are left to the shell.
func (resolver Resolver) Resolve(label string, candidate string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	expanded := trimmed
	if trimmed == homeShortcutConstant || strings.HasPrefix(trimmed, homeShortcutConstant+"/") || strings.HasPrefix(trimmed, homeShortcutConstant+string(os.PathSeparator)) {
		homeDirectory, homeError := resolver.lookupHome()
		if homeError != nil {
			return "", ResolutionError{Label: label, Path: candidate, Cause: homeError}
		}
		expanded = filepath.Join(homeDirectory, trimmed[len(homeShortcutConstant):])
	}

	absolute, absoluteError := filepath.Abs(expanded)
	if absoluteError != nil {
		return "", ResolutionError{Label: label, Path: candidate, Cause: absoluteError}
	}
	return absolute, nil
}

func (resolver Resolver) lookupHome() (string, error) {
	lookup := resolver.homeDirectory
	if lookup == nil {
		lookup = os.UserHomeDir
	}
	homeDirectory, homeError := lookup()
	if homeError != nil {
		return "", homeError
	}
	if len(strings.TrimSpace(homeDirectory)) == 0 {
		return "", ErrHomeDirectoryUnavailable
	}
	return homeDirectory, nil
}
