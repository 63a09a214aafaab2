package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
)

const (
	gitCloneSubcommandConstant                  = "clone"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	parentDirectoryPermissionsConstant          = fs.FileMode(0o755)
	logMessageDeletedDirectoryConstant          = "Deleted repository directory"
	logMessageClonedRepositoryConstant          = "Cloned repository"
	logFieldPathConstant                        = "path"
	logFieldEndpointConstant                    = "endpoint"
)

// GitExecutor runs git commands with explicit working directories.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies enumerates the collaborators required by OSWorkspace.
type Dependencies struct {
	GitExecutor GitExecutor
	Logger      *zap.Logger
}

// OSWorkspace performs directory checks, deletions, and clones on the local filesystem.
type OSWorkspace struct {
	executor GitExecutor
	logger   *zap.Logger
}

// NewOSWorkspace constructs an OSWorkspace.
func NewOSWorkspace(dependencies Dependencies) (*OSWorkspace, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OSWorkspace{executor: dependencies.GitExecutor, logger: logger}, nil
}

// Exists reports whether a directory is materialized at path.
func (workspace *OSWorkspace) Exists(path string) (bool, error) {
	return directoryExists(path)
}

// DeleteLocal recursively removes the directory at path.
func (workspace *OSWorkspace) DeleteLocal(path string) error {
	if removeError := os.RemoveAll(path); removeError != nil {
		return IOError{Path: path, Cause: removeError}
	}
	workspace.logger.Info(logMessageDeletedDirectoryConstant, zap.String(logFieldPathConstant, path))
	return nil
}

// Clone runs git clone for endpoint into destination, refusing to overwrite an existing entry.
func (workspace *OSWorkspace) Clone(executionContext context.Context, endpoint string, destination string) error {
	if _, statError := os.Lstat(destination); statError == nil {
		return CloneError{Endpoint: endpoint, Destination: destination, Cause: ErrDestinationExists}
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return CloneError{Endpoint: endpoint, Destination: destination, Cause: statError}
	}

	parentDirectory := filepath.Dir(destination)
	if mkdirError := os.MkdirAll(parentDirectory, parentDirectoryPermissionsConstant); mkdirError != nil {
		return CloneError{Endpoint: endpoint, Destination: destination, Cause: mkdirError}
	}

	_, executionError := workspace.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCloneSubcommandConstant, endpoint, destination},
		WorkingDirectory: parentDirectory,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
	if executionError != nil {
		return CloneError{Endpoint: endpoint, Destination: destination, Cause: executionError}
	}

	workspace.logger.Info(logMessageClonedRepositoryConstant,
		zap.String(logFieldEndpointConstant, endpoint),
		zap.String(logFieldPathConstant, destination),
	)
	return nil
}

func directoryExists(path string) (bool, error) {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, IOError{Path: path, Cause: statError}
	}
	return fileInfo.IsDir(), nil
}
