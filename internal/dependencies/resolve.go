// Package dependencies resolves the default collaborators shared by the CLI commands.
package dependencies

import (
	"bufio"
	"io"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/workspace"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ResolveLogger returns the provider's logger or a no-op logger.
func ResolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing workspace.GitExecutor, logger *zap.Logger) (workspace.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

type fileDescriptorProvider interface {
	Fd() uintptr
}

// PromptInput is a line-buffered reader that every prompter of one command shares, so no prompter buffers
// answers meant for another. It keeps the file descriptor of a terminal input for no-echo reads.
type PromptInput struct {
	*bufio.Reader
	descriptor fileDescriptorProvider
}

// NewPromptInput wraps input once for sharing between prompters.
func NewPromptInput(input io.Reader) *PromptInput {
	if input == nil {
		return nil
	}
	promptInput := &PromptInput{Reader: bufio.NewReader(input)}
	if descriptor, ok := input.(fileDescriptorProvider); ok {
		promptInput.descriptor = descriptor
	}
	return promptInput
}

// Fd exposes the file descriptor of the wrapped input, or an invalid descriptor when it has none.
func (input *PromptInput) Fd() uintptr {
	if input == nil || input.descriptor == nil {
		return ^uintptr(0)
	}
	return input.descriptor.Fd()
}
