package decision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	deletePromptTemplateConstant = "Delete %s? (y/n): "
	keepPromptTemplateConstant   = "Keep %s and stop asking about it? (y/n): "
	clonePromptTemplateConstant  = "Clone %s? (y/n): "
	affirmativeShortConstant     = "y"
	affirmativeLongConstant      = "yes"
	promptInputMissingMessage    = "prompt input not configured"
	promptInputClosedMessage     = "prompt input closed"
)

var (
	// ErrPromptInputNotConfigured indicates the interactive provider has no input source.
	ErrPromptInputNotConfigured = errors.New(promptInputMissingMessage)
	// ErrPromptInputClosed indicates the input reached end of file before an answer was read.
	ErrPromptInputClosed = errors.New(promptInputClosedMessage)
)

// Interactive asks the operator on a terminal. Prompts are serialized so only one question is pending.
type Interactive struct {
	mutex  sync.Mutex
	reader lineReader
	writer io.Writer
}

type lineReader interface {
	ReadString(delimiter byte) (string, error)
}

// NewInteractive constructs an Interactive provider reading answers from input and writing prompts to output.
// Input that already reads whole lines is used as is so it can be shared with other prompters.
func NewInteractive(input io.Reader, output io.Writer) *Interactive {
	provider := &Interactive{writer: output}
	if sharedReader, ok := input.(lineReader); ok {
		provider.reader = sharedReader
	} else if input != nil {
		provider.reader = bufio.NewReader(input)
	}
	return provider
}

// ConfirmDelete asks whether the untracked directory at path should be removed.
func (provider *Interactive) ConfirmDelete(executionContext context.Context, _ string, path string) (bool, error) {
	return provider.confirm(executionContext, fmt.Sprintf(deletePromptTemplateConstant, path))
}

// ConfirmKeep asks whether the untracked directory at path should be kept permanently.
func (provider *Interactive) ConfirmKeep(executionContext context.Context, _ string, path string) (bool, error) {
	return provider.confirm(executionContext, fmt.Sprintf(keepPromptTemplateConstant, path))
}

// ConfirmClone asks whether the repository at endpoint should be cloned.
func (provider *Interactive) ConfirmClone(executionContext context.Context, _ string, endpoint string) (bool, error) {
	return provider.confirm(executionContext, fmt.Sprintf(clonePromptTemplateConstant, endpoint))
}

// confirm writes the prompt and interprets affirmative responses (y/yes); anything else declines.
func (provider *Interactive) confirm(executionContext context.Context, prompt string) (bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return false, contextError
	}
	if provider.reader == nil {
		return false, ErrPromptInputNotConfigured
	}

	provider.mutex.Lock()
	defer provider.mutex.Unlock()

	if provider.writer != nil {
		if _, writeError := io.WriteString(provider.writer, prompt); writeError != nil {
			return false, writeError
		}
	}

	response, readError := provider.reader.ReadString('\n')
	if readError != nil {
		if !errors.Is(readError, io.EOF) {
			return false, readError
		}
		if len(response) == 0 {
			return false, ErrPromptInputClosed
		}
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case affirmativeShortConstant, affirmativeLongConstant:
		return true, nil
	default:
		return false, nil
	}
}
