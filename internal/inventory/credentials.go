package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

const (
	usernamePromptConstant              = "Please enter your username: "
	tokenPromptConstant                 = "Please enter your token: "
	credentialReadErrorTemplateConstant = "failed to read %s: %w"
	credentialFieldUsernameConstant     = "username"
	credentialFieldTokenConstant        = "token"
	credentialEmptyMessageTemplate      = "%s must not be empty"
	credentialNewlineConstant           = "\n"
)

// ErrCredentialInputNotConfigured indicates the prompter has no input source.
var ErrCredentialInputNotConfigured = errors.New("credential prompter input not configured")

// SecretReader reads a line without echoing it to the terminal.
type SecretReader func(fileDescriptor int) ([]byte, error)

// TerminalDetector reports whether the file descriptor refers to a terminal.
type TerminalDetector func(fileDescriptor int) bool

// LineReader reads newline-terminated input. A *bufio.Reader shared with other prompters satisfies it.
type LineReader interface {
	ReadString(delimiter byte) (string, error)
}

// CredentialPrompter asks for missing account credentials on first run.
type CredentialPrompter struct {
	reader           LineReader
	output           io.Writer
	fileDescriptor   int
	hasDescriptor    bool
	secretReader     SecretReader
	terminalDetector TerminalDetector
}

// fileDescriptorProvider is satisfied by *os.File.
type fileDescriptorProvider interface {
	Fd() uintptr
}

// NewCredentialPrompter constructs a prompter reading from input and writing prompts to output.
// When input is a terminal the token is read without echo.
func NewCredentialPrompter(input io.Reader, output io.Writer) *CredentialPrompter {
	prompter := &CredentialPrompter{
		output:           output,
		secretReader:     term.ReadPassword,
		terminalDetector: term.IsTerminal,
	}
	if lineReader, ok := input.(LineReader); ok {
		prompter.reader = lineReader
	} else if input != nil {
		prompter.reader = bufio.NewReader(input)
	}
	if descriptorProvider, ok := input.(fileDescriptorProvider); ok {
		prompter.fileDescriptor = int(descriptorProvider.Fd())
		prompter.hasDescriptor = true
	}
	return prompter
}

// EnsureCredentials fills missing username and token fields, leaving present values untouched.
func (prompter *CredentialPrompter) EnsureCredentials(inventory Inventory) (Inventory, error) {
	if len(strings.TrimSpace(inventory.Username)) == 0 {
		username, readError := prompter.readVisible(usernamePromptConstant, credentialFieldUsernameConstant)
		if readError != nil {
			return inventory, readError
		}
		inventory.Username = username
	}

	if len(strings.TrimSpace(inventory.Token)) == 0 {
		token, readError := prompter.readSecret(tokenPromptConstant, credentialFieldTokenConstant)
		if readError != nil {
			return inventory, readError
		}
		inventory.Token = token
	}

	if inventory.Repos == nil {
		inventory.Repos = map[string]RepoRecord{}
	}
	return inventory, nil
}

func (prompter *CredentialPrompter) readVisible(prompt string, field string) (string, error) {
	if prompter == nil || prompter.reader == nil {
		return "", ErrCredentialInputNotConfigured
	}
	prompter.writePrompt(prompt)

	line, readError := prompter.reader.ReadString('\n')
	if readError != nil && !(errors.Is(readError, io.EOF) && len(line) > 0) {
		return "", fmt.Errorf(credentialReadErrorTemplateConstant, field, readError)
	}
	return requireValue(strings.TrimSpace(line), field)
}

func (prompter *CredentialPrompter) readSecret(prompt string, field string) (string, error) {
	if prompter == nil || prompter.reader == nil {
		return "", ErrCredentialInputNotConfigured
	}
	if !prompter.hasDescriptor || prompter.terminalDetector == nil || !prompter.terminalDetector(prompter.fileDescriptor) {
		return prompter.readVisible(prompt, field)
	}

	prompter.writePrompt(prompt)
	secret, readError := prompter.secretReader(prompter.fileDescriptor)
	prompter.writePrompt(credentialNewlineConstant)
	if readError != nil {
		return "", fmt.Errorf(credentialReadErrorTemplateConstant, field, readError)
	}
	return requireValue(strings.TrimSpace(string(secret)), field)
}

func (prompter *CredentialPrompter) writePrompt(text string) {
	if prompter.output == nil {
		return
	}
	_, _ = io.WriteString(prompter.output, text)
}

func requireValue(value string, field string) (string, error) {
	if len(value) == 0 {
		return "", fmt.Errorf(credentialEmptyMessageTemplate, field)
	}
	return value, nil
}
