package execshell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const helperProcessEnvironmentName = "REPOSYNC_EXECSHELL_HELPER"

// TestHelperProcess is re-executed by the runner tests as a fake child process.
func TestHelperProcess(t *testing.T) {
	mode, enabled := os.LookupEnv(helperProcessEnvironmentName)
	if !enabled {
		return
	}
	switch mode {
	case "echo":
		workingDirectory, _ := os.Getwd()
		fmt.Fprintf(os.Stdout, "cwd=%s\nprompt=%s\n", workingDirectory, os.Getenv("GIT_TERMINAL_PROMPT"))
		os.Exit(0)
	case "stdin":
		input, _ := io.ReadAll(os.Stdin)
		fmt.Fprint(os.Stdout, strings.ToUpper(string(input)))
		os.Exit(0)
	case "fail":
		fmt.Fprint(os.Stderr, "fatal: repository not found")
		os.Exit(128)
	}
	os.Exit(2)
}

func helperCommand(mode string, workingDirectory string, input []byte) ShellCommand {
	return ShellCommand{
		Name: CommandName(os.Args[0]),
		Details: CommandDetails{
			Arguments:        []string{"-test.run=TestHelperProcess"},
			WorkingDirectory: workingDirectory,
			EnvironmentVariables: map[string]string{
				helperProcessEnvironmentName: mode,
				"GIT_TERMINAL_PROMPT":        "0",
			},
			StandardInput: input,
		},
	}
}

func TestOSCommandRunnerCapturesOutput(t *testing.T) {
	workingDirectory := t.TempDir()

	result, runError := NewOSCommandRunner().Run(context.Background(), helperCommand("echo", workingDirectory, nil))
	require.NoError(t, runError)
	require.Equal(t, 0, result.ExitCode)
	require.Contains(t, result.StandardOutput, "prompt=0\n")
	require.Contains(t, result.StandardOutput, "cwd=")
}

func TestOSCommandRunnerPassesStandardInput(t *testing.T) {
	result, runError := NewOSCommandRunner().Run(context.Background(), helperCommand("stdin", t.TempDir(), []byte("mirror")))
	require.NoError(t, runError)
	require.Equal(t, "MIRROR", result.StandardOutput)
}

func TestOSCommandRunnerReportsExitCode(t *testing.T) {
	result, runError := NewOSCommandRunner().Run(context.Background(), helperCommand("fail", t.TempDir(), nil))
	require.NoError(t, runError)
	require.Equal(t, 128, result.ExitCode)
	require.Equal(t, "fatal: repository not found", result.StandardError)
}

func TestOSCommandRunnerReportsCancellation(t *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := NewOSCommandRunner().Run(cancelledContext, helperCommand("echo", t.TempDir(), nil))
	require.ErrorIs(t, runError, context.Canceled)
}

func TestOSCommandRunnerMissingExecutable(t *testing.T) {
	_, runError := NewOSCommandRunner().Run(context.Background(), ShellCommand{Name: CommandName("reposync-missing-executable")})
	require.Error(t, runError)
}

func TestMergeEnvironmentOverridesInheritedValues(t *testing.T) {
	merged := mergeEnvironment(
		[]string{"PATH=/usr/bin", "GIT_TERMINAL_PROMPT=1", "HOME=/home/operator"},
		map[string]string{"GIT_TERMINAL_PROMPT": "0", "GIT_ASKPASS": "true"},
	)
	require.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/operator", "GIT_ASKPASS=true", "GIT_TERMINAL_PROMPT=0"}, merged)
	require.Nil(t, mergeEnvironment([]string{"PATH=/usr/bin"}, nil))
}
