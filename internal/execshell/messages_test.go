package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandMessageFormatterDescribesGitSubcommands(t *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		stage           messageStage
		result          ExecutionResult
		failure         error
		expectedMessage string
	}{
		{
			name:            "FetchStart",
			arguments:       []string{"fetch", "origin", "feature/login"},
			stage:           messageStageStart,
			expectedMessage: "Fetching feature/login from origin in /workspace/repo",
		},
		{
			name:            "FetchFailureIncludesStandardError",
			arguments:       []string{"fetch", "origin", "gone"},
			stage:           messageStageFailure,
			result:          ExecutionResult{ExitCode: 128, StandardError: "couldn't find remote ref gone\n"},
			expectedMessage: "Failed to fetch gone from origin in /workspace/repo (exit code 128: couldn't find remote ref gone)",
		},
		{
			name:            "DetachSuccess",
			arguments:       []string{"checkout", "--detach"},
			stage:           messageStageSuccess,
			expectedMessage: "Detached HEAD in /workspace/repo",
		},
		{
			name:            "RestoreExecutionFailure",
			arguments:       []string{"checkout", "-"},
			stage:           messageStageExecutionFailure,
			failure:         errors.New("signal: killed"),
			expectedMessage: "Unable to restore previous branch in /workspace/repo: signal: killed",
		},
		{
			name:            "ListRemoteBranches",
			arguments:       []string{"branch", "-r"},
			stage:           messageStageStart,
			expectedMessage: "Listing remote-tracking branches in /workspace/repo",
		},
		{
			name:            "Clone",
			arguments:       []string{"clone", "git@github.com:octo/widget.git", "/workspace/widget"},
			stage:           messageStageSuccess,
			expectedMessage: "Cloned git@github.com:octo/widget.git into /workspace/widget",
		},
		{
			name:            "MirrorPush",
			arguments:       []string{"push", "--mirror", "git@gitee.com:octo/widget.git"},
			stage:           messageStageStart,
			expectedMessage: "Mirroring /workspace/repo to git@gitee.com:octo/widget.git",
		},
		{
			name:            "UnknownSubcommandFallsBackToGenericLabel",
			arguments:       []string{"gc", "--auto"},
			stage:           messageStageStart,
			expectedMessage: "Running git gc --auto (in /workspace/repo)",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			formatter := CommandMessageFormatter{}
			command := ShellCommand{
				Name: CommandGit,
				Details: CommandDetails{
					Arguments:        testCase.arguments,
					WorkingDirectory: "/workspace/repo",
				},
			}
			require.Equal(t, testCase.expectedMessage, formatter.buildMessage(command, testCase.result, testCase.failure, testCase.stage))
		})
	}
}

func TestCommandMessageFormatterLabelsMissingWorkingDirectory(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"checkout", "--detach"}}}

	require.Equal(t, "Detaching HEAD in current directory", formatter.BuildStartedMessage(command))
}
