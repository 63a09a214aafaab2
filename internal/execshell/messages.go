package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
)

const (
	gitBranchSubcommandNameConstant   = "branch"
	gitRemotesFlagConstant            = "-r"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitDetachFlagConstant             = "--detach"
	gitPreviousReferenceConstant      = "-"
	gitFetchSubcommandNameConstant    = "fetch"
	gitCloneSubcommandNameConstant    = "clone"
	gitPushSubcommandNameConstant     = "push"
	gitMirrorFlagConstant             = "--mirror"
	gitRevParseSubcommandNameConstant = "rev-parse"
)

const (
	gitListRemoteBranchesStartTemplateConstant            = "Listing remote-tracking branches in %s"
	gitListRemoteBranchesSuccessTemplateConstant          = "Listed remote-tracking branches in %s"
	gitListRemoteBranchesFailureTemplateConstant          = "Failed to list remote-tracking branches in %s (exit code %d%s)"
	gitListRemoteBranchesExecutionFailureTemplateConstant = "Unable to list remote-tracking branches in %s: %s"
	gitDetachStartTemplateConstant                        = "Detaching HEAD in %s"
	gitDetachSuccessTemplateConstant                      = "Detached HEAD in %s"
	gitDetachFailureTemplateConstant                      = "Failed to detach HEAD in %s (exit code %d%s)"
	gitDetachExecutionFailureTemplateConstant             = "Unable to detach HEAD in %s: %s"
	gitRestoreStartTemplateConstant                       = "Restoring previous branch in %s"
	gitRestoreSuccessTemplateConstant                     = "Restored previous branch in %s"
	gitRestoreFailureTemplateConstant                     = "Failed to restore previous branch in %s (exit code %d%s)"
	gitRestoreExecutionFailureTemplateConstant            = "Unable to restore previous branch in %s: %s"
	gitFetchStartTemplateConstant                         = "Fetching %s from %s in %s"
	gitFetchSuccessTemplateConstant                       = "Fetched %s from %s in %s"
	gitFetchFailureTemplateConstant                       = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant              = "Unable to fetch %s from %s in %s: %s"
	gitCloneStartTemplateConstant                         = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                       = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                       = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant              = "Unable to clone %s into %s: %s"
	gitMirrorPushStartTemplateConstant                    = "Mirroring %s to %s"
	gitMirrorPushSuccessTemplateConstant                  = "Mirrored %s to %s"
	gitMirrorPushFailureTemplateConstant                  = "Failed to mirror %s to %s (exit code %d%s)"
	gitMirrorPushExecutionFailureTemplateConstant         = "Unable to mirror %s to %s: %s"
	gitCurrentBranchStartTemplateConstant                 = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant               = "Identified current branch in %s"
	gitCurrentBranchFailureTemplateConstant               = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant      = "Unable to identify current branch in %s: %s"
)

// stageTemplates groups the four lifecycle templates of a git subcommand.
type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var (
	listRemoteBranchesTemplates = stageTemplates{gitListRemoteBranchesStartTemplateConstant, gitListRemoteBranchesSuccessTemplateConstant, gitListRemoteBranchesFailureTemplateConstant, gitListRemoteBranchesExecutionFailureTemplateConstant}
	detachTemplates             = stageTemplates{gitDetachStartTemplateConstant, gitDetachSuccessTemplateConstant, gitDetachFailureTemplateConstant, gitDetachExecutionFailureTemplateConstant}
	restoreTemplates            = stageTemplates{gitRestoreStartTemplateConstant, gitRestoreSuccessTemplateConstant, gitRestoreFailureTemplateConstant, gitRestoreExecutionFailureTemplateConstant}
	fetchTemplates              = stageTemplates{gitFetchStartTemplateConstant, gitFetchSuccessTemplateConstant, gitFetchFailureTemplateConstant, gitFetchExecutionFailureTemplateConstant}
	cloneTemplates              = stageTemplates{gitCloneStartTemplateConstant, gitCloneSuccessTemplateConstant, gitCloneFailureTemplateConstant, gitCloneExecutionFailureTemplateConstant}
	mirrorPushTemplates         = stageTemplates{gitMirrorPushStartTemplateConstant, gitMirrorPushSuccessTemplateConstant, gitMirrorPushFailureTemplateConstant, gitMirrorPushExecutionFailureTemplateConstant}
	currentBranchTemplates      = stageTemplates{gitCurrentBranchStartTemplateConstant, gitCurrentBranchSuccessTemplateConstant, gitCurrentBranchFailureTemplateConstant, gitCurrentBranchExecutionFailureTemplateConstant}
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch strings.TrimSpace(arguments[0]) {
	case gitBranchSubcommandNameConstant:
		if containsArgument(arguments, gitRemotesFlagConstant) {
			return formatter.formatStage(listRemoteBranchesTemplates, stage, result, failure, workingDirectory)
		}
	case gitCheckoutSubcommandNameConstant:
		if containsArgument(arguments, gitDetachFlagConstant) {
			return formatter.formatStage(detachTemplates, stage, result, failure, workingDirectory)
		}
		if formatter.argumentAtIndex(arguments, 1) == gitPreviousReferenceConstant {
			return formatter.formatStage(restoreTemplates, stage, result, failure, workingDirectory)
		}
	case gitFetchSubcommandNameConstant:
		positional := formatter.positionalArguments(arguments[1:])
		if len(positional) >= 2 {
			return formatter.formatStage(fetchTemplates, stage, result, failure, positional[1], positional[0], workingDirectory)
		}
	case gitCloneSubcommandNameConstant:
		positional := formatter.positionalArguments(arguments[1:])
		if len(positional) >= 2 {
			return formatter.formatStage(cloneTemplates, stage, result, failure, positional[0], positional[1])
		}
	case gitPushSubcommandNameConstant:
		positional := formatter.positionalArguments(arguments[1:])
		if containsArgument(arguments, gitMirrorFlagConstant) && len(positional) >= 1 {
			return formatter.formatStage(mirrorPushTemplates, stage, result, failure, workingDirectory, positional[0])
		}
	case gitRevParseSubcommandNameConstant:
		return formatter.formatStage(currentBranchTemplates, stage, result, failure, workingDirectory)
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) formatStage(templates stageTemplates, stage messageStage, result ExecutionResult, failure error, values ...any) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		failureValues := append(append([]any{}, values...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, failureValues...)
	default:
		failureValues := append(append([]any{}, values...), formatter.describeFailure(failure))
		return fmt.Sprintf(templates.executionFailure, failureValues...)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	return fmt.Sprintf(commandLabelTemplateConstant, describeCommand(command), formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, flagPrefixConstant) {
			continue
		}
		positional = append(positional, trimmedArgument)
	}
	if len(positional) == 0 {
		return []string{fallbackUnknownValueLabelConstant}
	}
	return positional
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
