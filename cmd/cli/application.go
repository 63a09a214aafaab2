package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/reposync/cmd/cli/inventorycmd"
	"github.com/temirov/reposync/cmd/cli/mirrorcmd"
	"github.com/temirov/reposync/cmd/cli/synccmd"
	"github.com/temirov/reposync/internal/utils"
)

const (
	applicationNameConstant                 = "reposync"
	applicationShortDescriptionConstant     = "Keep a local backup of a GitHub account's repositories in sync"
	applicationLongDescriptionConstant      = "reposync reconciles a local directory of git clones with the repositories owned by a GitHub account, fetches every remote branch, and can mirror the clones to a secondary git host."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the reposync version and exit."
	versionOutputTemplateConstant           = "%s version: %s\n"
	developmentVersionConstant              = "dev"
	buildInfoDevelopmentVersionConstant     = "(devel)"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "REPOSYNC"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build %s command: %w"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryConstant      = "reposync"
)

// Version is the release version, set at build time with -ldflags "-X github.com/temirov/reposync/cmd/cli.Version=...".
var Version = developmentVersionConstant

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Sync   synccmd.CommandConfiguration   `mapstructure:"sync"`
	Mirror mirrorcmd.CommandConfiguration `mapstructure:"mirror"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  utils.LogLevel  `mapstructure:"log_level"`
	LogFormat utils.LogFormat `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	versionFlagValue       bool
	commandContextAccessor utils.CommandContextAccessor
	versionResolver        func(context.Context) string
	exitFunction           func(int)
	buildErrors            []error
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, userConfigurationDirectory+string(os.PathSeparator)+userConfigurationDirectoryConstant)
	}
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		searchPaths,
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		versionResolver:        resolveVersion,
		exitFunction:           os.Exit,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.versionFlagValue {
				application.printVersion(command)
				return nil
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlagValue, versionFlagNameConstant, false, versionFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	syncBuilder := synccmd.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() synccmd.CommandConfiguration {
			return application.configuration.Sync
		},
	}
	application.addCommand(cobraCommand, syncBuilder.Build)

	mirrorBuilder := mirrorcmd.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() mirrorcmd.CommandConfiguration {
			return application.configuration.Mirror
		},
	}
	application.addCommand(cobraCommand, mirrorBuilder.Build)

	inventoryBuilder := inventorycmd.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() inventorycmd.CommandConfiguration {
			return inventorycmd.CommandConfiguration{Inventory: application.configuration.Sync.Inventory}
		},
	}
	application.addCommand(cobraCommand, inventoryBuilder.Build)

	application.rootCommand = cobraCommand

	return application
}

func (application *Application) addCommand(rootCommand *cobra.Command, build func() (*cobra.Command, error)) {
	subcommand, buildError := build()
	if buildError != nil {
		application.buildErrors = append(application.buildErrors, buildError)
		return
	}
	rootCommand.AddCommand(subcommand)
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	return application.ExecuteContext(context.Background())
}

// ExecuteContext runs the command hierarchy with the provided parent context.
func (application *Application) ExecuteContext(parentContext context.Context) error {
	if len(application.buildErrors) > 0 {
		return fmt.Errorf(commandBuildErrorTemplateConstant, applicationNameConstant, errors.Join(application.buildErrors...))
	}
	executionError := application.rootCommand.ExecuteContext(parentContext)
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy. SIGINT and SIGTERM
// cancel the running pass; a scheduled sync stops after its current pass.
func Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	return NewApplication().ExecuteContext(signalContext)
}

func (application *Application) printVersion(command *cobra.Command) {
	_, _ = fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(command.Context()))
	application.exitFunction(0)
}

func resolveVersion(context.Context) string {
	if len(Version) > 0 && Version != developmentVersionConstant {
		return Version
	}
	if buildInformation, available := debug.ReadBuildInfo(); available {
		if moduleVersion := buildInformation.Main.Version; len(moduleVersion) > 0 && moduleVersion != buildInfoDevelopmentVersionConstant {
			return moduleVersion
		}
	}
	return developmentVersionConstant
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		if parseError := application.configuration.Common.LogLevel.UnmarshalText([]byte(application.logLevelFlagValue)); parseError != nil {
			return fmt.Errorf(loggerCreationErrorTemplateConstant, parseError)
		}
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		if parseError := application.configuration.Common.LogFormat.UnmarshalText([]byte(application.logFormatFlagValue)); parseError != nil {
			return fmt.Errorf(loggerCreationErrorTemplateConstant, parseError)
		}
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		application.configuration.Common.LogLevel,
		application.configuration.Common.LogFormat,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	runIdentifier := utils.NewRunIdentifier()
	application.logger = utils.WithRunIdentifier(logger, runIdentifier)

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(application.configuration.Common.LogLevel)),
		zap.String(configurationLogFormatFieldConstant, string(application.configuration.Common.LogFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithRunIdentifier(updatedContext, runIdentifier)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
