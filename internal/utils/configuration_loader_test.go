package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/utils"
)

const (
	testEnvironmentPrefixConstant = "REPOSYNCTEST"
	testConfigurationName         = "config"
	testConfigurationType         = "yaml"
	testEmbeddedConfiguration     = "common:\n  log_level: info\nsync:\n  target: .\n  clone: ask\n  allow: []\n"
)

type loaderFixture struct {
	Common loaderCommonFixture `mapstructure:"common"`
	Sync   loaderSyncFixture   `mapstructure:"sync"`
}

type loaderCommonFixture struct {
	LogLevel utils.LogLevel `mapstructure:"log_level"`
}

type loaderSyncFixture struct {
	Target string     `mapstructure:"target"`
	Clone  cloneValue `mapstructure:"clone"`
	Allow  []string   `mapstructure:"allow"`
}

// cloneValue accepts only the spellings the sync command understands.
type cloneValue string

func (value *cloneValue) UnmarshalText(text []byte) error {
	switch candidate := strings.TrimSpace(string(text)); candidate {
	case "ask", "all", "none":
		*value = cloneValue(candidate)
		return nil
	default:
		return fmt.Errorf("unsupported clone policy %q", candidate)
	}
}

func newTestLoader(searchPath string) *utils.ConfigurationLoader {
	loader := utils.NewConfigurationLoader(testConfigurationName, testConfigurationType, testEnvironmentPrefixConstant, []string{searchPath})
	loader.SetEmbeddedConfiguration([]byte(testEmbeddedConfiguration), testConfigurationType)
	return loader
}

func writeConfigurationFile(testInstance *testing.T, directory string, content string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(directory, testConfigurationName+"."+testConfigurationType)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o600))
	return configurationPath
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileContent   string
		explicitFile  bool
		environment   map[string]string
		expectedLevel utils.LogLevel
		expectedClone cloneValue
		expectedAllow []string
		expectFile    bool
	}{
		{
			name:          "embedded_defaults",
			expectedLevel: utils.LogLevelInfo,
			expectedClone: "ask",
			expectedAllow: []string{},
		},
		{
			name:          "search_path_file_overrides_embedded",
			fileContent:   "sync:\n  clone: all\n  allow:\n    - ^octocat/\n",
			expectedLevel: utils.LogLevelInfo,
			expectedClone: "all",
			expectedAllow: []string{"^octocat/"},
			expectFile:    true,
		},
		{
			name:          "explicit_file",
			fileContent:   "common:\n  log_level: warn\n",
			explicitFile:  true,
			expectedLevel: utils.LogLevelWarn,
			expectedClone: "ask",
			expectedAllow: []string{},
			expectFile:    true,
		},
		{
			name:        "environment_overrides_file",
			fileContent: "sync:\n  clone: all\n",
			environment: map[string]string{
				testEnvironmentPrefixConstant + "_SYNC_CLONE":       "none",
				testEnvironmentPrefixConstant + "_COMMON_LOG_LEVEL": "debug",
				testEnvironmentPrefixConstant + "_SYNC_ALLOW":       "^a/,^b/",
			},
			expectedLevel: utils.LogLevelDebug,
			expectedClone: "none",
			expectedAllow: []string{"^a/", "^b/"},
			expectFile:    true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testInstance.TempDir()
			explicitPath := ""
			if len(testCase.fileContent) > 0 {
				writtenPath := writeConfigurationFile(testInstance, directory, testCase.fileContent)
				if testCase.explicitFile {
					explicitPath = writtenPath
				}
			}
			for key, value := range testCase.environment {
				testInstance.Setenv(key, value)
			}

			searchPath := directory
			if testCase.explicitFile {
				searchPath = testInstance.TempDir()
			}

			var configuration loaderFixture
			loaded, loadError := newTestLoader(searchPath).LoadConfiguration(explicitPath, map[string]any{"sync.target": "."}, &configuration)
			require.NoError(testInstance, loadError)

			require.Equal(testInstance, testCase.expectedLevel, configuration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedClone, configuration.Sync.Clone)
			require.ElementsMatch(testInstance, testCase.expectedAllow, configuration.Sync.Allow)
			require.Equal(testInstance, ".", configuration.Sync.Target)
			if testCase.expectFile {
				require.NotEmpty(testInstance, loaded.ConfigFileUsed)
			} else {
				require.Empty(testInstance, loaded.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderRejectsInvalidValues(testInstance *testing.T) {
	testCases := []struct {
		name        string
		fileContent string
		message     string
	}{
		{name: "log_level", fileContent: "common:\n  log_level: chatty\n", message: "chatty"},
		{name: "clone_policy", fileContent: "sync:\n  clone: sometimes\n", message: "sometimes"},
		{name: "malformed_yaml", fileContent: "sync: [unterminated\n", message: "failed to read configuration"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testInstance.TempDir()
			configurationPath := writeConfigurationFile(testInstance, directory, testCase.fileContent)

			var configuration loaderFixture
			_, loadError := newTestLoader(directory).LoadConfiguration(configurationPath, nil, &configuration)
			require.Error(testInstance, loadError)
			require.Contains(testInstance, loadError.Error(), testCase.message)
		})
	}
}

func TestConfigurationLoaderMissingExplicitFile(testInstance *testing.T) {
	var configuration loaderFixture
	_, loadError := newTestLoader(testInstance.TempDir()).LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"), nil, &configuration)
	require.Error(testInstance, loadError)
}

func TestConfigurationLoaderAppliesCustomDecodeHook(testInstance *testing.T) {
	loader := newTestLoader(testInstance.TempDir())
	loader.AddDecodeHook(mapstructure.DecodeHookFuncType(func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if text, isText := data.(string); isText && text == "." {
			return "/srv/backup", nil
		}
		return data, nil
	}))

	var configuration loaderFixture
	_, loadError := loader.LoadConfiguration("", nil, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "/srv/backup", configuration.Sync.Target)
}
