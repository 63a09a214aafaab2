package mirrorcmd

import (
	"strings"

	"github.com/temirov/reposync/internal/inventory"
	"github.com/temirov/reposync/internal/mirror"
)

const defaultTargetConstant = "."

// CommandConfiguration captures persistent settings for the mirror command.
type CommandConfiguration struct {
	Target     string              `mapstructure:"target"`
	Inventory  string              `mapstructure:"inventory"`
	Provider   mirror.ProviderKind `mapstructure:"provider"`
	Token      string              `mapstructure:"token"`
	Owner      string              `mapstructure:"owner"`
	URL        string              `mapstructure:"url"`
	Visibility mirror.Visibility   `mapstructure:"visibility"`
	Report     string              `mapstructure:"report"`
}

// DefaultCommandConfiguration returns baseline configuration values for the mirror command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Target:     defaultTargetConstant,
		Inventory:  inventory.DefaultInventoryFileName,
		Provider:   mirror.ProviderGitee,
		Visibility: mirror.VisibilitySource,
	}
}

// Sanitize trims whitespace and applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Target = strings.TrimSpace(configuration.Target)
	if len(sanitized.Target) == 0 {
		sanitized.Target = defaults.Target
	}
	sanitized.Inventory = strings.TrimSpace(configuration.Inventory)
	if len(sanitized.Inventory) == 0 {
		sanitized.Inventory = defaults.Inventory
	}
	if len(sanitized.Provider) == 0 {
		sanitized.Provider = defaults.Provider
	}
	if len(sanitized.Visibility) == 0 {
		sanitized.Visibility = defaults.Visibility
	}
	sanitized.Token = strings.TrimSpace(configuration.Token)
	sanitized.Owner = strings.TrimSpace(configuration.Owner)
	sanitized.URL = strings.TrimSpace(configuration.URL)
	sanitized.Report = strings.TrimSpace(configuration.Report)
	return sanitized
}
