package synccmd

import (
	"strings"

	"github.com/temirov/reposync/internal/branches"
	"github.com/temirov/reposync/internal/decision"
	"github.com/temirov/reposync/internal/inventory"
)

const defaultTargetConstant = "."

// CommandConfiguration captures persistent settings for the sync command.
type CommandConfiguration struct {
	Target          string                   `mapstructure:"target"`
	Inventory       string                   `mapstructure:"inventory"`
	Untracked       decision.UntrackedPolicy `mapstructure:"untracked"`
	Unmatched       decision.UnmatchedPolicy `mapstructure:"unmatched"`
	PreDeleteChecks int                      `mapstructure:"pre_delete_checks"`
	Clone           decision.ClonePolicy     `mapstructure:"clone"`
	Branches        branches.Scope           `mapstructure:"branches"`
	DryRun          bool                     `mapstructure:"dry_run"`
	Report          string                   `mapstructure:"report"`
	Allow           []string                 `mapstructure:"allow"`
	Deny            []string                 `mapstructure:"deny"`
	Cron            string                   `mapstructure:"cron"`
	APIURL          string                   `mapstructure:"api_url"`
}

// DefaultCommandConfiguration returns baseline configuration values for the sync command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Target:    defaultTargetConstant,
		Inventory: inventory.DefaultInventoryFileName,
		Untracked: decision.UntrackedAsk,
		Unmatched: decision.UnmatchedIgnore,
		Clone:     decision.CloneAsk,
		Branches:  branches.ScopeAll,
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
	if len(sanitized.Untracked) == 0 {
		sanitized.Untracked = defaults.Untracked
	}
	if len(sanitized.Unmatched) == 0 {
		sanitized.Unmatched = defaults.Unmatched
	}
	if len(sanitized.Clone) == 0 {
		sanitized.Clone = defaults.Clone
	}
	if len(sanitized.Branches) == 0 {
		sanitized.Branches = defaults.Branches
	}
	sanitized.Report = strings.TrimSpace(configuration.Report)
	sanitized.Allow = sanitizePatterns(configuration.Allow)
	sanitized.Deny = sanitizePatterns(configuration.Deny)
	sanitized.Cron = strings.TrimSpace(configuration.Cron)
	sanitized.APIURL = strings.TrimSpace(configuration.APIURL)
	return sanitized
}

func sanitizePatterns(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
