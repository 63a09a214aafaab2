// Package report renders the outcome of a run as console lines and as an optional YAML document.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/reposync/internal/mirror"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	// CommandSync labels reports produced by the sync command.
	CommandSync = "sync"
	// CommandMirror labels reports produced by the mirror command.
	CommandMirror = "mirror"

	mirrorActionPushedConstant     = "pushed"
	mirrorActionSkippedConstant    = "skipped"
	mirrorActionFailedConstant     = "failed"
	yamlIndentConstant             = 2
	reportFilePermissionsConstant  = 0o644
	temporaryReportPatternConstant = ".reposync-report-*.yaml"
	reportPathRequiredMessage      = "report path must be provided"
	reportWriteErrorTemplate       = "failed to write report %s: %w"
	consoleEntryTemplate           = "%s: %s%s\n"
	consoleDetailTemplate          = " (%s)"
	consoleErrorTemplate           = " [error: %s]"
	consolePlannedTemplate         = "PLAN: %s %s%s\n"
	consolePlannedEndpointTemplate = " from %s"
	consoleSummaryTemplate         = "%s summary: %s; %d failed\n"
	consoleCountTemplate           = "%s=%d"
	consoleCountSeparator          = ", "
	consoleNoActionsConstant       = "no actions"
)

// ErrReportPathRequired indicates WriteFile was called without a destination.
var ErrReportPathRequired = errors.New(reportPathRequiredMessage)

// Entry is one repository line of a report.
type Entry struct {
	Repository string `yaml:"repository"`
	Action     string `yaml:"action"`
	Path       string `yaml:"path,omitempty"`
	Detail     string `yaml:"detail,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// PlannedEntry is a mutation a dry run suppressed.
type PlannedEntry struct {
	Operation string `yaml:"operation"`
	Path      string `yaml:"path"`
	Endpoint  string `yaml:"endpoint,omitempty"`
}

// Summary aggregates entry counts.
type Summary struct {
	Counts        map[string]int `yaml:"counts"`
	Failures      int            `yaml:"failures"`
	InventorySize int            `yaml:"inventory_size,omitempty"`
}

// Report is the document written for one run.
type Report struct {
	RunID      string         `yaml:"run_id"`
	Command    string         `yaml:"command"`
	DryRun     bool           `yaml:"dry_run"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Summary    Summary        `yaml:"summary"`
	Entries    []Entry        `yaml:"entries"`
	Planned    []PlannedEntry `yaml:"planned,omitempty"`
}

// FromReconcile converts reconciliation actions into report entries and a summary.
func FromReconcile(result reconcile.Result) ([]Entry, Summary) {
	entries := make([]Entry, 0, len(result.Actions))
	for _, action := range result.Actions {
		entries = append(entries, Entry{
			Repository: action.Name,
			Action:     string(action.Kind),
			Path:       action.Path,
			Detail:     action.Detail,
			Error:      errorText(action.Err),
		})
	}
	summary := summarize(entries)
	summary.InventorySize = len(result.Inventory)
	return entries, summary
}

// FromMirror converts mirror outcomes into report entries and a summary.
func FromMirror(outcomes []mirror.Outcome) ([]Entry, Summary) {
	entries := make([]Entry, 0, len(outcomes))
	for _, outcome := range outcomes {
		action := mirrorActionSkippedConstant
		switch {
		case outcome.Err != nil:
			action = mirrorActionFailedConstant
		case outcome.Pushed:
			action = mirrorActionPushedConstant
		}
		entries = append(entries, Entry{
			Repository: outcome.Name,
			Action:     action,
			Path:       outcome.Path,
			Detail:     outcome.Detail,
			Error:      errorText(outcome.Err),
		})
	}
	return entries, summarize(entries)
}

// FromPlan converts the operations recorded by a dry-run workspace.
func FromPlan(operations []workspace.PlannedOperation) []PlannedEntry {
	planned := make([]PlannedEntry, 0, len(operations))
	for _, operation := range operations {
		planned = append(planned, PlannedEntry{Operation: string(operation.Kind), Path: operation.Path, Endpoint: operation.Endpoint})
	}
	return planned
}

// RenderConsole writes one line per non-trivial entry, the planned operations, and a summary line.
// Entries whose action is noop are omitted unless they carry an error.
func RenderConsole(output io.Writer, runReport Report) error {
	for _, entry := range runReport.Entries {
		if entry.Action == string(reconcile.ActionNoOp) && len(entry.Error) == 0 {
			continue
		}
		suffix := ""
		if len(entry.Detail) > 0 {
			suffix += fmt.Sprintf(consoleDetailTemplate, entry.Detail)
		}
		if len(entry.Error) > 0 {
			suffix += fmt.Sprintf(consoleErrorTemplate, entry.Error)
		}
		if _, writeError := fmt.Fprintf(output, consoleEntryTemplate, strings.ToUpper(entry.Action), entry.Repository, suffix); writeError != nil {
			return writeError
		}
	}
	for _, planned := range runReport.Planned {
		endpoint := ""
		if len(planned.Endpoint) > 0 {
			endpoint = fmt.Sprintf(consolePlannedEndpointTemplate, planned.Endpoint)
		}
		if _, writeError := fmt.Fprintf(output, consolePlannedTemplate, planned.Operation, planned.Path, endpoint); writeError != nil {
			return writeError
		}
	}
	_, writeError := fmt.Fprintf(output, consoleSummaryTemplate, runReport.Command, formatCounts(runReport.Summary.Counts), runReport.Summary.Failures)
	return writeError
}

// WriteFile encodes the report as YAML and replaces path atomically.
func WriteFile(path string, runReport Report) error {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return ErrReportPathRequired
	}

	temporaryFile, createError := os.CreateTemp(filepath.Dir(trimmedPath), temporaryReportPatternConstant)
	if createError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, createError)
	}
	temporaryPath := temporaryFile.Name()
	defer os.Remove(temporaryPath)

	encoder := yaml.NewEncoder(temporaryFile)
	encoder.SetIndent(yamlIndentConstant)
	encodeError := encoder.Encode(runReport)
	if encodeError == nil {
		encodeError = encoder.Close()
	}
	closeError := temporaryFile.Close()
	if joinedError := errors.Join(encodeError, closeError); joinedError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, joinedError)
	}
	if chmodError := os.Chmod(temporaryPath, reportFilePermissionsConstant); chmodError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, chmodError)
	}
	if renameError := os.Rename(temporaryPath, trimmedPath); renameError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, renameError)
	}
	return nil
}

func summarize(entries []Entry) Summary {
	summary := Summary{Counts: map[string]int{}}
	for _, entry := range entries {
		summary.Counts[entry.Action]++
		if len(entry.Error) > 0 {
			summary.Failures++
		}
	}
	return summary
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return consoleNoActionsConstant
	}
	actions := make([]string, 0, len(counts))
	for action := range counts {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	formatted := make([]string, 0, len(actions))
	for _, action := range actions {
		formatted = append(formatted, fmt.Sprintf(consoleCountTemplate, action, counts[action]))
	}
	return strings.Join(formatted, consoleCountSeparator)
}

func errorText(failure error) string {
	if failure == nil {
		return ""
	}
	return failure.Error()
}
