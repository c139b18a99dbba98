package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sokinpui/ask.go/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
)

// Output is where notices are written. Tests replace it.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// --- Apply notices ---

// Notice returns the one-line status message for an apply result.
func Notice(r model.ApplyResult) string {
	switch r.Status {
	case model.StatusApplied:
		return fmt.Sprintf("Updated %s, original backed up to %s", r.Path, r.BackupPath)
	case model.StatusSkipped:
		return fmt.Sprintf("No changes detected for %s", r.Path)
	case model.StatusReadFailed, model.StatusBackupFailed, model.StatusWriteFailed:
		return fmt.Sprintf("Error saving changes to %s: %v", r.Path, r.Err)
	default:
		return fmt.Sprintf("%s: %s", r.Path, r.Status)
	}
}

// PrintResult prints the notice for r in the color of its category.
func PrintResult(r model.ApplyResult) {
	switch {
	case r.Status == model.StatusApplied:
		Success("  -> %s", Notice(r))
	case r.Status == model.StatusSkipped:
		Info("  -> %s", Notice(r))
	case r.Status.Failed():
		Error("  -> %s", Notice(r))
	}
}

// PrintChanges lists the proposed changes found in a reply.
func PrintChanges(changes []model.ProposedChange) {
	if len(changes) == 0 {
		Info("No file changes proposed.")
		return
	}
	Header("\n--- %d proposed change(s) ---", len(changes))
	for _, c := range changes {
		Path("- %s (%d bytes)", c.File.OriginalPath, len(c.NewContent))
	}
}

// --- Summaries ---

func PrintUpdateSummary(s model.Summary) {
	Header("\n--- Update Summary ---")

	if len(s.Updated) == 0 && len(s.Unchanged) == 0 && len(s.Failed) == 0 {
		Info("No files were updated.")
		return
	}

	if len(s.Updated) > 0 {
		Success("Updated %d file(s):", len(s.Updated))
		for _, f := range s.Updated {
			fmt.Fprintf(Output, "  - %s\n", f)
		}
	}
	if len(s.Unchanged) > 0 {
		Info("Unchanged %d file(s):", len(s.Unchanged))
		for _, f := range s.Unchanged {
			fmt.Fprintf(Output, "  - %s\n", f)
		}
	}
	if len(s.Failed) > 0 {
		Error("Failed to update %d file(s):", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(Output, "  - %s\n", f)
		}
		Warning("Backups of files that were partially processed are kept next to them with the %q suffix.", ".orig")
	}
}
