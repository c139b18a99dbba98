package model

// TrackedFile is a file loaded at session start.
type TrackedFile struct {
	// Identity is the path relative to the working directory, slash separated.
	// It is the key labels are matched against.
	Identity string
	// OriginalPath is the path exactly as given on the command line.
	OriginalPath string
	// Aliases are further spellings of the same file given on the command
	// line after OriginalPath.
	Aliases []string
	// Content is the file text at load time. It is never refreshed.
	Content string
	// Extension is the file's type tag without the leading dot, e.g. "go".
	Extension string
}

// ProposedChange is a full-file replacement parsed out of a model reply.
type ProposedChange struct {
	// Label is the trimmed heading text the block was found under.
	Label string
	// NewContent is the exact text between the fence lines.
	NewContent string
	// File is the tracked file the label resolved to.
	File TrackedFile
}

// Status is the terminal state of a single applied change.
type Status int

const (
	StatusPending Status = iota
	StatusSkipped
	StatusReadFailed
	StatusBackupFailed
	StatusWriteFailed
	StatusApplied
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSkipped:
		return "skipped"
	case StatusReadFailed:
		return "read failed"
	case StatusBackupFailed:
		return "backup failed"
	case StatusWriteFailed:
		return "write failed"
	case StatusApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Failed reports whether the status is one of the failure states.
func (s Status) Failed() bool {
	return s == StatusReadFailed || s == StatusBackupFailed || s == StatusWriteFailed
}

// ApplyResult records what happened to one ProposedChange.
type ApplyResult struct {
	Change     ProposedChange
	Path       string
	BackupPath string
	Status     Status
	Err        error
}

// Summary holds the results of an apply run for display.
type Summary struct {
	Updated   []string
	Unchanged []string
	Failed    []string
	Message   string
}

// Summarize groups results by outcome.
func Summarize(results []ApplyResult) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Status == StatusApplied:
			s.Updated = append(s.Updated, r.Path)
		case r.Status == StatusSkipped:
			s.Unchanged = append(s.Unchanged, r.Path)
		case r.Status.Failed():
			s.Failed = append(s.Failed, r.Path)
		}
	}
	return s
}
