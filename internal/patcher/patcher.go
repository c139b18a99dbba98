package patcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/sokinpui/ask.go/internal/fs"
	"github.com/sokinpui/ask.go/model"
)

// BackupSuffix is appended to a file's path to name its backup copy.
const BackupSuffix = ".orig"

var (
	ErrRead   = errors.New("failed to read current content")
	ErrBackup = errors.New("failed to write backup")
	ErrWrite  = errors.New("failed to write new content")
)

// BackupPath returns the backup location for path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// Reporter is notified once per processed change, in order.
type Reporter func(result model.ApplyResult)

// Applier writes proposed changes to disk, keeping a backup of the content
// each file had before it was overwritten.
type Applier struct {
	resolver *fs.PathResolver
	reporter Reporter

	// writeFile is swapped in tests to simulate write failures.
	writeFile func(path string, data []byte, flag int, perm os.FileMode) error
}

// New creates an Applier that resolves relative paths with resolver.
func New(resolver *fs.PathResolver) *Applier {
	return &Applier{
		resolver:  resolver,
		writeFile: writeDurable,
	}
}

// SetReporter sets a function that receives each result as it is produced.
func (a *Applier) SetReporter(r Reporter) {
	a.reporter = r
}

// processSequentially runs processFn over items one at a time.
func processSequentially[T, R any](items []T, processFn func(item T) R, done func(R)) []R {
	results := make([]R, 0, len(items))
	for _, item := range items {
		r := processFn(item)
		results = append(results, r)
		if done != nil {
			done(r)
		}
	}
	return results
}

// Apply processes every change in order. A failure on one file never stops
// the others.
func (a *Applier) Apply(changes []model.ProposedChange) []model.ApplyResult {
	var done func(model.ApplyResult)
	if a.reporter != nil {
		done = func(r model.ApplyResult) { a.reporter(r) }
	}
	return processSequentially(changes, a.applyOne, done)
}

func (a *Applier) applyOne(change model.ProposedChange) model.ApplyResult {
	display := change.File.OriginalPath
	result := model.ApplyResult{
		Change:     change,
		Path:       display,
		BackupPath: BackupPath(display),
		Status:     model.StatusPending,
	}

	target := a.resolver.Abs(change.File.OriginalPath)
	info, err := os.Stat(target)
	if err != nil {
		result.Status = model.StatusReadFailed
		result.Err = fmt.Errorf("%w: %w", ErrRead, err)
		return result
	}
	current, err := os.ReadFile(target)
	if err != nil {
		result.Status = model.StatusReadFailed
		result.Err = fmt.Errorf("%w: %w", ErrRead, err)
		return result
	}

	if strings.TrimSpace(string(current)) == strings.TrimSpace(change.NewContent) {
		result.Status = model.StatusSkipped
		return result
	}

	if err := a.writeFile(BackupPath(target), current, createFlags, info.Mode().Perm()); err != nil {
		result.Status = model.StatusBackupFailed
		result.Err = fmt.Errorf("%w: %w", ErrBackup, err)
		return result
	}
	logger.Debugf("backed up %s to %s", display, result.BackupPath)

	if err := a.writeFile(target, []byte(change.NewContent), overwriteFlags, info.Mode().Perm()); err != nil {
		result.Status = model.StatusWriteFailed
		result.Err = fmt.Errorf("%w (backup kept at %s): %w", ErrWrite, result.BackupPath, err)
		return result
	}

	result.Status = model.StatusApplied
	return result
}

const (
	// createFlags may create the backup file.
	createFlags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	// overwriteFlags never create a target that vanished after it was read.
	overwriteFlags = os.O_WRONLY | os.O_TRUNC
)

// writeDurable writes data to path and flushes it to stable storage before
// returning. With O_CREATE the file ends up with perm, whether it is new or
// not; otherwise it keeps its permissions.
func writeDurable(path string, data []byte, flag int, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if flag&os.O_CREATE != 0 {
		if err := f.Chmod(perm); err != nil {
			return err
		}
	}

	n, err := f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return f.Sync()
}
