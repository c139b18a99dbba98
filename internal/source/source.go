package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	logger "github.com/sirupsen/logrus"
)

// SourceProvider determines and retrieves the reply text to apply.
type SourceProvider struct {
	stdin         *os.File
	readClipboard func() (string, error)
}

// New creates a SourceProvider reading from stdin or the system clipboard.
func New(stdin *os.File) *SourceProvider {
	return &SourceProvider{
		stdin:         stdin,
		readClipboard: clipboard.ReadAll,
	}
}

// IsPiped reports whether stdin is a pipe or file rather than a terminal.
func (sp *SourceProvider) IsPiped() bool {
	return IsPiped(sp.stdin)
}

// IsPiped reports whether f is a pipe or file rather than a terminal.
func IsPiped(f *os.File) bool {
	if f == nil {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.IsPiped() {
		logger.Debug("reading reply from stdin")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	logger.Debug("reading reply from clipboard")
	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}

// CopyToClipboard writes text to the system clipboard.
func CopyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}
