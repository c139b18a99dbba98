package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	logger "github.com/sirupsen/logrus"

	"github.com/sokinpui/ask.go/internal/cli"
	"github.com/sokinpui/ask.go/internal/config"
	"github.com/sokinpui/ask.go/internal/fs"
	"github.com/sokinpui/ask.go/internal/llm"
	"github.com/sokinpui/ask.go/internal/nvim"
	"github.com/sokinpui/ask.go/internal/parser"
	"github.com/sokinpui/ask.go/internal/patcher"
	"github.com/sokinpui/ask.go/internal/session"
	"github.com/sokinpui/ask.go/internal/source"
	"github.com/sokinpui/ask.go/internal/tui"
	"github.com/sokinpui/ask.go/internal/ui"
	"github.com/sokinpui/ask.go/model"
)

// ErrApplyFailed is returned by apply mode when at least one file could not
// be updated.
var ErrApplyFailed = errors.New("some changes could not be applied")

// App orchestrates the entire application logic.
type App struct {
	cfg      *cli.Config
	settings *config.Config
	resolver *fs.PathResolver
	files    []model.TrackedFile
	applier  *patcher.Applier

	stdin  *os.File
	stdout io.Writer
	stderr *os.File

	// openTTY opens the controlling terminal for confirmation when stdin
	// carries the reply.
	openTTY func() (io.ReadCloser, error)
	// newCompleter builds the model client.
	newCompleter func(settings *config.Config) session.Completer
}

// New loads configuration and the tracked files for cfg.
func New(cfg *cli.Config) (*App, error) {
	if cfg.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	settings, err := config.Resolve(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	resolver, err := fs.NewPathResolver("")
	if err != nil {
		return nil, err
	}
	files, err := resolver.LoadFiles(cfg.Files)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		settings: settings,
		resolver: resolver,
		files:    files,
		applier:  patcher.New(resolver),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		openTTY: func() (io.ReadCloser, error) {
			return os.Open("/dev/tty")
		},
		newCompleter: func(s *config.Config) session.Completer {
			return llm.NewClient(llm.Options{
				BaseURL:     s.BaseURL,
				APIKey:      s.APIKey,
				Model:       s.Model,
				Temperature: s.Temperature,
				Timeout:     s.Timeout,
			})
		},
	}, nil
}

// Files returns the tracked files.
func (a *App) Files() []model.TrackedFile {
	return a.files
}

func (a *App) nvimAddress() string {
	return nvim.Address(a.settings.NvimAddress)
}

// RunChat runs the interactive question loop.
func (a *App) RunChat(ctx context.Context) error {
	if err := a.settings.RequireAPIKey(); err != nil {
		return err
	}
	completer := a.newCompleter(a.settings)
	logger.Debugf("using model %s at %s", a.settings.Model, a.settings.BaseURL)

	opts := session.Options{
		SystemPrompt:    a.settings.SystemPrompt,
		AutoConfirm:     a.cfg.Yes,
		DryRun:          a.cfg.DryRun,
		Render:          !a.cfg.NoRender,
		MaxPromptTokens: a.settings.MaxPromptTokens,
		NvimAddress:     a.nvimAddress(),
		Copy:            source.CopyToClipboard,
	}
	if a.animate() {
		opts.Wait = func(ctx context.Context, label string, work func(ctx context.Context) (string, error)) (string, error) {
			return tui.Wait(ctx, label, a.stderr, work)
		}
	}

	s := session.New(a.files, completer, a.applier, a.stdin, a.stdout, opts)
	defer s.Close()
	return s.Run(ctx)
}

// animate reports whether the spinner can be drawn. It reads keys from stdin,
// so both stdin and stderr must be terminals.
func (a *App) animate() bool {
	return !a.cfg.NoAnimation && isTerminal(a.stdin) && isTerminal(a.stderr)
}

func isTerminal(f *os.File) bool {
	return f != nil && !source.IsPiped(f)
}

// RunApply applies a reply read from stdin or the clipboard.
func (a *App) RunApply() (err error) {
	// Centralized panic recovery to provide stack traces for unexpected errors.
	defer func() {
		if r := recover(); r != nil {
			err = &session.DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	sp := source.New(a.stdin)
	content, err := sp.GetContent()
	if err != nil {
		return err
	}
	if content == "" {
		ui.Warning("Source is empty. Nothing to process.")
		return nil
	}

	changes := parser.Extract(content, a.files)
	ui.PrintChanges(changes)
	if len(changes) == 0 {
		return nil
	}
	if a.cfg.DryRun {
		ui.Warning("Dry run: no files were changed.")
		return nil
	}

	if !a.cfg.Yes {
		ok, err := a.confirm(sp.IsPiped(), len(changes))
		if err != nil {
			return err
		}
		if !ok {
			ui.Warning("Changes discarded.")
			return nil
		}
	}

	summary := session.ApplyAndReport(a.applier, changes, a.nvimAddress())
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%w: %d file(s) failed", ErrApplyFailed, len(summary.Failed))
	}
	return nil
}

// confirm asks on the terminal. When stdin carried the reply the answer is
// read from the controlling terminal instead.
func (a *App) confirm(stdinUsed bool, n int) (bool, error) {
	var in io.Reader = a.stdin
	if stdinUsed {
		tty, err := a.openTTY()
		if err != nil {
			return false, fmt.Errorf("cannot ask for confirmation without a terminal, use --yes: %w", err)
		}
		defer tty.Close()
		in = tty
	}

	ok, err := session.Confirm(bufio.NewReader(in), a.stdout, fmt.Sprintf("Apply %d change(s)? (y/N): ", n))
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return ok, err
}
