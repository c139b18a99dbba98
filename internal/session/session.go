package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/sokinpui/ask.go/internal/llm"
	"github.com/sokinpui/ask.go/internal/nvim"
	"github.com/sokinpui/ask.go/internal/parser"
	"github.com/sokinpui/ask.go/internal/patcher"
	"github.com/sokinpui/ask.go/internal/render"
	"github.com/sokinpui/ask.go/internal/ui"
	"github.com/sokinpui/ask.go/model"
)

// Completer sends one prompt to a model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// WaitFunc runs work, typically while showing progress to the user.
type WaitFunc func(ctx context.Context, label string, work func(ctx context.Context) (string, error)) (string, error)

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Options tune a Session.
type Options struct {
	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string
	// AutoConfirm applies changes without asking.
	AutoConfirm bool
	// DryRun lists proposed changes but never applies them.
	DryRun bool
	// Render styles the reply as markdown instead of printing it raw.
	Render bool
	// MaxPromptTokens triggers a warning when a prompt is estimated larger.
	// Zero disables the check.
	MaxPromptTokens int
	// NvimAddress is a running Neovim to reload buffers in after changes.
	NvimAddress string
	// Wait wraps the model call. Nil calls it directly.
	Wait WaitFunc
	// Copy puts text on the clipboard for the :copy command.
	Copy func(text string) error
}

// Session is the state shared by every turn of the question loop: the loaded
// files, the model client and the terminal input. It is created once and must
// be closed once.
type Session struct {
	files     []model.TrackedFile
	completer Completer
	applier   *patcher.Applier
	in        *bufio.Reader
	closer    io.Closer
	out       io.Writer
	opts      Options

	lastReply string

	closeOnce sync.Once
	closeErr  error
}

// New creates a Session. If in is also an io.Closer it is closed by Close.
func New(files []model.TrackedFile, completer Completer, applier *patcher.Applier, in io.Reader, out io.Writer, opts Options) *Session {
	s := &Session{
		files:     files,
		completer: completer,
		applier:   applier,
		in:        bufio.NewReader(in),
		out:       out,
		opts:      opts,
	}
	if c, ok := in.(io.Closer); ok {
		s.closer = c
	}
	if s.opts.SystemPrompt == "" {
		s.opts.SystemPrompt = DefaultSystemPrompt
	}
	if s.opts.Wait == nil {
		s.opts.Wait = func(ctx context.Context, _ string, work func(ctx context.Context) (string, error)) (string, error) {
			return work(ctx)
		}
	}
	return s
}

// Close releases the terminal input. Calling it more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

// Files returns the tracked files.
func (s *Session) Files() []model.TrackedFile {
	return s.files
}

// Run reads questions until exit, quit or end of input. Only terminal read
// failures end it with an error.
func (s *Session) Run(ctx context.Context) error {
	ui.Info("Loaded %d file(s). Ask a question, ':help' for commands, 'exit' to quit.", len(s.files))

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, ui.Prompt(">>> "))

		line, readErr := s.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read input: %w", readErr)
		}
		atEOF := readErr != nil

		question := strings.TrimSpace(line)
		switch question {
		case "":
			if atEOF {
				fmt.Fprintln(s.out)
				return nil
			}
			continue
		case "exit", "quit":
			return nil
		case ":help":
			s.printHelp()
		case ":files":
			s.printFiles()
		case ":copy":
			s.copyLastReply()
		default:
			if err := s.Turn(ctx, question); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}

		if atEOF {
			return nil
		}
	}
}

// Turn asks the model one question and handles its reply. A failed model call
// is reported and does not end the session.
func (s *Session) Turn(ctx context.Context, question string) error {
	reply, err := s.ask(ctx, question)
	if err != nil {
		ui.Error("Model request failed: %v", err)
		var de *DetailedError
		if errors.As(err, &de) {
			logger.Debugf("stack trace:\n%s", de.Stack)
		}
		return nil
	}
	s.lastReply = reply
	s.printReply(reply)

	changes := parser.Extract(reply, s.files)
	ui.PrintChanges(changes)
	if len(changes) == 0 {
		return nil
	}
	if s.opts.DryRun {
		ui.Warning("Dry run: no files were changed.")
		return nil
	}

	if !s.opts.AutoConfirm {
		ok, err := Confirm(s.in, s.out, fmt.Sprintf("Apply %d change(s)? (y/N): ", len(changes)))
		if err != nil {
			return err
		}
		if !ok {
			ui.Warning("Changes discarded.")
			return nil
		}
	}

	ApplyAndReport(s.applier, changes, s.opts.NvimAddress)
	return nil
}

// ask builds the prompt and calls the model.
func (s *Session) ask(ctx context.Context, question string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	prompt := BuildPrompt(s.files, question)
	tokens := llm.PromptTokens(s.opts.SystemPrompt, prompt)
	logger.Debugf("prompt is about %d tokens", tokens)
	if s.opts.MaxPromptTokens > 0 && tokens > s.opts.MaxPromptTokens {
		ui.Warning("Prompt is about %d tokens, above the configured limit of %d.", tokens, s.opts.MaxPromptTokens)
	}

	return s.opts.Wait(ctx, "Waiting for the model...", func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, s.opts.SystemPrompt, prompt)
	})
}

func (s *Session) printReply(reply string) {
	fmt.Fprintln(s.out)
	if s.opts.Render {
		fmt.Fprint(s.out, render.Reply(reply))
		return
	}
	fmt.Fprint(s.out, reply)
	if !strings.HasSuffix(reply, "\n") {
		fmt.Fprintln(s.out)
	}
}

func (s *Session) printHelp() {
	ui.Info("Commands:")
	ui.Path(":files  list the loaded files")
	ui.Path(":copy   copy the last reply to the clipboard")
	ui.Path("exit    leave (also 'quit' or Ctrl-D)")
}

func (s *Session) printFiles() {
	ui.Info("%d file(s) loaded:", len(s.files))
	for _, f := range s.files {
		ui.Path("- %s", f.Identity)
	}
}

func (s *Session) copyLastReply() {
	if s.lastReply == "" {
		ui.Warning("Nothing to copy yet.")
		return
	}
	if s.opts.Copy == nil {
		ui.Warning("Clipboard is not available.")
		return
	}
	if err := s.opts.Copy(s.lastReply); err != nil {
		ui.Error("%v", err)
		return
	}
	ui.Success("Copied the last reply to the clipboard.")
}

// Confirm prints prompt and reads a yes/no answer. Only "y" or "yes" count as
// yes. End of input with no answer returns io.EOF.
func Confirm(in *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, ui.Prompt("%s", prompt))
	response, err := in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(response) == "" {
			fmt.Fprintln(out)
			return false, io.EOF
		}
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ApplyAndReport applies changes, printing a notice per file and a summary,
// then asks Neovim to reload if an address is given.
func ApplyAndReport(applier *patcher.Applier, changes []model.ProposedChange, nvimAddress string) model.Summary {
	ui.Header("\n--- Applying changes ---")
	applier.SetReporter(ui.PrintResult)
	results := applier.Apply(changes)

	summary := model.Summarize(results)
	ui.PrintUpdateSummary(summary)

	if err := nvim.ReloadBuffers(nvimAddress, summary.Updated); err != nil {
		logger.Debugf("nvim reload skipped: %v", err)
	}
	return summary
}
