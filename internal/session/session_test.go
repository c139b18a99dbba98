package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/ask.go/internal/fs"
	"github.com/sokinpui/ask.go/internal/patcher"
	"github.com/sokinpui/ask.go/internal/ui"
	"github.com/sokinpui/ask.go/model"
)

type fakeCompleter struct {
	replies []string
	errs    []error
	prompts []string
	systems []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, user)
	f.systems = append(f.systems, system)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "no changes needed", nil
}

type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

type env struct {
	dir     string
	files   []model.TrackedFile
	applier *patcher.Applier
	notices *bytes.Buffer
	out     *bytes.Buffer
}

func newEnv(t *testing.T, contents map[string]string) *env {
	t.Helper()
	dir := t.TempDir()
	var names []string
	for name, content := range contents {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		names = append(names, name)
	}
	r, err := fs.NewPathResolver(dir)
	require.NoError(t, err)
	files, err := r.LoadFiles(names)
	require.NoError(t, err)

	notices := &bytes.Buffer{}
	prevOut, prevNoColor := ui.Output, color.NoColor
	ui.Output, color.NoColor = notices, true
	t.Cleanup(func() { ui.Output, color.NoColor = prevOut, prevNoColor })

	return &env{dir: dir, files: files, applier: patcher.New(r), notices: notices, out: &bytes.Buffer{}}
}

func (e *env) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, name))
	require.NoError(t, err)
	return string(data)
}

func (e *env) session(c Completer, input string, opts Options) *Session {
	return New(e.files, c, e.applier, strings.NewReader(input), e.out, opts)
}

const replyA = "Sure.\n\n## a.js\n\n```js\nconsole.log(1)\n```\n"

func TestRunAppliesConfirmedChanges(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	c := &fakeCompleter{replies: []string{replyA}}

	s := e.session(c, "log one instead\ny\nexit\n", Options{})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, "console.log(1)\n", e.read(t, "a.js"))
	assert.Equal(t, "console.log(0)", e.read(t, "a.js.orig"))
	assert.Contains(t, e.out.String(), "Sure.")
	assert.Contains(t, e.notices.String(), "Updated a.js, original backed up to a.js.orig")

	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "## a.js\n\n```js\nconsole.log(0)\n```\n")
	assert.Contains(t, c.prompts[0], "Question: log one instead")
	assert.Equal(t, DefaultSystemPrompt, c.systems[0])
}

func TestRunDeclinedChangesAreDiscarded(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	c := &fakeCompleter{replies: []string{replyA}}

	s := e.session(c, "change it\nn\n", Options{})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, "console.log(0)", e.read(t, "a.js"))
	assert.NoFileExists(t, filepath.Join(e.dir, "a.js.orig"))
	assert.Contains(t, e.notices.String(), "Changes discarded.")
}

func TestRunContinuesAfterModelFailure(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	c := &fakeCompleter{
		errs:    []error{errors.New("rate limited"), nil},
		replies: []string{"", replyA},
	}

	s := e.session(c, "first\nsecond\ny\n", Options{})
	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, c.prompts, 2)
	assert.Contains(t, e.notices.String(), "Model request failed: rate limited")
	assert.Equal(t, "console.log(1)\n", e.read(t, "a.js"))
}

func TestRunRecoversPanics(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "x"})
	panicking := Options{Wait: func(context.Context, string, func(context.Context) (string, error)) (string, error) {
		panic("boom")
	}}

	s := e.session(&fakeCompleter{}, "hello\nexit\n", panicking)
	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, e.notices.String(), "internal panic: boom")
}

func TestRunAutoConfirmAndDryRun(t *testing.T) {
	t.Run("auto confirm", func(t *testing.T) {
		e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
		s := e.session(&fakeCompleter{replies: []string{replyA}}, "go\n", Options{AutoConfirm: true})
		require.NoError(t, s.Run(context.Background()))
		assert.Equal(t, "console.log(1)\n", e.read(t, "a.js"))
	})

	t.Run("dry run", func(t *testing.T) {
		e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
		s := e.session(&fakeCompleter{replies: []string{replyA}}, "go\n", Options{DryRun: true, AutoConfirm: true})
		require.NoError(t, s.Run(context.Background()))
		assert.Equal(t, "console.log(0)", e.read(t, "a.js"))
		assert.Contains(t, e.notices.String(), "Dry run")
	})
}

func TestRunUntrackedChangesAreNotOffered(t *testing.T) {
	e := newEnv(t, map[string]string{"b.js": "b"})
	s := e.session(&fakeCompleter{replies: []string{replyA}}, "go\n", Options{})
	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, e.notices.String(), "No file changes proposed.")
	assert.NotContains(t, e.out.String(), "Apply")
	assert.NoFileExists(t, filepath.Join(e.dir, "a.js"))
}

func TestRunWarnsAboveTokenBudget(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	c := &fakeCompleter{}
	s := e.session(c, "explain\n", Options{MaxPromptTokens: 1})
	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, e.notices.String(), "above the configured limit of 1")
	assert.Len(t, c.prompts, 1)
}

func TestRunCommands(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "x"})
	var copied string
	opts := Options{Copy: func(text string) error { copied = text; return nil }}
	s := e.session(&fakeCompleter{replies: []string{"plain answer"}}, ":copy\n:files\n\n   \nwhat?\n:copy\n:help\nquit\nnever asked\n", opts)
	c := s.completer.(*fakeCompleter)

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, e.notices.String(), "Nothing to copy yet.")
	assert.Contains(t, e.notices.String(), "- a.js")
	assert.Equal(t, "plain answer", copied)
	assert.Len(t, c.prompts, 1)
}

func TestRunEOFWithoutNewline(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "x"})
	c := &fakeCompleter{}
	s := e.session(c, "last question", Options{})
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, c.prompts, 1)
}

func TestRunEOFDuringConfirmation(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	s := e.session(&fakeCompleter{replies: []string{replyA}}, "go\n", Options{})
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "console.log(0)", e.read(t, "a.js"))
}

func TestRenderedReply(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "console.log(0)"})
	s := e.session(&fakeCompleter{replies: []string{replyA}}, "go\nn\n", Options{Render: true})
	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, e.out.String(), "│ console.log(1)")
}

func TestCloseOnce(t *testing.T) {
	e := newEnv(t, map[string]string{"a.js": "x"})
	in := &closeCounter{Reader: strings.NewReader("")}
	s := New(e.files, &fakeCompleter{}, e.applier, in, e.out, Options{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, in.closes)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		err   error
	}{
		{"y\n", true, nil},
		{"YES\n", true, nil},
		{"  y  \n", true, nil},
		{"n\n", false, nil},
		{"\n", false, nil},
		{"yep\n", false, nil},
		{"y", true, nil},
		{"", false, io.EOF},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(bufio.NewReader(strings.NewReader(tt.input)), &out, "Apply? ")
			assert.Equal(t, tt.want, got)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), "Apply? ")
		})
	}
}

func TestConfirmPromptIsPrintedVerbatim(t *testing.T) {
	var out bytes.Buffer
	_, err := Confirm(bufio.NewReader(strings.NewReader("n\n")), &out, "Apply 100% of 2 change(s)? ")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Apply 100% of 2 change(s)? ")
}

func TestBuildPrompt(t *testing.T) {
	files := []model.TrackedFile{
		{Identity: "a.go", Content: "package a", Extension: "go"},
		{Identity: "Makefile", Content: "all:\n", Extension: ""},
	}
	got := BuildPrompt(files, "why?")
	want := "Here are the files:\n\n" +
		"## a.go\n\n```go\npackage a\n```\n\n" +
		"## Makefile\n\n```\nall:\n```\n\n" +
		"Question: why?\n"
	assert.Equal(t, want, got)
}
