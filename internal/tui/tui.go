package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// --- Styles ---
var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197")) // Red
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// ErrInterrupted is returned when the user aborts the wait.
var ErrInterrupted = errors.New("interrupted")

// --- Messages ---
type resultMsg struct {
	text string
	err  error
}

// --- Model ---
type Model struct {
	label   string
	work    func(ctx context.Context) (string, error)
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	start   time.Time
	state   state
	result  resultMsg
}

type state int

const (
	stateWaiting state = iota
	stateDone
	stateInterrupted
)

// New creates a model that shows a spinner labelled label while work runs.
func New(ctx context.Context, label string, work func(ctx context.Context) (string, error)) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		label:   label,
		work:    work,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		start:   time.Now(),
		state:   stateWaiting,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			m.state = stateInterrupted
			return m, tea.Quit
		}

	case resultMsg:
		m.state = stateDone
		m.result = msg
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateWaiting {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateWaiting:
		elapsed := time.Since(m.start).Round(time.Second)
		return fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, faintStyle.Render(fmt.Sprintf("(%s, ctrl+c to cancel)", elapsed)))
	case stateInterrupted:
		return errorStyle.Render("Cancelled.") + "\n"
	default:
		return ""
	}
}

func (m Model) run() tea.Msg {
	text, err := m.work(m.ctx)
	return resultMsg{text: text, err: err}
}

// Wait runs work while a spinner is drawn on out. It returns the work's
// result, or ErrInterrupted if the user cancelled.
func Wait(ctx context.Context, label string, out io.Writer, work func(ctx context.Context) (string, error)) (string, error) {
	m := New(ctx, label, work)
	defer m.cancel()

	if out == nil {
		out = os.Stderr
	}
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("error running spinner: %w", err)
	}

	fm := final.(Model)
	switch fm.state {
	case stateInterrupted:
		return "", ErrInterrupted
	case stateDone:
		return fm.result.text, fm.result.err
	default:
		return "", ErrInterrupted
	}
}
