package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/tfc/client"
)

const maxBarWidth = 60

// ProgressMsg carries a client progress update into the program.
type ProgressMsg client.Progress

// DoneMsg ends a transfer view.
type DoneMsg struct {
	Result *client.Result
	Err    error
}

// TransferModel shows a live progress bar for one upload or download.
type TransferModel struct {
	title  string
	bar    progress.Model
	last   client.Progress
	cancel context.CancelFunc

	result   *client.Result
	err      error
	done     bool
	quitting bool
}

// NewTransferModel creates a transfer view. cancel is invoked when the user
// quits before the transfer finishes.
func NewTransferModel(title string, cancel context.CancelFunc) TransferModel {
	return TransferModel{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m TransferModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.quitting {
			// The transfer goroutine reports the cancellation via DoneMsg.
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case ProgressMsg:
		m.last = client.Progress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m TransferModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	if m.done {
		if m.err != nil {
			b.WriteString(ErrorStyle.Render("failed: " + m.err.Error()))
			b.WriteString("\n")
			return b.String()
		}
		if m.result != nil {
			b.WriteString(renderResult(m.result))
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString(BarStyle.Render(m.bar.ViewAs(m.last.Percent())))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n",
		LabelStyle.Render("Transferred:"),
		ValueStyle.Render(fmt.Sprintf("%s / %s", humanBytes(m.last.Done), humanBytes(m.last.Total))))

	if m.quitting {
		b.WriteString(WarningStyle.Render("cancelling..."))
	} else {
		b.WriteString(HelpStyle.Render("Press q or Ctrl+C to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// Outcome returns the finished transfer's result and error.
func (m TransferModel) Outcome() (*client.Result, error) {
	return m.result, m.err
}

// TransferFunc performs one transfer, reporting through progress and
// honouring ctx.
type TransferFunc func(ctx context.Context, progress client.ProgressFunc) (*client.Result, error)

// RunTransfer runs fn under a live progress view on stderr and returns its
// outcome once the view exits.
func RunTransfer(ctx context.Context, title string, fn TransferFunc) (*client.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewTransferModel(title, cancel), tea.WithOutput(os.Stderr))

	go func() {
		res, err := fn(ctx, func(pr client.Progress) {
			p.Send(ProgressMsg(pr))
		})
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(TransferModel)
	if !ok {
		return nil, fmt.Errorf("progress view: unexpected model %T", final)
	}
	return m.Outcome()
}
