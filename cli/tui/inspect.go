package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/tfc/client"
	"github.com/pithecene-io/tfc/journal"
)

// InspectModel is a Bubble Tea model for single-item detail views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_result":
		res, ok := m.data.(*client.Result)
		if !ok {
			content = "Invalid data type for inspect_result"
			break
		}
		content = renderResult(res)
	case "inspect_record":
		content = m.renderRecord()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

// resultState names the outcome of a finished operation.
func resultState(res *client.Result) string {
	switch {
	case res.AlreadyComplete:
		return "already complete"
	case res.ResumedFrom > 0:
		return "resumed"
	default:
		return "completed"
	}
}

func renderResult(res *client.Result) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(titleCase(res.Direction)))
	b.WriteString("\n\n")

	state := resultState(res)
	rows := [][]string{
		{"Remote", res.RemotePath},
	}
	if res.LocalPath != "" {
		rows = append(rows, []string{"Local", res.LocalPath})
	}
	if res.Direction != "delete" {
		rows = append(rows,
			[]string{"Size", humanBytes(res.BytesTotal)},
			[]string{"Transferred", humanBytes(res.BytesTransferred)},
			[]string{"Chunks", strconv.Itoa(res.Chunks)},
			[]string{"Resumed From", strconv.FormatInt(res.ResumedFrom, 10)},
			[]string{"Checksum", fmt.Sprintf("%016x", res.Checksum)},
		)
	}
	rows = append(rows,
		[]string{"Duration", res.Duration.Round(time.Millisecond).String()},
		[]string{"State", state},
	)
	writeRows(&b, rows, state)

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderRecord() string {
	rec, ok := m.data.(*journal.Record)
	if !ok {
		return "Invalid data type for inspect_record"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Journal Record"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"ID", rec.ID},
		{"Direction", rec.Direction},
		{"Path", rec.Path},
		{"Size", humanBytes(rec.Bytes)},
		{"Checksum", fmt.Sprintf("%016x", rec.Checksum)},
		{"Mtime", time.Unix(rec.Mtime, 0).UTC().Format("2006-01-02 15:04:05")},
		{"Peer", rec.Peer},
		{"Completed At", rec.CompletedAt.Format("2006-01-02 15:04:05")},
	}
	writeRows(&b, rows, "")

	return BoxStyle.Render(b.String())
}

func titleCase(s string) string {
	if s == "" {
		return "Transfer"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// writeRows renders label/value pairs; the State row is coloured by state.
func writeRows(b *strings.Builder, rows [][]string, state string) {
	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := ValueStyle.Render(row[1])
		if row[0] == "State" {
			value = StateStyle(state).Render(row[1])
		}
		fmt.Fprintf(b, "%s %s\n", label, value)
	}
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
