package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/tfc/journal"
	"github.com/pithecene-io/tfc/metrics"
)

// StatsModel is a Bubble Tea model for aggregate views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_journal":
		content = m.renderJournal()
	case "stats_metrics":
		content = m.renderMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderJournal() string {
	data, ok := m.data.(*journal.Summary)
	if !ok {
		return "Invalid data type for stats_journal"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Transfer Journal"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Records", fmt.Sprintf("%d", data.Records), highlightColor),
		m.renderStatBox("Bytes", humanBytes(data.Bytes), primaryColor),
	}
	dirs := make([]string, 0, len(data.ByDirection))
	for d := range data.ByDirection {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		color := successColor
		if d == "delete" {
			color = warningColor
		}
		boxes = append(boxes, m.renderStatBox(titleCase(d), fmt.Sprintf("%d", data.ByDirection[d]), color))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if data.First != nil && data.Last != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n",
			LabelStyle.Render("First:"),
			ValueStyle.Render(data.First.Format("2006-01-02 15:04:05")))
		fmt.Fprintf(&b, "%s %s",
			LabelStyle.Render("Last:"),
			ValueStyle.Render(data.Last.Format("2006-01-02 15:04:05")))
	}

	return b.String()
}

func (m StatsModel) renderMetrics() string {
	data, ok := m.data.(*metrics.Snapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(titleCase(data.Role) + " Metrics"))
	b.WriteString("\n\n")

	top := []string{
		m.renderStatBox("Completed", fmt.Sprintf("%d", data.OperationsCompleted), successColor),
		m.renderStatBox("Failed", fmt.Sprintf("%d", data.OperationsFailed), errorColor),
		m.renderStatBox("Chunks", fmt.Sprintf("%d", data.Chunks), highlightColor),
		m.renderStatBox("Sent", humanBytes(data.BytesSent), primaryColor),
		m.renderStatBox("Received", humanBytes(data.BytesReceived), primaryColor),
	}
	errs := []string{
		m.renderStatBox("Application", fmt.Sprintf("%d", data.ApplicationErrors), warningColor),
		m.renderStatBox("Protocol", fmt.Sprintf("%d", data.ProtocolErrors), errorColor),
		m.renderStatBox("Transport", fmt.Sprintf("%d", data.TransportErrors), errorColor),
		m.renderStatBox("Integrity", fmt.Sprintf("%d", data.IntegrityErrors), errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, top...))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, errs...))

	return b.String()
}

func (m StatsModel) renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
