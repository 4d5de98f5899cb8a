// Package tui is the live status view for `status --watch`: a single-task
// Bubble Tea program that consumes the Task Manager's event stream and
// renders a progress bar, transfer speed, and chunk summary. Kept
// deliberately small — one task on screen at a time — since the event
// stream itself, not the renderer, carries the interesting state.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"chunkdl/internal/events"
)

// Model renders one task's progress as events arrive on Events.
type Model struct {
	Events <-chan any

	url      string
	filename string
	total    int64
	done     int64
	speed    float64
	chunked  bool
	active   int
	done_    int
	allDone  int

	status string
	errMsg string

	bar      progress.Model
	finished bool
}

// New constructs a Model that reads task events off ch until the task
// reaches a terminal state.
func New(url string, ch <-chan any) Model {
	return Model{
		Events: ch,
		url:    url,
		status: "starting",
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// eventMsg wraps one events.* value so Bubble Tea can dispatch on it.
type eventMsg struct{ msg any }

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.Events
		if !ok {
			return eventMsg{nil}
		}
		return eventMsg{e}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil
	case eventMsg:
		if msg.msg == nil {
			m.finished = true
			return m, tea.Quit
		}
		m.apply(msg.msg)
		if m.finished {
			return m, tea.Quit
		}
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m *Model) apply(msg any) {
	switch e := msg.(type) {
	case events.Started:
		m.filename = e.Filename
		m.total = e.Total
		m.chunked = e.Chunked
		m.status = "running"
	case events.Progress:
		m.done = e.Downloaded
		m.total = e.Total
		m.speed = e.Speed
		m.active = e.ActiveChunks
		m.done_ = e.CompletedChunks
		m.allDone = e.TotalChunks
	case events.Completed:
		m.status = "completed"
		m.done = e.Total
		m.total = e.Total
		m.finished = true
	case events.Failed:
		m.status = "failed"
		if e.Err != nil {
			m.errMsg = e.Err.Error()
		}
		m.finished = true
	case events.Paused:
		m.status = "paused"
		m.finished = true
	case events.Cancelled:
		m.status = "cancelled"
		m.finished = true
	}
}

func (m Model) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	name := m.filename
	if name == "" {
		name = m.url
	}

	s := TitleStyle.Render(name) + "\n\n"
	s += m.bar.ViewAs(pct) + "\n\n"
	s += StatsStyle.Render(fmt.Sprintf("%s / %s at %s/s",
		humanize.Bytes(uint64(m.done)), humanize.Bytes(uint64(m.total)), humanize.Bytes(uint64(m.speed)))) + "\n"

	if m.chunked {
		s += StatsStyle.Render(fmt.Sprintf("chunks: %d active, %d/%d done", m.active, m.done_, m.allDone)) + "\n"
	}

	s += "\n" + ItemStyle.Render("status: "+m.status)
	if m.errMsg != "" {
		s += "\n" + lipglossError(m.errMsg)
	}
	if m.finished {
		s += "\n\n(finished)"
	}
	return AppStyle.Render(s)
}

func lipglossError(msg string) string {
	return PanelStyle.Copy().BorderForeground(ColorError).Render(msg)
}

// Run starts the Bubble Tea program and blocks until the task reaches a
// terminal state or the user quits.
func Run(url string, ch <-chan any) error {
	p := tea.NewProgram(New(url, ch))
	_, err := p.Run()
	return err
}
