// Package panel is a terminal dashboard that follows a server's event
// stream.
package panel

import (
	"fmt"
	"strings"

	"github.com/CILXRY/f-sleepy/internal/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	usingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3a3a3"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

// statusColors maps the color names used in status lists to terminal
// colors. Hex values are used as is.
var statusColors = map[string]string{
	"awake":    "#22c55e",
	"sleeping": "#6366f1",
	"error":    "#ef4444",
}

type Model struct {
	server string
	feed   <-chan tea.Msg

	view        *models.FullView
	lastEventID int64
	connected   bool
	err         error
	width       int
}

// New returns a panel for server that reads feed messages from feed.
func New(server string, feed <-chan tea.Msg) Model {
	return Model{server: server, feed: feed}
}

func (m Model) Init() tea.Cmd {
	return waitForMsg(m.feed)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case ViewMsg:
		view := msg.View
		m.view = &view
		m.lastEventID = msg.EventID
		return m, waitForMsg(m.feed)
	case HeartbeatMsg:
		m.lastEventID = msg.EventID
		return m, waitForMsg(m.feed)
	case ConnMsg:
		m.connected = msg.Connected
		m.err = msg.Err
		return m, waitForMsg(m.feed)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sleepy") + dimStyle.Render(" · "+m.server))
	b.WriteString("  ")
	switch {
	case m.connected:
		b.WriteString(usingStyle.Render("● live"))
	case m.err != nil:
		b.WriteString(errorStyle.Render("● reconnecting: " + m.err.Error()))
	default:
		b.WriteString(idleStyle.Render("● connecting"))
	}
	b.WriteString("\n")

	if m.view == nil {
		b.WriteString(sectionStyle.Render(dimStyle.Render("waiting for first update...")))
		b.WriteString("\n")
		return b.String()
	}

	st := m.view.Status
	line := fmt.Sprintf("%s %s", st.Icon, st.Name)
	b.WriteString(sectionStyle.Render(statusStyle(st).Render(line)))
	if st.Description != "" {
		b.WriteString(dimStyle.Render("  " + st.Description))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(titleStyle.Render(fmt.Sprintf("Devices (%d)", len(m.view.Device)))))
	b.WriteString("\n")
	if len(m.view.Device) == 0 {
		b.WriteString(dimStyle.Render("  no devices reporting") + "\n")
	}
	for _, d := range m.view.Device {
		b.WriteString("  " + deviceLine(d) + "\n")
	}

	b.WriteString(sectionStyle.Render(dimStyle.Render(fmt.Sprintf(
		"updated %s · event #%d · q to quit",
		m.view.LastUpdated.Time().Format("15:04:05"), m.lastEventID,
	))))
	b.WriteString("\n")
	return b.String()
}

func statusStyle(st models.StatusDefinition) lipgloss.Style {
	color := st.Color
	if !strings.HasPrefix(color, "#") {
		var ok bool
		if color, ok = statusColors[color]; !ok {
			color = "#a3a3a3"
		}
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

func deviceLine(d models.DeviceRecord) string {
	marker := idleStyle.Render("○")
	if d.Using {
		marker = usingStyle.Render("●")
	}

	parts := []string{marker, d.ShowName}
	switch {
	case d.ActiveApp != nil && d.ActiveApp.Title != "":
		parts = append(parts, d.ActiveApp.Name+": "+d.ActiveApp.Title)
	case d.ActiveApp != nil:
		parts = append(parts, d.ActiveApp.Name)
	case d.Status != "":
		parts = append(parts, d.Status)
	}
	if d.BatteryPercent != nil {
		battery := fmt.Sprintf("%d%%", *d.BatteryPercent)
		if d.BatteryStatus == models.BatteryCharging {
			battery += " ⚡"
		}
		parts = append(parts, battery)
	}
	parts = append(parts, dimStyle.Render(d.LastSeen.Time().Format("15:04:05")))
	return strings.Join(parts, "  ")
}
