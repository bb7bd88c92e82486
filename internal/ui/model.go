// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines display state and update logic
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const statsInterval = 250 * time.Millisecond

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string
	sessionID  string

	// Output
	backend string
	format  string

	// Playback
	state  string
	reason string

	// Stats
	chunks int64
	bytes  int64
	played time.Duration

	stats    func() StatsMsg
	onQuit   func()
	quitting bool

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state. Empty fields leave the current value.
type StatusMsg struct {
	Connected  *bool
	ServerName string
	SessionID  string
	Backend    string
	Format     string
	State      string
	Reason     string
}

// StatsMsg carries live relay counters
type StatsMsg struct {
	Chunks int64
	Bytes  int64
	Played time.Duration
}

type tickMsg time.Time

// Init starts the stats ticker when a stats source is set
func (m Model) Init() tea.Cmd {
	if m.stats == nil {
		return nil
	}
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case StatsMsg:
		m.applyStats(msg)
	case tickMsg:
		if m.stats != nil {
			m.applyStats(m.stats())
		}
		return m, tickEvery()
	}

	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping client...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("SoundDrift Player"))
	b.WriteString("\n\n")

	connStatus := "Disconnected"
	if m.connected {
		connStatus = "Connected to " + m.serverName
	} else if m.serverName != "" {
		connStatus = "Server " + m.serverName
	}
	m.field(&b, "Status: ", connStatus)
	if m.sessionID != "" {
		m.field(&b, "Session: ", m.sessionID)
	}
	m.field(&b, "Output: ", m.backend)
	m.field(&b, "Format: ", m.format)

	b.WriteString(headerStyle.Render("State: "))
	state := m.state
	if m.reason != "" {
		state += " (" + m.reason + ")"
	}
	b.WriteString(stateStyle.Render(state))
	b.WriteString("\n\n")

	m.field(&b, "Chunks: ", fmt.Sprintf("%d", m.chunks))
	m.field(&b, "Received: ", formatBytes(m.bytes))
	m.field(&b, "Played: ", m.played.Round(100*time.Millisecond).String())

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) field(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	b.WriteString(headerStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.quitting && m.onQuit != nil {
			m.onQuit()
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Format != "" {
		m.format = msg.Format
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Reason != "" {
		m.reason = msg.Reason
	}
}

func (m *Model) applyStats(msg StatsMsg) {
	m.chunks = msg.Chunks
	m.bytes = msg.Bytes
	m.played = msg.Played
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
