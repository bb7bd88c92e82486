// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Options wires the TUI to the player
type Options struct {
	// OnQuit runs once when the operator presses q or ctrl+c
	OnQuit func()
	// Stats is polled for live counters
	Stats func() StatsMsg
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	return Model{
		state:  "idle",
		stats:  opts.Stats,
		onQuit: opts.OnQuit,
	}
}

// New creates the TUI program without starting it
func New(opts Options) *tea.Program {
	return tea.NewProgram(NewModel(opts), tea.WithAltScreen())
}
