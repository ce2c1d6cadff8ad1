// Package ui provides the Bubble Tea presentation layer for Punchcard.
//
// The UI never reaches into the session controller's internals: it drains
// the controller's event channel as wake-ups, re-reads the authoritative
// state via Snapshot, and drives operations through the controller's
// methods, each wrapped in a command so network I/O never blocks Update.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"punchcard/internal/session"
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller *session.Controller
	ThemeName  string
}

// Run starts the TUI and blocks until the user exits or the context is
// cancelled.
func Run(opts Options) error {
	model := New(opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(opts.Context))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
