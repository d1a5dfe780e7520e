package ui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// sender abstracts tea.Program.Send for testing.
type sender interface {
	Send(msg tea.Msg)
}

// decisionDoneMsg reports the result of an accept or reject call.
type decisionDoneMsg struct {
	index    int
	decision decision
	err      error
}

// slogMsg delivers a structured log record to the TUI model.
type slogMsg struct {
	level   slog.Level
	message string
}
