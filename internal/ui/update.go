package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m *ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case decisionDoneMsg:
		return m.handleDecisionDone(msg)

	case slogMsg:
		m.slogLines = append(m.slogLines, msg)
		if len(m.slogLines) > maxSlogLines {
			m.slogLines = m.slogLines[len(m.slogLines)-maxSlogLines:]
		}
		return m, nil
	}

	return m, nil
}

func (m *ReviewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.done = true
		if m.inFlight() {
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "a":
		return m, m.decide(m.cursor, accepted)
	case "r":
		return m, m.decide(m.cursor, rejected)
	case "s":
		if m.decidable(m.cursor) {
			m.items[m.cursor].decision = skipped
			m.advance()
		}
		return m, m.quitIfSettled()
	case "A":
		var cmds []tea.Cmd
		for i := range m.items {
			if cmd := m.decide(i, accepted); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// decidable reports whether item i may still receive a decision. Failed
// calls may be retried.
func (m *ReviewModel) decidable(i int) bool {
	if i < 0 || i >= len(m.items) {
		return false
	}
	it := m.items[i]
	return it.decision == undecided || it.err != nil
}

// decide marks item i pending and returns the command that applies d.
func (m *ReviewModel) decide(i int, d decision) tea.Cmd {
	if !m.decidable(i) {
		return nil
	}
	m.items[i].decision = pending
	m.items[i].err = nil
	m.advance()

	ctx, decider, update := m.ctx, m.decider, m.items[i].update
	return func() tea.Msg {
		var err error
		if d == accepted {
			err = decider.Accept(ctx, update)
		} else {
			err = decider.Reject(ctx, update)
		}
		return decisionDoneMsg{index: i, decision: d, err: err}
	}
}

func (m *ReviewModel) handleDecisionDone(msg decisionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.index < 0 || msg.index >= len(m.items) {
		return m, nil
	}
	it := &m.items[msg.index]
	it.decision = msg.decision
	it.err = msg.err
	return m, m.quitIfSettled()
}

// advance moves the cursor to the next item that still needs a decision.
func (m *ReviewModel) advance() {
	for off := 1; off <= len(m.items); off++ {
		i := (m.cursor + off) % len(m.items)
		if m.items[i].decision == undecided {
			m.cursor = i
			return
		}
	}
}

func (m *ReviewModel) inFlight() bool {
	for _, it := range m.items {
		if it.decision == pending {
			return true
		}
	}
	return false
}

// quitIfSettled quits once no call is in flight and either the user asked
// to leave or every item is decided without error.
func (m *ReviewModel) quitIfSettled() tea.Cmd {
	if m.inFlight() {
		return nil
	}
	if m.done {
		return tea.Quit
	}
	for _, it := range m.items {
		if it.decision == undecided || it.err != nil {
			return nil
		}
	}
	m.done = true
	return tea.Quit
}
