package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/probekit/probekit/internal/descriptor"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, "hello"},
		{"→→→→", 3, "→→…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.s, tt.width))
	}
}

func TestReviewModel_View(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	queued := []descriptor.Descriptor{
		{ID: "10001", Revision: 3, Name: "Messaging"},
		{ID: "10002", Revision: 1, Name: "Fresh"},
	}
	installed := []descriptor.Descriptor{{ID: "10001", Revision: 2}}
	m := NewReviewModel(context.Background(), &fakeDecider{}, queued, installed)

	view := m.View()
	assert.Contains(t, view, "Descriptor updates to review (2)")
	assert.Contains(t, view, "› ")
	assert.Contains(t, view, "10001  Messaging  r2 → r3")
	assert.Contains(t, view, "10002  Fresh  new → r1")
	assert.Contains(t, view, "a accept")

	m.items[0].decision = accepted
	m.items[1].decision = rejected
	m.items[1].err = errors.New("store locked")
	m.done = true

	view = m.View()
	assert.Contains(t, view, "✓ 10001")
	assert.Contains(t, view, "✗ 10002")
	assert.Contains(t, view, "store locked")
	assert.NotContains(t, view, "a accept")
	assert.NotContains(t, view, "›")
}

func TestReviewModel_ViewNarrow(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	queued := []descriptor.Descriptor{{ID: "10001", Revision: 3, Name: "A very long descriptor name indeed"}}
	m := NewReviewModel(context.Background(), &fakeDecider{}, queued, nil)
	m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})

	assert.Contains(t, m.View(), "…")
}
