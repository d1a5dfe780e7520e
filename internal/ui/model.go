package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/probekit/probekit/internal/descriptor"
)

const maxSlogLines = 5

// Decider applies the user's choice for one queued update.
// *updates.Resolver implements it.
type Decider interface {
	Accept(ctx context.Context, d descriptor.Descriptor) error
	Reject(ctx context.Context, d descriptor.Descriptor) error
}

// decision is what the user chose for one queued update.
type decision int

const (
	undecided decision = iota
	pending            // call in flight
	accepted
	rejected
	skipped
)

// reviewItem is one queued update in the review list.
type reviewItem struct {
	update    descriptor.Descriptor
	installed int64 // 0 when the id is not installed
	decision  decision
	err       error
}

// ReviewResults counts the decisions of a review session.
type ReviewResults struct {
	Accepted int
	Rejected int
	Skipped  int
	Failed   int
}

// ReviewModel is the Bubble Tea model of the interactive update review.
type ReviewModel struct {
	ctx     context.Context
	decider Decider

	items     []reviewItem
	cursor    int
	slogLines []slogMsg

	done  bool
	width int
}

// NewReviewModel creates a review over the queued updates. installed is
// the latest installed view, used to show the revision being replaced.
func NewReviewModel(ctx context.Context, decider Decider, queued, installed []descriptor.Descriptor) *ReviewModel {
	items := make([]reviewItem, len(queued))
	for i, u := range queued {
		items[i] = reviewItem{update: u}
		if d, ok := descriptor.FindByID(installed, u.ID); ok {
			items[i].installed = d.Revision
		}
	}
	return &ReviewModel{
		ctx:     ctx,
		decider: decider,
		items:   items,
		width:   80,
	}
}

// Init implements tea.Model.
func (m *ReviewModel) Init() tea.Cmd {
	if len(m.items) == 0 {
		return tea.Quit
	}
	return nil
}

// Results counts the decisions taken so far. Undecided items count as skipped.
func (m *ReviewModel) Results() ReviewResults {
	var r ReviewResults
	for _, it := range m.items {
		switch {
		case it.err != nil:
			r.Failed++
		case it.decision == accepted:
			r.Accepted++
		case it.decision == rejected:
			r.Rejected++
		default:
			r.Skipped++
		}
	}
	return r
}

// FinalView returns the last frame for printing after the program exits.
func (m *ReviewModel) FinalView() string {
	return m.View()
}
