package updates

import (
	"context"
	"slices"
	"sync"

	"github.com/probekit/probekit/internal/descriptor"
)

// OperationState is the phase of the update machinery shown to the UI.
type OperationState int

const (
	// Idle means no pass is running and nothing needs review.
	Idle OperationState = iota
	// FetchingUpdates is published for the duration of a resolution pass.
	FetchingUpdates
	// ReviewNecessaryNotice means the last pass queued updates for review.
	ReviewNecessaryNotice
)

// String returns the lower-case name of the state.
func (s OperationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingUpdates:
		return "fetching"
	case ReviewNecessaryNotice:
		return "review"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is one consistent view of the update state.
type Snapshot struct {
	AvailableUpdates []descriptor.Descriptor `json:"availableUpdates"`
	AutoUpdated      []descriptor.Descriptor `json:"autoUpdated"`
	OperationState   OperationState          `json:"operationState"`
}

// Pending returns the queued update for id, if any.
func (s Snapshot) Pending(id string) (descriptor.Descriptor, bool) {
	return descriptor.FindByID(s.AvailableUpdates, id)
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		AvailableUpdates: cloneAll(s.AvailableUpdates),
		AutoUpdated:      cloneAll(s.AutoUpdated),
		OperationState:   s.OperationState,
	}
}

// State holds the process-wide update state. Update is the only mutator;
// readers get copies, so a snapshot never changes under them.
type State struct {
	mu          sync.Mutex
	current     Snapshot
	subscribers map[chan Snapshot]struct{}
}

// NewState returns an empty, idle state.
func NewState() *State {
	return &State{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// Update applies fn to the current state and publishes the result.
func (s *State) Update(fn func(Snapshot) Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = fn(s.current.clone()).clone()
	for ch := range s.subscribers {
		offer(ch, s.current.clone())
	}
}

// Subscribe returns a channel that receives the current snapshot and then
// every change until ctx is done. A slow reader only misses intermediate
// snapshots; the latest one is always delivered.
func (s *State) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.current.clone()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// offer replaces any undelivered snapshot in ch with snap.
// Must be called with the state lock held.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// withoutUpdate removes d from set. Matching is by id and revision, so
// removing an unknown descriptor leaves set unchanged.
func withoutUpdate(set []descriptor.Descriptor, d descriptor.Descriptor) []descriptor.Descriptor {
	return slices.DeleteFunc(slices.Clone(set), func(x descriptor.Descriptor) bool {
		return x.Key() == d.Key()
	})
}

func cloneAll(ds []descriptor.Descriptor) []descriptor.Descriptor {
	if ds == nil {
		return nil
	}
	out := make([]descriptor.Descriptor, len(ds))
	for i := range ds {
		out[i] = *ds[i].Clone()
	}
	return out
}
