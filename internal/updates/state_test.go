package updates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probekit/probekit/internal/descriptor"
)

func TestOperationState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", FetchingUpdates.String())
	assert.Equal(t, "review", ReviewNecessaryNotice.String())
	assert.Equal(t, "unknown", OperationState(42).String())

	text, err := ReviewNecessaryNotice.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "review", string(text))
}

func TestState_SnapshotIsACopy(t *testing.T) {
	s := NewState()
	s.Update(func(Snapshot) Snapshot {
		return Snapshot{AvailableUpdates: []descriptor.Descriptor{remote("a", 2, at(0))}}
	})

	snap := s.Snapshot()
	snap.AvailableUpdates[0].Name = "changed"
	snap.AvailableUpdates = append(snap.AvailableUpdates, remote("b", 1, at(0)))

	got := s.Snapshot()
	require.Len(t, got.AvailableUpdates, 1)
	assert.Equal(t, "descriptor a (remote)", got.AvailableUpdates[0].Name)
}

func TestState_Subscribe(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)

	first := <-ch
	assert.Equal(t, Idle, first.OperationState)

	s.Update(func(snap Snapshot) Snapshot {
		snap.OperationState = FetchingUpdates
		return snap
	})
	assert.Equal(t, FetchingUpdates, (<-ch).OperationState)
}

func TestState_Subscribe_SlowReaderGetsLatest(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	for _, st := range []OperationState{FetchingUpdates, Idle, ReviewNecessaryNotice} {
		s.Update(func(snap Snapshot) Snapshot {
			snap.OperationState = st
			return snap
		})
	}

	assert.Equal(t, ReviewNecessaryNotice, (<-ch).OperationState)
	select {
	case snap := <-ch:
		t.Fatalf("unexpected extra snapshot %v", snap.OperationState)
	default:
	}
}

func TestState_Subscribe_ClosesOnCancel(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	<-ch

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Updates after unsubscribe must not block or panic.
	s.Update(func(snap Snapshot) Snapshot { return snap })
}

func TestWithoutUpdate(t *testing.T) {
	set := []descriptor.Descriptor{remote("a", 2, at(0)), remote("b", 3, at(0))}

	got := withoutUpdate(set, remote("a", 2, nil))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Len(t, set, 2, "input is not modified")

	assert.Len(t, withoutUpdate(set, remote("a", 1, nil)), 2, "revision must match")
}
