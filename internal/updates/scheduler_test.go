package updates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probekit/probekit/internal/descriptor"
)

func TestNewScheduler_RejectsShortInterval(t *testing.T) {
	r := NewResolver(newMemStore(), newMapFetcher(), NewState())

	_, err := NewScheduler(r, time.Second)
	require.Error(t, err)

	s, err := NewScheduler(r, MinCheckInterval)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestScheduler_RunsImmediatelyAndOnTrigger(t *testing.T) {
	store := newMemStore(installed("a", 1, at(0), false))
	fetcher := newMapFetcher(remote("a", 2, at(time.Hour)))
	r := NewResolver(store, fetcher, NewState())

	s, err := NewScheduler(r, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan Report, 4)
	s.OnReport(func(rep Report) { reports <- rep })

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case rep := <-reports:
		assert.Equal(t, 1, rep.Review)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial pass")
	}

	s.Trigger()
	select {
	case rep := <-reports:
		assert.Equal(t, 1, rep.Checked)
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not start a pass")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, ReviewNecessaryNotice, r.State().Snapshot().OperationState)
}

func TestScheduler_TriggerCoalesces(t *testing.T) {
	r := NewResolver(newMemStore(), newMapFetcher(), NewState())
	s, err := NewScheduler(r, time.Hour)
	require.NoError(t, err)

	s.Trigger()
	s.Trigger()
	s.Trigger()

	assert.Len(t, s.trigger, 1)
}

func TestScheduler_SkipsTickWhilePassRuns(t *testing.T) {
	old := installed("a", 1, at(0), false)
	fetcher := newMapFetcher(remote("a", 2, at(time.Hour)))
	fetcher.delay = time.Minute
	r := NewResolver(newMemStore(old), fetcher, NewState())

	s, err := NewScheduler(r, time.Hour)
	require.NoError(t, err)
	var reports int
	s.OnReport(func(Report) { reports++ })

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	r.SetEventHandler(func(ev Event) {
		if ev.Type == EventStart {
			close(started)
		}
	})

	done := make(chan Report, 1)
	go func() { done <- r.Resolve(ctx, []descriptor.Descriptor{old}) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("pass did not start")
	}

	s.runOnce(context.Background())
	assert.Equal(t, 0, reports)

	cancel()
	select {
	case rep := <-done:
		assert.True(t, rep.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pass did not stop")
	}

	fetcher.mu.Lock()
	assert.Equal(t, 1, fetcher.calls["a"])
	fetcher.mu.Unlock()
}
