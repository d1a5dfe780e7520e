package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLogStore_RecordAndFailures(t *testing.T) {
	store := NewStore(t.TempDir())

	store.RecordFailure("pass-1", "10002", errors.New("timeout"))
	store.RecordFailure("pass-1", "10001", errors.New("not found"))
	store.RecordFailure("pass-2", "10003", errors.New("other pass"))

	failed := store.Failures("pass-1")
	require.Len(t, failed, 2)
	assert.Equal(t, "10001", failed[0].ID)
	assert.Equal(t, "10002", failed[1].ID)
	require.EqualError(t, failed[0].Error, "not found")

	assert.Len(t, store.Failures("pass-2"), 1)
	assert.Empty(t, store.Failures("unknown"))
}

func TestLogStore_RecordFailure_Concurrent(t *testing.T) {
	store := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			store.RecordFailure("pass", fmt.Sprintf("%05d", i), errors.New("boom"))
		})
	}
	wg.Wait()

	assert.Len(t, store.Failures("pass"), 50)
}

func TestLogStore_Flush(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)
	store.now = fixedClock(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))

	cause := errors.New("connection refused")
	store.RecordFailure("0123456789abcdef", "10001", fmt.Errorf("fetch 10001: %w", cause))

	require.NoError(t, store.Flush("0123456789abcdef"))

	sessionDir := filepath.Join(tmpDir, "20260304T050607_01234567")
	content, err := os.ReadFile(filepath.Join(sessionDir, "10001.log"))
	require.NoError(t, err)

	s := string(content)
	assert.Contains(t, s, "# Pass: 0123456789abcdef\n")
	assert.Contains(t, s, "# Descriptor: 10001\n")
	assert.Contains(t, s, "# Timestamp: 2026-03-04T05:06:07Z\n")
	assert.Contains(t, s, "# Error: fetch 10001: connection refused\n")
	assert.Contains(t, s, "*errors.errorString: connection refused\n")

	// Flushed failures are forgotten.
	assert.Empty(t, store.Failures("0123456789abcdef"))
}

func TestLogStore_Flush_NoFailures(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	require.NoError(t, store.Flush("pass"))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogStore_Flush_EscapesIDs(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	store.RecordFailure("pass", "team/link", errors.New("boom"))
	require.NoError(t, store.Flush("pass"))

	sessions, err := ListSessions(tmpDir)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	logs, err := ReadSessionLogs(sessions[0].Dir)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "team/link", logs[0].ID)
}

func TestLogStore_Cleanup(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		store.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		pass := fmt.Sprintf("pass%04d", i)
		store.RecordFailure(pass, "10001", errors.New("boom"))
		require.NoError(t, store.Flush(pass))
	}

	require.NoError(t, store.Cleanup(2))

	sessions, err := ListSessions(tmpDir)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "pass0004", sessions[0].PassID)
	assert.Equal(t, "pass0003", sessions[1].PassID)
}

func TestLogStore_Cleanup_FewSessions(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	store.RecordFailure("pass", "10001", errors.New("boom"))
	require.NoError(t, store.Flush("pass"))

	require.NoError(t, store.Cleanup(DefaultKeepSessions))

	sessions, err := ListSessions(tmpDir)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
