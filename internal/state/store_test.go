package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

var updatedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func testDescriptor(id string, revision int64) descriptor.Descriptor {
	ts := updatedAt.Add(time.Duration(revision) * time.Hour)
	return descriptor.Descriptor{
		ID:          id,
		Revision:    revision,
		Name:        "Descriptor " + id,
		Author:      "ooni",
		DateUpdated: &ts,
		NetTests: []descriptor.NetTest{
			{Name: "web_connectivity", Inputs: []string{"https://example.org"}},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "path")
	_, err := NewStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Version, doc.Version)
	assert.Empty(t, doc.Descriptors)
}

func TestStore_CreateOrIgnore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))

	changed := testDescriptor("a", 1)
	changed.Name = "changed"
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{changed, testDescriptor("b", 1)}))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Descriptor a", all[0].Name, "existing row is not replaced")
	assert.Equal(t, "b", all[1].ID)
}

func TestStore_CreateOrUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))

	changed := testDescriptor("a", 1)
	changed.Name = "changed"
	require.NoError(t, store.CreateOrUpdate(ctx, []descriptor.Descriptor{changed, testDescriptor("a", 2)}))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "every revision is kept")
	assert.Equal(t, "changed", all[0].Name)

	latest, err := store.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, int64(2), latest[0].Revision)
}

func TestStore_CreateOrUpdate_PreservesRejectedRevision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))
	rejected := int64(3)
	require.NoError(t, store.SetRejectedRevision(ctx, "a", &rejected))

	// The payload carries no rejected revision; the stored one wins.
	require.NoError(t, store.CreateOrUpdate(ctx, []descriptor.Descriptor{testDescriptor("a", 2)}))

	latest, err := store.ListLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest[0].RejectedRevision)
	assert.Equal(t, int64(3), *latest[0].RejectedRevision)
}

func TestStore_SetRejectedRevision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1), testDescriptor("a", 2)}))

	rejected := int64(4)
	require.NoError(t, store.SetRejectedRevision(ctx, "a", &rejected))
	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	for _, d := range all {
		require.NotNil(t, d.RejectedRevision)
		assert.Equal(t, int64(4), *d.RejectedRevision)
	}

	require.NoError(t, store.SetRejectedRevision(ctx, "a", nil))
	all, err = store.ListAll(ctx)
	require.NoError(t, err)
	for _, d := range all {
		assert.Nil(t, d.RejectedRevision)
	}
}

func TestStore_SetRejectedRevision_Unknown(t *testing.T) {
	store := newTestStore(t)

	err := store.SetRejectedRevision(context.Background(), "missing", nil)

	var dErr *pkerrors.DescriptorError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, pkerrors.CodeDescriptorNotFound, dErr.Base.Code)
}

func TestStore_AtomicWrite(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(context.Background(), []descriptor.Descriptor{testDescriptor("a", 1)}))

	_, err := os.Stat(store.StatePath() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not exist after successful save")

	data, err := os.ReadFile(store.StatePath())
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, Version, doc.Version)
	assert.Len(t, doc.Descriptors, 1)
}

func TestStore_LockHeldByOtherProcess(t *testing.T) {
	store := newTestStore(t)
	store.SetLockTimeout(100 * time.Millisecond)

	other := flock.New(store.LockPath())
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	err = store.CreateOrIgnore(context.Background(), []descriptor.Descriptor{testDescriptor("a", 1)})

	var stErr *pkerrors.StateError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, pkerrors.CodeStateLocked, stErr.Base.Code)
	assert.Equal(t, store.LockPath(), stErr.LockFile)
}

func TestStore_LockFileContainsPID(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(context.Background(), []descriptor.Descriptor{testDescriptor("a", 1)}))

	pid, err := store.readLockPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			assert.NoError(t, store.CreateOrUpdate(ctx, []descriptor.Descriptor{testDescriptor("a", int64(i+1))}))
		})
	}
	wg.Wait()

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.StatePath(), []byte("{not json"), 0644))

	_, err := store.ListAll(context.Background())

	var stErr *pkerrors.StateError
	require.ErrorAs(t, err, &stErr)
	assert.Contains(t, stErr.Base.Hint, BackupPath(store.StatePath()))
}

func TestStore_Backup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	backup, err := store.LoadBackup()
	require.NoError(t, err)
	assert.Nil(t, backup, "no backup before the second write")

	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))
	require.NoError(t, store.CreateOrUpdate(ctx, []descriptor.Descriptor{testDescriptor("a", 2)}))

	backup, err = store.LoadBackup()
	require.NoError(t, err)
	require.NotNil(t, backup)
	require.Len(t, backup.Descriptors, 1)
	assert.Equal(t, int64(1), backup.Descriptors[0].Revision)
}

func TestStore_NoWriteWithoutChange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))
	require.NoError(t, store.CreateOrIgnore(ctx, []descriptor.Descriptor{testDescriptor("a", 1)}))

	backup, err := store.LoadBackup()
	require.NoError(t, err)
	assert.Nil(t, backup)
}

func TestBackupPath(t *testing.T) {
	assert.Equal(t, "/var/lib/probekit/descriptors.json.bak", BackupPath("/var/lib/probekit/descriptors.json"))
	assert.Equal(t, "descriptors.json.bak", BackupPath("descriptors.json"))
}
