package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

const (
	stateFile = "descriptors.json"
	lockFile  = "descriptors.lock"

	// DefaultLockTimeout bounds how long a write waits for another process.
	DefaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// Store persists descriptors in a JSON file guarded by a file lock.
// Each write is a single read-modify-write cycle under the lock, so a batch
// is applied entirely or not at all.
type Store struct {
	statePath   string
	lockPath    string
	fileLock    *flock.Flock
	lockTimeout time.Duration

	// mu serializes writers within the process; flock is per process.
	mu sync.Mutex
}

// NewStore creates a Store in dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	lockPath := filepath.Join(dir, lockFile)
	return &Store{
		statePath:   filepath.Join(dir, stateFile),
		lockPath:    lockPath,
		fileLock:    flock.New(lockPath),
		lockTimeout: DefaultLockTimeout,
	}, nil
}

// SetLockTimeout sets how long writes wait for the file lock.
func (s *Store) SetLockTimeout(d time.Duration) {
	s.lockTimeout = d
}

// StatePath returns the path to the descriptor file.
func (s *Store) StatePath() string {
	return s.statePath
}

// LockPath returns the path to the lock file.
func (s *Store) LockPath() string {
	return s.lockPath
}

// CreateOrIgnore inserts descriptors whose (id, revision) is not stored yet.
func (s *Store) CreateOrIgnore(ctx context.Context, ds []descriptor.Descriptor) error {
	return s.update(ctx, func(doc *Document) bool {
		changed := false
		for _, d := range ds {
			if doc.index(d.Key()) >= 0 {
				continue
			}
			doc.Descriptors = append(doc.Descriptors, *d.Clone())
			changed = true
		}
		return changed
	})
}

// CreateOrUpdate inserts or replaces descriptors by (id, revision). The
// stored rejected revision of an id is kept; only SetRejectedRevision
// changes it.
func (s *Store) CreateOrUpdate(ctx context.Context, ds []descriptor.Descriptor) error {
	return s.update(ctx, func(doc *Document) bool {
		for _, d := range ds {
			c := d.Clone()
			if existing, ok := doc.latest(d.ID); ok {
				c.RejectedRevision = existing.RejectedRevision
			}
			if i := doc.index(d.Key()); i >= 0 {
				doc.Descriptors[i] = *c
			} else {
				doc.Descriptors = append(doc.Descriptors, *c)
			}
		}
		return len(ds) > 0
	})
}

// ListAll returns every stored revision in insertion order.
func (s *Store) ListAll(_ context.Context) ([]descriptor.Descriptor, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Descriptors, nil
}

// ListLatest returns the highest revision of each id.
func (s *Store) ListLatest(ctx context.Context) ([]descriptor.Descriptor, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return descriptor.Latest(all), nil
}

// SetRejectedRevision records (or clears, when revision is nil) the declined
// revision on every stored revision of id.
func (s *Store) SetRejectedRevision(ctx context.Context, id string, revision *int64) error {
	found := false
	err := s.update(ctx, func(doc *Document) bool {
		for i := range doc.Descriptors {
			if doc.Descriptors[i].ID != id {
				continue
			}
			found = true
			if revision == nil {
				doc.Descriptors[i].RejectedRevision = nil
			} else {
				r := *revision
				doc.Descriptors[i].RejectedRevision = &r
			}
		}
		return found
	})
	if err != nil {
		return err
	}
	if !found {
		return pkerrors.NewDescriptorNotFoundError(id)
	}
	return nil
}

// Load reads the descriptor file without taking the lock. Writes replace
// the file atomically, so a reader always sees a complete document.
// Returns a new empty document if the file doesn't exist.
func (s *Store) Load() (*Document, error) {
	doc, err := readDocument(s.statePath)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return NewDocument(), nil
	}
	logWarnings(Validate(doc))
	return doc, nil
}

// update runs fn on the current document under both locks and saves the
// result when fn reports a change.
func (s *Store) update(ctx context.Context, fn func(doc *Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.fileLock.Unlock(); err != nil {
			slog.Warn("failed to release descriptor store lock", "error", err)
		}
	}()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}
	if err := s.createBackup(); err != nil {
		return err
	}
	return s.save(doc)
}

// lock acquires the file lock, retrying until the lock timeout. On success
// it writes the current PID to the lock file.
func (s *Store) lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
	if !locked {
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return pkerrors.NewStateError("failed to acquire lock", err)
		}
		pid, _ := s.readLockPID()
		return pkerrors.NewLockError(s.lockPath, pid)
	}

	if err := os.WriteFile(s.lockPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		_ = s.fileLock.Unlock()
		return pkerrors.NewStateError("failed to write PID to lock file", err)
	}
	return nil
}

// save writes doc atomically.
func (s *Store) save(doc *Document) error {
	doc.Version = Version
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pkerrors.NewStateError("failed to marshal descriptors", err)
	}
	if err := writeAtomic(s.statePath, data); err != nil {
		return pkerrors.NewStateError("failed to write descriptor file", err)
	}
	return nil
}

func (s *Store) readLockPID() (int, error) {
	data, err := os.ReadFile(s.lockPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// readDocument returns nil, nil when path does not exist.
func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkerrors.NewStateError("failed to read descriptor file", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		stErr := pkerrors.NewStateError("failed to parse descriptor file", err)
		stErr.Base.Hint = fmt.Sprintf("Restore %s or remove %s to start over.", BackupPath(path), path)
		return nil, stErr
	}
	return &doc, nil
}

// writeAtomic writes data to a temp file next to path and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
