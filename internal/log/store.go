package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	sessionTimeFormat = "20060102T150405"

	// DefaultKeepSessions is how many pass logs Cleanup keeps by default.
	DefaultKeepSessions = 20
)

// Failure is one descriptor that could not be fetched during a pass.
type Failure struct {
	ID    string
	Error error
	Time  time.Time
}

// Store collects fetch failures per resolution pass and writes one log
// file per failed descriptor into a session directory named after the pass.
// Passes without failures leave nothing on disk.
type Store struct {
	baseDir string
	now     func() time.Time

	mu       sync.Mutex
	failures map[string][]Failure // by pass id
	started  map[string]time.Time
}

// NewStore creates a Store writing under baseDir.
func NewStore(baseDir string) *Store {
	return &Store{
		baseDir:  baseDir,
		now:      time.Now,
		failures: make(map[string][]Failure),
		started:  make(map[string]time.Time),
	}
}

// RecordFailure remembers that id failed in passID. It is safe for
// concurrent use.
func (s *Store) RecordFailure(passID, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, ok := s.started[passID]; !ok {
		s.started[passID] = now
	}
	s.failures[passID] = append(s.failures[passID], Failure{ID: id, Error: err, Time: now})
}

// Failures returns the failures recorded for passID, sorted by id.
func (s *Store) Failures(passID string) []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]Failure(nil), s.failures[passID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Flush writes the failures of passID to disk and forgets them.
func (s *Store) Flush(passID string) error {
	s.mu.Lock()
	failures := s.failures[passID]
	started := s.started[passID]
	delete(s.failures, passID)
	delete(s.started, passID)
	s.mu.Unlock()

	if len(failures) == 0 {
		return nil
	}

	dir := filepath.Join(s.baseDir, sessionName(started, passID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	var errs []error
	for _, f := range failures {
		path := filepath.Join(dir, logFilename(f.ID))
		if err := os.WriteFile(path, []byte(buildLogContent(passID, f)), 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write log for %s: %w", f.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Cleanup removes old session directories, keeping the most recent keepSessions.
func (s *Store) Cleanup(keepSessions int) error {
	sessions, err := ListSessions(s.baseDir)
	if err != nil {
		return err
	}
	if len(sessions) <= keepSessions {
		return nil
	}

	// ListSessions is newest first.
	for _, sess := range sessions[keepSessions:] {
		if err := os.RemoveAll(sess.Dir); err != nil {
			return fmt.Errorf("failed to remove old session %s: %w", sess.ID, err)
		}
	}
	return nil
}

// sessionName is "<timestamp>_<first 8 characters of the pass id>".
func sessionName(started time.Time, passID string) string {
	short := passID
	if len(short) > 8 {
		short = short[:8]
	}
	return started.UTC().Format(sessionTimeFormat) + "_" + short
}

// logFilename escapes path separators so any id maps to one file.
func logFilename(id string) string {
	r := strings.NewReplacer("/", "%2F", `\`, "%5C")
	return r.Replace(id) + ".log"
}

// buildLogContent creates the log file content with a header followed by
// the error chain, outermost first.
func buildLogContent(passID string, f Failure) string {
	var b strings.Builder
	fmt.Fprintln(&b, "# probekit fetch failure log")
	fmt.Fprintf(&b, "# Pass: %s\n", passID)
	fmt.Fprintf(&b, "# Descriptor: %s\n", f.ID)
	fmt.Fprintf(&b, "# Timestamp: %s\n", f.Time.UTC().Format(time.RFC3339))
	if f.Error != nil {
		fmt.Fprintf(&b, "# Error: %v\n", f.Error)
	}
	b.WriteByte('\n')
	for err := f.Error; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(&b, "%T: %v\n", err, err)
	}
	return b.String()
}
