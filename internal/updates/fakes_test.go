package updates

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/probekit/probekit/internal/descriptor"
)

// memStore is an in-memory Store keeping every revision.
type memStore struct {
	mu          sync.Mutex
	rows        map[descriptor.Key]descriptor.Descriptor
	order       []descriptor.Key
	upserts     int
	upsertErr   error
	rejectedErr error
}

func newMemStore(ds ...descriptor.Descriptor) *memStore {
	s := &memStore{rows: make(map[descriptor.Key]descriptor.Descriptor)}
	_ = s.CreateOrIgnore(context.Background(), ds)
	return s
}

func (s *memStore) CreateOrIgnore(_ context.Context, ds []descriptor.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		if _, ok := s.rows[d.Key()]; ok {
			continue
		}
		s.rows[d.Key()] = *d.Clone()
		s.order = append(s.order, d.Key())
	}
	return nil
}

func (s *memStore) CreateOrUpdate(_ context.Context, ds []descriptor.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	for _, d := range ds {
		c := *d.Clone()
		if existing, ok := s.latestLocked(d.ID); ok {
			c.RejectedRevision = existing.RejectedRevision
		}
		if _, ok := s.rows[d.Key()]; !ok {
			s.order = append(s.order, d.Key())
		}
		s.rows[d.Key()] = c
	}
	return nil
}

func (s *memStore) ListAll(_ context.Context) ([]descriptor.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]descriptor.Descriptor, 0, len(s.order))
	for _, k := range s.order {
		d := s.rows[k]
		out = append(out, *d.Clone())
	}
	return out, nil
}

func (s *memStore) ListLatest(ctx context.Context) ([]descriptor.Descriptor, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return descriptor.Latest(all), nil
}

func (s *memStore) SetRejectedRevision(_ context.Context, id string, revision *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectedErr != nil {
		return s.rejectedErr
	}
	found := false
	for k, d := range s.rows {
		if k.ID != id {
			continue
		}
		found = true
		if revision == nil {
			d.RejectedRevision = nil
		} else {
			r := *revision
			d.RejectedRevision = &r
		}
		s.rows[k] = d
	}
	if !found {
		return errors.New("not found")
	}
	return nil
}

func (s *memStore) latestLocked(id string) (descriptor.Descriptor, bool) {
	var (
		best  descriptor.Descriptor
		found bool
	)
	for k, d := range s.rows {
		if k.ID == id && (!found || k.Revision > best.Revision) {
			best, found = d, true
		}
	}
	return best, found
}

func (s *memStore) latest(id string) descriptor.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, _ := s.latestLocked(id)
	return d
}

func (s *memStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// mapFetcher serves descriptors from a map; ids listed in errs fail.
type mapFetcher struct {
	mu    sync.Mutex
	docs  map[string]descriptor.Descriptor
	errs  map[string]error
	calls map[string]int
	delay time.Duration
}

func newMapFetcher(ds ...descriptor.Descriptor) *mapFetcher {
	f := &mapFetcher{
		docs:  make(map[string]descriptor.Descriptor),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, d := range ds {
		f.docs[d.ID] = d
	}
	return f
}

func (f *mapFetcher) Fetch(ctx context.Context, id string) (*descriptor.Descriptor, error) {
	f.mu.Lock()
	f.calls[id]++
	d, ok := f.docs[id]
	err := f.errs[id]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("not found: " + id)
	}
	return d.Clone(), nil
}

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := baseTime.Add(offset)
	return &t
}

func rev(n int64) *int64 {
	return &n
}

func installed(id string, revision int64, updated *time.Time, autoUpdate bool) descriptor.Descriptor {
	return descriptor.Descriptor{
		ID:          id,
		Revision:    revision,
		Name:        "descriptor " + id,
		DateUpdated: updated,
		AutoUpdate:  autoUpdate,
		NetTests:    []descriptor.NetTest{{Name: "web_connectivity", Inputs: []string{"https://example.org"}}},
	}
}

func remote(id string, revision int64, updated *time.Time) descriptor.Descriptor {
	return descriptor.Descriptor{
		ID:          id,
		Revision:    revision,
		Name:        "descriptor " + id + " (remote)",
		DateUpdated: updated,
		NetTests:    []descriptor.NetTest{{Name: "web_connectivity", Inputs: []string{"https://example.net"}}},
	}
}
