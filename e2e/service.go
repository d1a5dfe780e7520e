//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// link is one run link published by the fake descriptor service.
type link struct {
	Revision int64
	Name     string
	Updated  time.Time
	Tests    []string
}

// descriptorService is an in-process stand-in for the descriptor service.
// Links can be republished and made to fail while a suite runs.
type descriptorService struct {
	*httptest.Server

	mu       sync.Mutex
	links    map[string]link
	failing  map[string]int // id -> status code
	requests map[string]int
}

func newDescriptorService() *descriptorService {
	s := &descriptorService{
		links:    make(map[string]link),
		failing:  make(map[string]int),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// publish makes l the current version of id.
func (s *descriptorService) publish(id string, l link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[id] = l
	delete(s.failing, id)
}

// fail makes requests for id answer with status.
func (s *descriptorService) fail(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = status
}

func (s *descriptorService) requestCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *descriptorService) serve(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v2/oonirun/links/")

	s.mu.Lock()
	s.requests[id]++
	status, failing := s.failing[id]
	l, ok := s.links[id]
	s.mu.Unlock()

	switch {
	case failing:
		http.Error(w, "unavailable", status)
		return
	case !ok:
		http.NotFound(w, r)
		return
	}

	tests := make([]map[string]any, 0, len(l.Tests))
	for _, name := range l.Tests {
		tests = append(tests, map[string]any{
			"test_name":                         name,
			"is_background_run_enabled_default": true,
			"is_manual_run_enabled_default":     true,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Api-Version", "2.0.0")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"oonirun_link_id": id,
		"revision":        l.Revision,
		"name":            l.Name,
		"nettests":        tests,
		"date_updated":    l.Updated.UTC().Format(time.RFC3339),
	})
}
