package state

import (
	"reflect"
	"sort"
	"time"

	"github.com/probekit/probekit/internal/descriptor"
)

// DiffType represents the type of change between two documents.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// DescriptorDiff represents a change to the latest revision of one id.
type DescriptorDiff struct {
	ID          string   `json:"id"`
	Type        DiffType `json:"type"`
	OldRevision int64    `json:"oldRevision,omitempty"`
	NewRevision int64    `json:"newRevision,omitempty"`
	Details     []string `json:"details,omitempty"`
}

// Diff holds the complete diff between two documents.
type Diff struct {
	Changes []DescriptorDiff `json:"changes"`
}

// HasChanges returns true if there are any differences.
func (d *Diff) HasChanges() bool {
	return len(d.Changes) > 0
}

// Summary returns counts of added, modified, and removed descriptors.
func (d *Diff) Summary() (added, modified, removed int) {
	for _, c := range d.Changes {
		switch c.Type {
		case DiffAdded:
			added++
		case DiffModified:
			modified++
		case DiffRemoved:
			removed++
		}
	}
	return
}

// DiffDocuments compares the latest view of two documents.
// old is the backup (before), current is the current document (after).
// A nil old is treated as empty.
func DiffDocuments(old, current *Document) *Diff {
	if old == nil {
		old = NewDocument()
	}
	oldMap := latestByID(old.Descriptors)
	curMap := latestByID(current.Descriptors)

	diff := &Diff{}
	for _, id := range collectKeys(oldMap, curMap) {
		o, inOld := oldMap[id]
		c, inCur := curMap[id]

		switch {
		case !inOld && inCur:
			diff.Changes = append(diff.Changes, DescriptorDiff{ID: id, Type: DiffAdded, NewRevision: c.Revision})
		case inOld && !inCur:
			diff.Changes = append(diff.Changes, DescriptorDiff{ID: id, Type: DiffRemoved, OldRevision: o.Revision})
		default:
			if details := compareDescriptors(o, c); len(details) > 0 {
				diff.Changes = append(diff.Changes, DescriptorDiff{
					ID:          id,
					Type:        DiffModified,
					OldRevision: o.Revision,
					NewRevision: c.Revision,
					Details:     details,
				})
			}
		}
	}
	return diff
}

func compareDescriptors(old, cur descriptor.Descriptor) []string {
	var details []string
	if old.Revision != cur.Revision {
		details = append(details, "revision changed")
	}
	if !sameTime(old.DateUpdated, cur.DateUpdated) {
		details = append(details, "content updated")
	}
	if !reflect.DeepEqual(old.AllTests(), cur.AllTests()) {
		details = append(details, "net-tests changed")
	}
	if old.AutoUpdate != cur.AutoUpdate {
		details = append(details, "auto-update changed")
	}
	if !sameRevision(old.RejectedRevision, cur.RejectedRevision) {
		details = append(details, "rejected revision changed")
	}
	return details
}

func latestByID(ds []descriptor.Descriptor) map[string]descriptor.Descriptor {
	out := make(map[string]descriptor.Descriptor)
	for _, d := range descriptor.Latest(ds) {
		out[d.ID] = d
	}
	return out
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameRevision(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// collectKeys returns the sorted union of keys from two maps.
func collectKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
