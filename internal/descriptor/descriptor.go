// Package descriptor defines test descriptors: versioned bundles describing
// which network measurements to run, with which inputs, and how to present them.
package descriptor

import (
	"maps"
	"slices"
	"strconv"
	"time"
)

// NetTest is a single measurement inside a descriptor.
type NetTest struct {
	Name    string         `json:"name" yaml:"name"`
	Inputs  []string       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`

	BackgroundRunEnabled bool `json:"backgroundRunEnabled,omitempty" yaml:"backgroundRunEnabled,omitempty"`
	ManualRunEnabled     bool `json:"manualRunEnabled,omitempty" yaml:"manualRunEnabled,omitempty"`
}

// Clone returns a deep copy of the net-test.
func (t NetTest) Clone() NetTest {
	c := t
	c.Inputs = slices.Clone(t.Inputs)
	c.Options = maps.Clone(t.Options)
	return c
}

// Descriptor is an installed test descriptor.
//
// ID and Revision identify a stored row. AutoUpdate and RejectedRevision are
// owned by the user; every other field is payload owned by the remote service
// and is replaced wholesale on update.
type Descriptor struct {
	ID       string `json:"id"`
	Revision int64  `json:"revision"`

	Name             string    `json:"name"`
	ShortDescription string    `json:"shortDescription,omitempty"`
	Description      string    `json:"description,omitempty"`
	Author           string    `json:"author,omitempty"`
	Icon             string    `json:"icon,omitempty"`
	Color            string    `json:"color,omitempty"`
	Animation        string    `json:"animation,omitempty"`
	NetTests         []NetTest `json:"netTests,omitempty"`
	LongRunningTests []NetTest `json:"longRunningNetTests,omitempty"`

	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	DateCreated    *time.Time `json:"dateCreated,omitempty"`
	DateUpdated    *time.Time `json:"dateUpdated,omitempty"`
	DateInstalled  *time.Time `json:"dateInstalled,omitempty"`
	IsExpired      bool       `json:"isExpired,omitempty"`

	AutoUpdate       bool   `json:"autoUpdate"`
	RejectedRevision *int64 `json:"rejectedRevision,omitempty"`

	// Builtin marks the suites shipped with the client; they are never fetched.
	Builtin bool `json:"builtin,omitempty"`
}

// Key identifies a single stored revision of a descriptor.
type Key struct {
	ID       string
	Revision int64
}

// String returns "<id>@<revision>".
func (k Key) String() string {
	return k.ID + "@" + strconv.FormatInt(k.Revision, 10)
}

// Key returns the storage key of the descriptor.
func (d *Descriptor) Key() Key {
	return Key{ID: d.ID, Revision: d.Revision}
}

// Source returns the run-specification identity of the descriptor.
func (d *Descriptor) Source() Source {
	if d.Builtin {
		return Default(d.ID)
	}
	return Installed(d.ID)
}

// Expired reports whether the descriptor may no longer be run.
// The server flag wins; otherwise the expiration date is compared with now.
func (d *Descriptor) Expired(now time.Time) bool {
	if d.IsExpired {
		return true
	}
	return d.ExpirationDate != nil && d.ExpirationDate.Before(now)
}

// AllTests returns the ordinary and long-running net-tests together.
func (d *Descriptor) AllTests() []NetTest {
	all := make([]NetTest, 0, len(d.NetTests)+len(d.LongRunningTests))
	all = append(all, d.NetTests...)
	return append(all, d.LongRunningTests...)
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.NetTests = cloneTests(d.NetTests)
	c.LongRunningTests = cloneTests(d.LongRunningTests)
	c.ExpirationDate = cloneTime(d.ExpirationDate)
	c.DateCreated = cloneTime(d.DateCreated)
	c.DateUpdated = cloneTime(d.DateUpdated)
	c.DateInstalled = cloneTime(d.DateInstalled)
	if d.RejectedRevision != nil {
		r := *d.RejectedRevision
		c.RejectedRevision = &r
	}
	return &c
}

// Latest reduces ds to the highest revision of each id, ordered by first
// appearance of the id in ds.
func Latest(ds []Descriptor) []Descriptor {
	index := make(map[string]int, len(ds))
	var out []Descriptor
	for _, d := range ds {
		i, ok := index[d.ID]
		if !ok {
			index[d.ID] = len(out)
			out = append(out, d)
			continue
		}
		if d.Revision > out[i].Revision {
			out[i] = d
		}
	}
	return out
}

// FindByID returns the descriptor with the given id, if present.
func FindByID(ds []Descriptor, id string) (Descriptor, bool) {
	for _, d := range ds {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func cloneTests(ts []NetTest) []NetTest {
	if ts == nil {
		return nil
	}
	out := make([]NetTest, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
