package state

import (
	"github.com/probekit/probekit/internal/descriptor"
)

// Version is the current descriptor file format version.
const Version = "1"

// Document is the on-disk layout of descriptors.json. Every stored revision
// is kept; readers reduce to the latest one per id.
type Document struct {
	Version     string                  `json:"version"`
	Descriptors []descriptor.Descriptor `json:"descriptors"`
}

// NewDocument creates a new empty Document.
func NewDocument() *Document {
	return &Document{Version: Version}
}

// index returns the position of key in the document, or -1.
func (d *Document) index(key descriptor.Key) int {
	for i := range d.Descriptors {
		if d.Descriptors[i].Key() == key {
			return i
		}
	}
	return -1
}

// latest returns the highest stored revision of id.
func (d *Document) latest(id string) (descriptor.Descriptor, bool) {
	return descriptor.FindByID(descriptor.Latest(d.Descriptors), id)
}
