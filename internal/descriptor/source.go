package descriptor

import (
	"fmt"
	"strings"
)

// SourceKind distinguishes built-in suites from installed descriptors.
type SourceKind string

const (
	SourceDefault   SourceKind = "default"
	SourceInstalled SourceKind = "installed"
)

// Source is the identity a run specification uses to refer to a descriptor.
type Source struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	Key  string     `json:"key" yaml:"key"`
}

// Default returns the source of a built-in suite.
func Default(name string) Source {
	return Source{Kind: SourceDefault, Key: name}
}

// Installed returns the source of an installed descriptor.
func Installed(id string) Source {
	return Source{Kind: SourceInstalled, Key: id}
}

// String returns "<kind>/<key>".
func (s Source) String() string {
	return string(s.Kind) + "/" + s.Key
}

// ParseSource parses the "<kind>/<key>" form. A bare key is treated as an
// installed descriptor id.
func ParseSource(s string) (Source, error) {
	kind, key, ok := strings.Cut(s, "/")
	if !ok {
		kind, key = string(SourceInstalled), s
	}
	if key == "" {
		return Source{}, fmt.Errorf("empty source key in %q", s)
	}
	switch SourceKind(kind) {
	case SourceDefault, SourceInstalled:
		return Source{Kind: SourceKind(kind), Key: key}, nil
	default:
		return Source{}, fmt.Errorf("unknown source kind %q", kind)
	}
}
