package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/probekit/probekit/internal/descriptor"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	noTests := testDescriptor("c", 1)
	noTests.NetTests = nil
	undated := testDescriptor("d", 1)
	undated.DateUpdated = nil

	tests := []struct {
		name         string
		doc          *Document
		wantWarnings []string
	}{
		{
			name: "valid document",
			doc:  &Document{Version: Version, Descriptors: []descriptor.Descriptor{testDescriptor("a", 1), testDescriptor("a", 2)}},
		},
		{
			name:         "empty version",
			doc:          &Document{},
			wantWarnings: []string{"version"},
		},
		{
			name:         "unknown version",
			doc:          &Document{Version: "999"},
			wantWarnings: []string{"version"},
		},
		{
			name:         "empty id",
			doc:          &Document{Version: Version, Descriptors: []descriptor.Descriptor{{Revision: 1}}},
			wantWarnings: []string{"descriptors[0].id"},
		},
		{
			name:         "duplicate key",
			doc:          &Document{Version: Version, Descriptors: []descriptor.Descriptor{testDescriptor("a", 1), testDescriptor("a", 1)}},
			wantWarnings: []string{"descriptors[1]"},
		},
		{
			name:         "no net-tests",
			doc:          &Document{Version: Version, Descriptors: []descriptor.Descriptor{noTests}},
			wantWarnings: []string{"descriptors[0].netTests"},
		},
		{
			name:         "no update date",
			doc:          &Document{Version: Version, Descriptors: []descriptor.Descriptor{undated}},
			wantWarnings: []string{"descriptors[0].dateUpdated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Validate(tt.doc)
			assert.True(t, result.IsValid())

			var fields []string
			for _, w := range result.Warnings {
				fields = append(fields, w.Field)
			}
			assert.Equal(t, tt.wantWarnings, fields)
			assert.Equal(t, len(tt.wantWarnings) > 0, result.HasWarnings())
		})
	}
}

func TestValidationError_String(t *testing.T) {
	e := ValidationError{Field: "version", Message: "version is empty"}
	assert.Equal(t, "version: version is empty", e.String())
}
