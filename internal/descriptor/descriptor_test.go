package descriptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		d    Descriptor
		want bool
	}{
		{name: "no expiration", d: Descriptor{}, want: false},
		{name: "expiration in the future", d: Descriptor{ExpirationDate: &future}, want: false},
		{name: "expiration in the past", d: Descriptor{ExpirationDate: &past}, want: true},
		{name: "server flag", d: Descriptor{IsExpired: true, ExpirationDate: &future}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Expired(now))
		})
	}
}

func TestDescriptor_Clone(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rejected := int64(3)
	orig := &Descriptor{
		ID:               "abc",
		Revision:         2,
		NetTests:         []NetTest{{Name: "web_connectivity", Inputs: []string{"https://example.org"}}},
		DateUpdated:      &updated,
		RejectedRevision: &rejected,
	}

	c := orig.Clone()
	c.NetTests[0].Inputs[0] = "https://changed.example"
	*c.DateUpdated = updated.Add(time.Hour)
	*c.RejectedRevision = 9

	assert.Equal(t, "https://example.org", orig.NetTests[0].Inputs[0])
	assert.Equal(t, updated, *orig.DateUpdated)
	assert.Equal(t, int64(3), *orig.RejectedRevision)
}

func TestLatest(t *testing.T) {
	ds := []Descriptor{
		{ID: "a", Revision: 1},
		{ID: "b", Revision: 4},
		{ID: "a", Revision: 3},
		{ID: "a", Revision: 2},
	}

	latest := Latest(ds)

	require.Len(t, latest, 2)
	assert.Equal(t, Key{ID: "a", Revision: 3}, latest[0].Key())
	assert.Equal(t, Key{ID: "b", Revision: 4}, latest[1].Key())
}

func TestDescriptor_Source(t *testing.T) {
	installed := Descriptor{ID: "xyz"}
	assert.Equal(t, Installed("xyz"), installed.Source())

	for _, d := range Defaults() {
		assert.Equal(t, SourceDefault, d.Source().Kind, d.ID)
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "default/websites", want: Default("websites")},
		{in: "installed/10004", want: Installed("10004")},
		{in: "10004", want: Installed("10004")},
		{in: "default/", wantErr: true},
		{in: "remote/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), tt.want.String())
		})
	}
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "abc@7", Key{ID: "abc", Revision: 7}.String())
}
