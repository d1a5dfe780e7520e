package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/probekit/probekit/internal/descriptor"
)

// linkResponse is the service representation of a run link.
type linkResponse struct {
	ID               string        `json:"oonirun_link_id"`
	Revision         flexInt       `json:"revision"`
	Name             string        `json:"name"`
	ShortDescription string        `json:"short_description"`
	Description      string        `json:"description"`
	Author           string        `json:"author"`
	Icon             string        `json:"icon"`
	Color            string        `json:"color"`
	Animation        string        `json:"animation"`
	NetTests         []netTestWire `json:"nettests"`
	DateCreated      *time.Time    `json:"date_created"`
	DateUpdated      *time.Time    `json:"date_updated"`
	ExpirationDate   *time.Time    `json:"expiration_date"`
	IsExpired        bool          `json:"is_expired"`
}

type netTestWire struct {
	TestName             string         `json:"test_name"`
	Inputs               []string       `json:"inputs"`
	Options              map[string]any `json:"options"`
	BackgroundRunEnabled bool           `json:"is_background_run_enabled_default"`
	ManualRunEnabled     bool           `json:"is_manual_run_enabled_default"`
}

// flexInt accepts both 3 and "3"; the service has sent either.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid revision %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid revision %s", data)
	}
	*f = flexInt(n)
	return nil
}

// toDescriptor maps the wire form to a Descriptor. Client-owned fields are
// left at their zero values.
func (r *linkResponse) toDescriptor() descriptor.Descriptor {
	d := descriptor.Descriptor{
		ID:               r.ID,
		Revision:         int64(r.Revision),
		Name:             r.Name,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		Author:           r.Author,
		Icon:             r.Icon,
		Color:            r.Color,
		Animation:        r.Animation,
		DateCreated:      r.DateCreated,
		DateUpdated:      r.DateUpdated,
		ExpirationDate:   r.ExpirationDate,
		IsExpired:        r.IsExpired,
	}
	for _, nt := range r.NetTests {
		t := descriptor.NetTest{
			Name:                 nt.TestName,
			Inputs:               nt.Inputs,
			Options:              nt.Options,
			BackgroundRunEnabled: nt.BackgroundRunEnabled,
			ManualRunEnabled:     nt.ManualRunEnabled,
		}
		if descriptor.IsLongRunning(t.Name) {
			d.LongRunningTests = append(d.LongRunningTests, t)
		} else {
			d.NetTests = append(d.NetTests, t)
		}
	}
	return d
}
