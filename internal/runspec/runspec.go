// Package runspec resolves a declarative "what to run" specification
// against the installed and built-in descriptors.
package runspec

import (
	"time"

	"github.com/probekit/probekit/internal/descriptor"
)

// Origin records who asked for a run.
type Origin string

const (
	// OriginManual is a run started by the user.
	OriginManual Origin = "manual"
	// OriginBackground is a run started by the scheduler.
	OriginBackground Origin = "background"
)

// Spec is a run specification.
type Spec struct {
	Tests      []Entry `json:"tests" yaml:"tests"`
	TaskOrigin Origin  `json:"taskOrigin,omitempty" yaml:"taskOrigin,omitempty"`
	IsRerun    bool    `json:"isRerun,omitempty" yaml:"isRerun,omitempty"`
}

// Entry selects net-tests of one descriptor.
type Entry struct {
	Source              descriptor.Source `json:"source" yaml:"source"`
	NetTests            []Test            `json:"netTests,omitempty" yaml:"netTests,omitempty"`
	LongRunningNetTests []Test            `json:"longRunningNetTests,omitempty" yaml:"longRunningNetTests,omitempty"`
}

// Test names a net-test and, optionally, the inputs to run it with.
// Empty inputs mean "use the installed inputs".
type Test struct {
	TestName string   `json:"testName" yaml:"testName"`
	Inputs   []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Filter returns the descriptors of ds that spec selects, each reduced to
// the selected net-tests. Expired and unselected descriptors are dropped,
// as are descriptors left without tests. Output keeps the order of ds.
func Filter(spec Spec, ds []descriptor.Descriptor, now time.Time) []descriptor.Descriptor {
	entries := make(map[descriptor.Source]Entry, len(spec.Tests))
	for _, e := range spec.Tests {
		if _, ok := entries[e.Source]; !ok {
			entries[e.Source] = e
		}
	}

	var out []descriptor.Descriptor
	for i := range ds {
		d := &ds[i]
		if d.Expired(now) {
			continue
		}
		entry, ok := entries[d.Source()]
		if !ok {
			continue
		}

		selected := d.Clone()
		selected.NetTests = selectTests(d.NetTests, entry.NetTests)
		selected.LongRunningTests = selectTests(d.LongRunningTests, entry.LongRunningNetTests)
		if len(selected.NetTests) == 0 && len(selected.LongRunningTests) == 0 {
			continue
		}
		out = append(out, *selected)
	}
	return out
}

// selectTests keeps the installed tests named in wanted. Non-empty wanted
// inputs replace the installed ones; empty ones keep them.
func selectTests(installed []descriptor.NetTest, wanted []Test) []descriptor.NetTest {
	inputs := make(map[string][]string, len(wanted))
	for _, w := range wanted {
		if _, ok := inputs[w.TestName]; !ok {
			inputs[w.TestName] = w.Inputs
		}
	}

	var out []descriptor.NetTest
	for _, t := range installed {
		in, ok := inputs[t.Name]
		if !ok {
			continue
		}
		c := t.Clone()
		if len(in) > 0 {
			c.Inputs = append([]string(nil), in...)
		}
		out = append(out, c)
	}
	return out
}

// FromDescriptors builds a spec running ds. A background spec keeps only
// the tests enabled for background runs and no long-running tests. With
// stripInputs the inputs are left out, so the spec stays small and Filter
// refills them from the installed descriptors.
func FromDescriptors(ds []descriptor.Descriptor, origin Origin, stripInputs bool) Spec {
	spec := Spec{TaskOrigin: origin}
	for i := range ds {
		d := &ds[i]
		e := Entry{Source: d.Source()}
		for _, t := range d.NetTests {
			if origin == OriginBackground && !t.BackgroundRunEnabled {
				continue
			}
			e.NetTests = append(e.NetTests, toTest(t, stripInputs))
		}
		if origin != OriginBackground {
			for _, t := range d.LongRunningTests {
				e.LongRunningNetTests = append(e.LongRunningNetTests, toTest(t, stripInputs))
			}
		}
		if len(e.NetTests) == 0 && len(e.LongRunningNetTests) == 0 {
			continue
		}
		spec.Tests = append(spec.Tests, e)
	}
	return spec
}

func toTest(t descriptor.NetTest, stripInputs bool) Test {
	out := Test{TestName: t.Name}
	if !stripInputs && len(t.Inputs) > 0 {
		out.Inputs = append([]string(nil), t.Inputs...)
	}
	return out
}
