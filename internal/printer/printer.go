package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/probekit/probekit/internal/descriptor"
	"github.com/probekit/probekit/internal/state"
)

// rowFormatter converts a descriptor into table columns.
type rowFormatter interface {
	// Headers returns the column header names.
	Headers(wide bool) []string
	// FormatRow converts a single descriptor into column values.
	FormatRow(d *descriptor.Descriptor, wide bool) []string
}

// printTable is the table-printing pipeline: header, rows, flush.
// Rows keep the order of ds.
func printTable(w io.Writer, ds []descriptor.Descriptor, wide bool, f rowFormatter) {
	if len(ds) == 0 {
		fmt.Fprintln(w, "No descriptors found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(f.Headers(wide), "\t"))
	for i := range ds {
		fmt.Fprintln(tw, strings.Join(f.FormatRow(&ds[i], wide), "\t"))
	}
	tw.Flush()
}

// printDescriptors handles the json/table dispatch.
func printDescriptors(w io.Writer, ds []descriptor.Descriptor, id string, wide, jsonOut bool, f rowFormatter) error {
	filtered := filterByID(ds, id)
	if jsonOut {
		return printJSON(w, filtered)
	}
	printTable(w, filtered, wide, f)
	return nil
}

// Resource types accepted by Run.
const (
	TypeDescriptors = "descriptors"
	TypeDefaults    = "defaults"
)

// Run executes the get command logic for a resource type. ds is the list
// to print for installed descriptors; built-in suites ignore it.
func Run(w io.Writer, ds []descriptor.Descriptor, resType, id string, wide, jsonOut bool) error {
	switch resType {
	case TypeDescriptors:
		return printDescriptors(w, ds, id, wide, jsonOut, descriptorFormatter{})
	case TypeDefaults:
		return printDescriptors(w, descriptor.Defaults(), id, wide, jsonOut, suiteFormatter{})
	default:
		return fmt.Errorf("unknown resource type %q", resType)
	}
}

// ResolveResourceType resolves aliases to canonical resource type names.
func ResolveResourceType(s string) (string, error) {
	aliases := map[string]string{
		"descriptors": TypeDescriptors,
		"descriptor":  TypeDescriptors,
		"desc":        TypeDescriptors,
		"defaults":    TypeDefaults,
		"default":     TypeDefaults,
		"suites":      TypeDefaults,
		"suite":       TypeDefaults,
	}

	resolved, ok := aliases[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("unknown resource type %q, valid types: descriptors, defaults", s)
	}
	return resolved, nil
}

// Common column header constants.
const (
	colID    = "ID"
	colName  = "NAME"
	colTests = "TESTS"
)

// --- Installed descriptor ---

type descriptorFormatter struct{}

func (descriptorFormatter) Headers(wide bool) []string {
	h := []string{colID, "REVISION", colName, "AUTO_UPDATE", "REJECTED", colTests}
	if wide {
		h = append(h, "UPDATED", "EXPIRES", "AUTHOR")
	}
	return h
}

func (descriptorFormatter) FormatRow(d *descriptor.Descriptor, wide bool) []string {
	row := []string{
		d.ID,
		strconv.FormatInt(d.Revision, 10),
		d.Name,
		onOff(d.AutoUpdate),
		formatRevision(d.RejectedRevision),
		strconv.Itoa(len(d.AllTests())),
	}
	if wide {
		row = append(row, formatDate(d.DateUpdated), formatDate(d.ExpirationDate), orDash(d.Author))
	}
	return row
}

// --- Built-in suite ---

type suiteFormatter struct{}

func (suiteFormatter) Headers(_ bool) []string {
	return []string{colID, colName, "LONG_RUNNING", colTests}
}

func (suiteFormatter) FormatRow(d *descriptor.Descriptor, _ bool) []string {
	return []string{d.ID, d.Name, orDash(testNames(d.LongRunningTests)), testNames(d.NetTests)}
}

// --- Run plan ---

// PrintPlan prints the descriptors selected by a run specification, one
// row per net-test.
func PrintPlan(w io.Writer, ds []descriptor.Descriptor, jsonOut bool) error {
	if jsonOut {
		return printJSON(w, ds)
	}
	if len(ds) == 0 {
		fmt.Fprintln(w, "Nothing to run.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTEST\tKIND\tINPUTS")
	for i := range ds {
		src := ds[i].Source().String()
		for _, t := range ds[i].NetTests {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", src, t.Name, "regular", formatInputs(t.Inputs))
		}
		for _, t := range ds[i].LongRunningTests {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", src, t.Name, "long-running", formatInputs(t.Inputs))
		}
	}
	tw.Flush()
	return nil
}

// --- Update check ---

// PrintUpdates prints queued or applied updates next to the installed
// revision they replace.
func PrintUpdates(w io.Writer, updates, installed []descriptor.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tINSTALLED\tAVAILABLE")
	for _, u := range updates {
		current := "-"
		if d, ok := descriptor.FindByID(installed, u.ID); ok {
			current = strconv.FormatInt(d.Revision, 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", u.ID, u.Name, current, u.Revision)
	}
	tw.Flush()
}

// --- Store diff ---

// PrintDiff prints the changes between the store backup and the current store.
func PrintDiff(w io.Writer, diff *state.Diff) {
	if !diff.HasChanges() {
		fmt.Fprintln(w, "No changes since the last write.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHANGE\tREVISION\tDETAILS")
	for _, c := range diff.Changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Type, formatRevisionChange(c.OldRevision, c.NewRevision), orDash(strings.Join(c.Details, ", ")))
	}
	tw.Flush()

	added, modified, removed := diff.Summary()
	fmt.Fprintf(w, "\n%d added, %d modified, %d removed\n", added, modified, removed)
}

// --- Helpers ---

func filterByID(ds []descriptor.Descriptor, id string) []descriptor.Descriptor {
	if id == "" {
		return ds
	}
	var out []descriptor.Descriptor
	for _, d := range ds {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatRevision(r *int64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatInt(*r, 10)
}

func formatRevisionChange(old, current int64) string {
	switch {
	case old == 0:
		return strconv.FormatInt(current, 10)
	case current == 0:
		return strconv.FormatInt(old, 10)
	case old == current:
		return strconv.FormatInt(current, 10)
	default:
		return fmt.Sprintf("%d -> %d", old, current)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func formatInputs(inputs []string) string {
	if len(inputs) == 0 {
		return "-"
	}
	return strings.Join(inputs, ",")
}

func testNames(ts []descriptor.NetTest) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return strings.Join(names, ",")
}

// printJSON outputs v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
