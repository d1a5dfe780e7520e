package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/probekit/probekit/internal/updates"
)

// CheckProgress shows the progress of an update check. On a terminal it
// draws a single bar over all fetched descriptors; otherwise it prints one
// line per finished descriptor.
type CheckProgress struct {
	mu       sync.Mutex
	w        io.Writer
	isTTY    bool
	style    *Style
	progress *mpb.Progress
	bar      *mpb.Bar
}

// NewCheckProgress creates a progress display for total fetches.
func NewCheckProgress(w io.Writer, total int) *CheckProgress {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return newCheckProgress(w, total, isTTY)
}

func newCheckProgress(w io.Writer, total int, isTTY bool) *CheckProgress {
	p := &CheckProgress{
		w:     w,
		isTTY: isTTY,
		style: NewStyle(),
	}
	if isTTY && total > 0 {
		p.progress = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
		p.bar = p.progress.AddBar(int64(total),
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(
				decor.Name("  Checking descriptors ", decor.WC{W: 24, C: decor.DindentRight}),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO), " done"),
			),
		)
	}
	return p
}

// HandleEvent is an updates.EventHandler. It is safe for concurrent use.
func (p *CheckProgress) HandleEvent(ev updates.Event) {
	switch ev.Type {
	case updates.EventComplete:
		p.finish(fmt.Sprintf("  %s %s %s", p.style.OutcomeIcon(ev.Outcome), p.style.Path.Sprint(ev.ID), ev.Outcome))
	case updates.EventError:
		p.finish(fmt.Sprintf("  %s %s failed: %v", p.style.FailMark, p.style.Path.Sprint(ev.ID), ev.Error))
	}
}

func (p *CheckProgress) finish(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Increment()
		return
	}
	fmt.Fprintln(p.w, line)
}

// Wait stops the bar and waits for it to render. An interrupted check
// aborts the bar instead of waiting for it to fill.
func (p *CheckProgress) Wait() {
	if p.progress == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.progress.Wait()
}

// PrintCheckSummary prints the result of one update check.
func PrintCheckSummary(w io.Writer, report updates.Report) {
	style := NewStyle()

	fmt.Fprintln(w)
	if report.Canceled {
		fmt.Fprintf(w, "%s Update check canceled, nothing was changed\n", style.WarnMark)
		return
	}
	if report.Checked == 0 {
		fmt.Fprintf(w, "%s No installed descriptors to check\n", style.SuccessMark)
		return
	}

	style.Header.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Checked:     %d\n", report.Checked)
	if report.Unchanged > 0 {
		fmt.Fprintf(w, "  %s Up to date: %d\n", style.SuccessMark, report.Unchanged)
	}
	if n := report.Minor + report.Auto; n > 0 {
		fmt.Fprintf(w, "  %s Updated:    %d\n", style.UpgradeMark, n)
	}
	if report.Review > 0 {
		fmt.Fprintf(w, "  %s To review:  %d\n", style.ReviewMark, report.Review)
	}
	if report.Rejected > 0 {
		fmt.Fprintf(w, "  %s Declined:   %d\n", style.RejectMark, report.Rejected)
	}
	if report.Failed > 0 {
		fmt.Fprintf(w, "  %s Failed:     %d\n", style.FailMark, report.Failed)
	}

	if report.PersistError != nil {
		fmt.Fprintf(w, "\n%s Updates could not be saved: %v\n", style.FailMark, report.PersistError)
	}
	if report.AllFailed() {
		fmt.Fprintf(w, "\n%s Every descriptor failed to fetch; the results above do not mean there are no updates\n", style.WarnMark)
	}
}

// RenderReviewNotice renders the banner shown when updates wait for review.
func RenderReviewNotice(count int) string {
	noun := "updates"
	if count == 1 {
		noun = "update"
	}
	body := fmt.Sprintf("%d descriptor %s need your review.\n", count, noun) +
		dimStyle.Render("Run `probekit check --interactive` to accept or reject them.")
	return noticeStyle.Render(body)
}
