// Package updates keeps installed descriptors in sync with the descriptor
// service. A Resolver fetches every target concurrently, classifies each
// result, persists silent updates, and publishes the review queue through a
// State that UI surfaces observe.
package updates

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

// Fetcher retrieves the current version of a descriptor from the service.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*descriptor.Descriptor, error)
}

// Store persists installed descriptors. Batches are applied atomically.
type Store interface {
	CreateOrIgnore(ctx context.Context, ds []descriptor.Descriptor) error
	CreateOrUpdate(ctx context.Context, ds []descriptor.Descriptor) error
	ListAll(ctx context.Context) ([]descriptor.Descriptor, error)
	ListLatest(ctx context.Context) ([]descriptor.Descriptor, error)
	SetRejectedRevision(ctx context.Context, id string, revision *int64) error
}

// EventType is the type of a resolver event.
type EventType int

const (
	// EventStart is emitted when a fetch begins.
	EventStart EventType = iota
	// EventComplete is emitted when a fetch succeeded and was classified.
	EventComplete
	// EventError is emitted when a fetch failed.
	EventError
)

// Event reports the progress of a single descriptor within a pass.
type Event struct {
	Type    EventType
	PassID  string
	ID      string
	Outcome Outcome
	Error   error
}

// EventHandler receives resolver events. It may be called concurrently.
type EventHandler func(Event)

// FailureRecorder persists per-descriptor fetch failures of a pass.
type FailureRecorder interface {
	RecordFailure(passID, id string, err error)
	Flush(passID string) error
}

const (
	// DefaultParallelism is the default number of concurrent fetches.
	DefaultParallelism = 5

	// MaxParallelism is the maximum allowed parallelism.
	MaxParallelism = 20
)

// Report summarizes one resolution pass. It is informational: the outcome
// visible to the rest of the application is the published Snapshot.
type Report struct {
	PassID    string
	Checked   int
	Unchanged int
	Rejected  int
	Minor     int
	Auto      int
	Review    int
	Failed    int
	Errors    map[string]error
	// PersistError is set when the batch of silent updates could not be written.
	PersistError error
	Canceled     bool
}

// AllFailed reports whether every fetch of a non-empty pass failed.
func (r Report) AllFailed() bool {
	return r.Checked > 0 && r.Failed == r.Checked
}

// Resolver runs resolution passes.
type Resolver struct {
	store       Store
	fetcher     Fetcher
	state       *State
	parallelism int
	handler     EventHandler
	failures    FailureRecorder

	// passMu serializes passes; overlapping passes would race on the
	// published state.
	passMu sync.Mutex

	// decMu orders decisions against the publish at the end of a pass.
	// Lock order is decMu, then the state lock.
	decMu     sync.Mutex
	decisions *passDecisions
}

// passDecisions records the decisions applied while a pass is fetching.
// The pass publishes its result through it so none of them is undone.
type passDecisions struct {
	keys        map[descriptor.Key]struct{}
	dismissed   bool
	autoCleared bool
}

// pending drops the descriptors that were accepted or rejected during the
// pass. set is modified in place; an emptied set becomes nil.
func (p *passDecisions) pending(set []descriptor.Descriptor) []descriptor.Descriptor {
	set = slices.DeleteFunc(set, func(d descriptor.Descriptor) bool {
		_, decided := p.keys[d.Key()]
		return decided
	})
	if len(set) == 0 {
		return nil
	}
	return set
}

// NewResolver creates a Resolver publishing to state.
func NewResolver(store Store, fetcher Fetcher, state *State) *Resolver {
	return &Resolver{
		store:       store,
		fetcher:     fetcher,
		state:       state,
		parallelism: DefaultParallelism,
	}
}

// SetParallelism sets the number of concurrent fetches.
// Values are clamped to [1, MaxParallelism].
func (r *Resolver) SetParallelism(n int) {
	r.parallelism = min(max(n, 1), MaxParallelism)
}

// SetEventHandler sets the per-descriptor progress callback.
func (r *Resolver) SetEventHandler(handler EventHandler) {
	r.handler = handler
}

// SetFailureRecorder sets where fetch failures are persisted.
func (r *Resolver) SetFailureRecorder(rec FailureRecorder) {
	r.failures = rec
}

// State returns the state the resolver publishes to.
func (r *Resolver) State() *State {
	return r.state
}

func (r *Resolver) emit(ev Event) {
	if r.handler != nil {
		r.handler(ev)
	}
}

// ResolveAll resolves every descriptor in the latest view of the store.
func (r *Resolver) ResolveAll(ctx context.Context) Report {
	latest, err := r.store.ListLatest(ctx)
	if err != nil {
		slog.Warn("failed to list installed descriptors", "error", err)
		return Report{Errors: map[string]error{}}
	}
	return r.Resolve(ctx, latest)
}

// TryResolveAll is ResolveAll unless a pass is already running, in which
// case it returns false without waiting for it.
func (r *Resolver) TryResolveAll(ctx context.Context) (Report, bool) {
	if !r.passMu.TryLock() {
		return Report{}, false
	}
	defer r.passMu.Unlock()

	latest, err := r.store.ListLatest(ctx)
	if err != nil {
		slog.Warn("failed to list installed descriptors", "error", err)
		return Report{Errors: map[string]error{}}, true
	}
	return r.resolve(ctx, latest), true
}

// fetchResult is the slot each fetch goroutine fills.
type fetchResult struct {
	fetched *descriptor.Descriptor
	err     error
}

// Resolve runs one pass over targets. It never fails: individual fetch
// failures are logged and skipped, and the pass always ends in Idle or
// ReviewNecessaryNotice. If ctx is canceled before the join completes,
// nothing is persisted and the snapshot from before the pass is restored.
// Accepts, rejects and dismissals made while the pass runs are kept in
// either case.
func (r *Resolver) Resolve(ctx context.Context, targets []descriptor.Descriptor) Report {
	r.passMu.Lock()
	defer r.passMu.Unlock()
	return r.resolve(ctx, targets)
}

// resolve runs a pass. Must be called with passMu held.
func (r *Resolver) resolve(ctx context.Context, targets []descriptor.Descriptor) Report {
	report := Report{Errors: make(map[string]error)}

	targets = fetchable(targets)
	if len(targets) == 0 {
		slog.Info("no descriptors to check for updates")
		return report
	}

	report.PassID = uuid.NewString()
	report.Checked = len(targets)
	logger := slog.With("pass", report.PassID)

	previous := r.beginPass()
	results := r.fetchAll(ctx, report.PassID, targets)

	if ctx.Err() != nil {
		logger.Warn("update check canceled", "error", ctx.Err())
		r.finishPass(func(decided *passDecisions) Snapshot {
			restored := previous
			restored.AvailableUpdates = decided.pending(restored.AvailableUpdates)
			if decided.autoCleared {
				restored.AutoUpdated = nil
			}
			if restored.OperationState == ReviewNecessaryNotice &&
				(decided.dismissed || len(restored.AvailableUpdates) == 0) {
				restored.OperationState = Idle
			}
			return restored
		})
		report.Canceled = true
		return report
	}

	var (
		persist []descriptor.Descriptor
		auto    []descriptor.Descriptor
		review  []descriptor.Descriptor
	)
	for i := range targets {
		old := &targets[i]
		res := results[i]
		if res.err != nil {
			logger.Warn("failed to fetch descriptor", "id", old.ID, "retryable", retryable(res.err), "error", res.err)
			report.Failed++
			report.Errors[old.ID] = res.err
			if r.failures != nil {
				r.failures.RecordFailure(report.PassID, old.ID, res.err)
			}
			continue
		}

		decision := Classify(old, res.fetched)
		logger.Debug("classified descriptor",
			"id", old.ID,
			"installed", old.Revision,
			"fetched", res.fetched.Revision,
			"outcome", decision.Outcome)

		switch decision.Outcome {
		case OutcomeUnchanged:
			report.Unchanged++
		case OutcomeRejected:
			report.Rejected++
		case OutcomeMinor:
			report.Minor++
			persist = append(persist, *decision.Descriptor)
		case OutcomeAutoUpdate:
			report.Auto++
			persist = append(persist, *decision.Descriptor)
			auto = append(auto, *decision.Descriptor)
		case OutcomeReview:
			report.Review++
			review = append(review, *decision.Descriptor)
		}
	}

	if len(persist) > 0 {
		if err := r.store.CreateOrUpdate(ctx, persist); err != nil {
			logger.Warn("failed to save updated descriptors", "count", len(persist), "locked", locked(err), "error", err)
			report.PersistError = err
		}
	}

	if r.failures != nil && report.Failed > 0 {
		if err := r.failures.Flush(report.PassID); err != nil {
			logger.Warn("failed to write fetch failure log", "error", err)
		}
	}

	r.finishPass(func(decided *passDecisions) Snapshot {
		next := Snapshot{
			AvailableUpdates: decided.pending(review),
			AutoUpdated:      auto,
			OperationState:   Idle,
		}
		if len(next.AvailableUpdates) > 0 {
			next.OperationState = ReviewNecessaryNotice
		}
		return next
	})

	logger.Info("update check finished",
		"checked", report.Checked,
		"review", report.Review,
		"auto", report.Auto,
		"minor", report.Minor,
		"failed", report.Failed)

	return report
}

// beginPass publishes FetchingUpdates and starts recording decisions. It
// returns the snapshot from before the pass.
func (r *Resolver) beginPass() Snapshot {
	r.decMu.Lock()
	defer r.decMu.Unlock()

	r.decisions = &passDecisions{keys: make(map[descriptor.Key]struct{})}
	previous := r.state.Snapshot()
	r.state.Update(func(Snapshot) Snapshot {
		return Snapshot{OperationState: FetchingUpdates}
	})
	return previous
}

// finishPass stops recording decisions and publishes the snapshot built by
// next. No decision can land between the two.
func (r *Resolver) finishPass(next func(decided *passDecisions) Snapshot) {
	r.decMu.Lock()
	defer r.decMu.Unlock()

	decided := r.decisions
	r.decisions = nil
	r.state.Update(func(Snapshot) Snapshot { return next(decided) })
}

// decide applies fn to the state and, while a pass is running, lets record
// note the decision for that pass.
func (r *Resolver) decide(record func(*passDecisions), fn func(Snapshot) Snapshot) {
	r.decMu.Lock()
	defer r.decMu.Unlock()

	if r.decisions != nil {
		record(r.decisions)
	}
	r.state.Update(fn)
}

// fetchAll fetches every target with bounded concurrency and waits for all
// of them. One failure never cancels the others.
func (r *Resolver) fetchAll(ctx context.Context, passID string, targets []descriptor.Descriptor) []fetchResult {
	results := make([]fetchResult, len(targets))
	sem := semaphore.NewWeighted(int64(r.parallelism))

	var wg sync.WaitGroup
	for i := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled; the remaining slots keep the error.
			for j := i; j < len(targets); j++ {
				results[j].err = err
			}
			break
		}

		wg.Go(func() {
			defer sem.Release(1)

			id := targets[i].ID
			r.emit(Event{Type: EventStart, PassID: passID, ID: id})

			start := time.Now()
			fetched, err := r.fetcher.Fetch(ctx, id)
			if err == nil && fetched == nil {
				err = errEmptyFetch
			}
			if err != nil {
				results[i].err = err
				r.emit(Event{Type: EventError, PassID: passID, ID: id, Error: err})
				return
			}
			results[i].fetched = fetched
			slog.Debug("fetched descriptor", "id", id, "revision", fetched.Revision, "elapsed", time.Since(start))
			r.emit(Event{
				Type:    EventComplete,
				PassID:  passID,
				ID:      id,
				Outcome: Classify(&targets[i], fetched).Outcome,
			})
		})
	}
	wg.Wait()

	return results
}

// fetchable drops built-in suites, which have no remote counterpart.
func fetchable(targets []descriptor.Descriptor) []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, 0, len(targets))
	for _, d := range targets {
		if d.Builtin {
			slog.Debug("skipping built-in suite", "id", d.ID)
			continue
		}
		out = append(out, d)
	}
	return out
}

// retryable reports whether a fetch failure is expected to clear up by the
// next pass. Cancellation and not-found are not.
func retryable(err error) bool {
	var netErr *pkerrors.NetworkError
	return errors.As(err, &netErr) && netErr.Retryable()
}

// locked reports whether a store write failed because another process
// holds the store.
func locked(err error) bool {
	var stErr *pkerrors.StateError
	return errors.As(err, &stErr) && stErr.Locked()
}
