package updates

import (
	"github.com/probekit/probekit/internal/descriptor"
)

// Outcome is the result of comparing an installed descriptor with the
// version fetched from the service.
type Outcome int

const (
	// OutcomeUnchanged: the fetched content is not newer than the installed one.
	OutcomeUnchanged Outcome = iota
	// OutcomeRejected: a major update to a revision the user already declined.
	OutcomeRejected
	// OutcomeMinor: same or lower revision with newer content; applied silently.
	OutcomeMinor
	// OutcomeAutoUpdate: major update applied silently because AutoUpdate is on.
	OutcomeAutoUpdate
	// OutcomeReview: major update queued for the user to accept or reject.
	OutcomeReview
)

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRejected:
		return "rejected"
	case OutcomeMinor:
		return "minor"
	case OutcomeAutoUpdate:
		return "auto-update"
	case OutcomeReview:
		return "review"
	default:
		return "unknown"
	}
}

// Persisted reports whether the outcome is written to the store during the pass.
func (o Outcome) Persisted() bool {
	return o == OutcomeMinor || o == OutcomeAutoUpdate
}

// Decision is the classification of one descriptor.
type Decision struct {
	Outcome Outcome
	// Descriptor is the fetched descriptor carrying the installed
	// user-owned fields. It is nil for OutcomeUnchanged and OutcomeRejected.
	Descriptor *descriptor.Descriptor
}

// Classify decides what to do with fetched given the installed old.
// It has no side effects and does not modify its arguments.
func Classify(old, fetched *descriptor.Descriptor) Decision {
	if !isNewer(old, fetched) {
		return Decision{Outcome: OutcomeUnchanged}
	}

	// AutoUpdate, RejectedRevision and DateInstalled belong to the client,
	// not to the service.
	inherited := old.Clone()
	next := fetched.Clone()
	next.AutoUpdate = inherited.AutoUpdate
	next.RejectedRevision = inherited.RejectedRevision
	if next.DateInstalled == nil {
		next.DateInstalled = inherited.DateInstalled
	}

	if fetched.Revision <= old.Revision {
		return Decision{Outcome: OutcomeMinor, Descriptor: next}
	}
	if old.RejectedRevision != nil && fetched.Revision == *old.RejectedRevision {
		return Decision{Outcome: OutcomeRejected}
	}
	if old.AutoUpdate {
		return Decision{Outcome: OutcomeAutoUpdate, Descriptor: next}
	}
	return Decision{Outcome: OutcomeReview, Descriptor: next}
}

// isNewer reports whether fetched carries content updated after old.
// A fetched descriptor without an update date is never newer.
func isNewer(old, fetched *descriptor.Descriptor) bool {
	if fetched.DateUpdated == nil {
		return false
	}
	return old.DateUpdated == nil || old.DateUpdated.Before(*fetched.DateUpdated)
}
