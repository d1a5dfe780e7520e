//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "strconv"

// DescriptorError is a problem with one descriptor: an unparsable payload,
// an unknown id, or a decision on an update that is not pending.
type DescriptorError struct {
	Base Error `json:"error"`

	ID       string `json:"id,omitempty"`
	Revision int64  `json:"revision,omitempty"`
}

// NewDescriptorParseError creates a DescriptorError for a payload that
// could not be decoded.
func NewDescriptorParseError(id string, cause error) *DescriptorError {
	return &DescriptorError{
		Base: Error{
			Category: CategoryDescriptor,
			Code:     CodeDescriptorParse,
			Message:  "invalid descriptor payload",
			Cause:    cause,
		},
		ID: id,
	}
}

// NewDescriptorNotFoundError creates a DescriptorError for an unknown id.
func NewDescriptorNotFoundError(id string) *DescriptorError {
	return &DescriptorError{
		Base: Error{
			Category: CategoryDescriptor,
			Code:     CodeDescriptorNotFound,
			Message:  "descriptor not found",
			Hint:     "Run 'probekit get descriptors' to list installed descriptors.",
		},
		ID: id,
	}
}

// NewNotPendingError creates a DescriptorError for a decision on an update
// that is not in the review queue.
func NewNotPendingError(id string, revision int64) *DescriptorError {
	return &DescriptorError{
		Base: Error{
			Category: CategoryDescriptor,
			Code:     CodeNotPending,
			Message:  "no pending update for descriptor",
			Hint:     "Run 'probekit check' to look for updates first.",
		},
		ID:       id,
		Revision: revision,
	}
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	msg := e.Base.Message
	if e.ID != "" {
		msg += " " + strconv.Quote(e.ID)
	}
	if e.Base.Cause != nil {
		msg += ": " + e.Base.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DescriptorError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether target is a DescriptorError with the same code.
func (e *DescriptorError) Is(target error) bool {
	t, ok := target.(*DescriptorError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}
