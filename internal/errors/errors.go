// Package errors provides structured error types for probekit.
// They carry context that the CLI renders for humans or as JSON.
//
//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// Category classifies an error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryDescriptor Category = "descriptor"
	CategoryNetwork    Category = "network"
	CategoryState      Category = "state"
)

// Code is a machine-readable error code.
type Code string

const (
	// Config errors (E2xx)
	CodeConfigParse      Code = "E201"
	CodeValidationFailed Code = "E202"

	// Descriptor errors (E3xx)
	CodeDescriptorParse    Code = "E301"
	CodeDescriptorNotFound Code = "E302"
	CodeNotPending         Code = "E303"

	// Network errors (E4xx)
	CodeNetworkFailed Code = "E401"
	CodeHTTPError     Code = "E402"

	// State errors (E5xx)
	CodeStateError  Code = "E501"
	CodeStateLocked Code = "E502"
)

// Error is the base error type.
type Error struct {
	Category Category       `json:"category"`
	Code     Code           `json:"code,omitempty"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`

	// Hint is actionable advice shown below the error.
	Hint string `json:"hint,omitempty"`

	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code when both carry one, otherwise by
// category and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != "" && t.Code != "" {
		return e.Code == t.Code
	}
	return e.Category == t.Category && e.Message == t.Message
}

// WithHint sets the hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetail adds a detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given category and message.
func New(category Category, message string) *Error {
	return &Error{
		Category: category,
		Message:  message,
	}
}

// Wrap creates an Error wrapping cause.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}
