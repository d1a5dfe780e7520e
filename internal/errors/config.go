//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// ConfigError is a configuration loading or parsing error.
type ConfigError struct {
	Base Error `json:"error"`

	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		Base: Error{
			Category: CategoryConfig,
			Code:     CodeConfigParse,
			Message:  message,
			Cause:    cause,
		},
	}
}

// WithFile sets the file path.
func (e *ConfigError) WithFile(file string) *ConfigError {
	e.File = file
	return e
}

// WithLocation sets the line and column.
func (e *ConfigError) WithLocation(line, column int) *ConfigError {
	e.Line = line
	e.Column = column
	return e
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether target is a ConfigError with the same code.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

// ValidationError reports an invalid user-supplied value.
type ValidationError struct {
	Base Error `json:"error"`

	Field    string `json:"field,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Base: Error{
			Category: CategoryValidation,
			Code:     CodeValidationFailed,
			Message:  message,
		},
		Field: field,
	}
}

// WithExpected records the expected and actual values.
func (e *ValidationError) WithExpected(expected, got string) *ValidationError {
	e.Expected = expected
	e.Got = got
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Base.Error()
	}
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Base.Cause
}
