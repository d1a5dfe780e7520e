package state

import (
	"fmt"
	"log/slog"
)

// ValidationError represents a single validation issue.
type ValidationError struct {
	Field   string // e.g., "version", "descriptors[3].id"
	Message string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds the result of document validation.
type ValidationResult struct {
	Errors   []ValidationError // fatal issues that should prevent loading
	Warnings []ValidationError // non-fatal issues logged as warnings
}

// IsValid returns true if there are no fatal validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

func (r *ValidationResult) warn(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// validateVersion checks the file format version.
func (r *ValidationResult) validateVersion(version string) {
	if version == "" {
		r.warn("version", "version is empty")
	} else if version != Version {
		r.warn("version", fmt.Sprintf("unknown version %q (expected %q)", version, Version))
	}
}

// Validate checks a Document for integrity.
func Validate(doc *Document) *ValidationResult {
	result := &ValidationResult{}

	result.validateVersion(doc.Version)

	seen := make(map[string]int, len(doc.Descriptors))
	for i, d := range doc.Descriptors {
		field := fmt.Sprintf("descriptors[%d]", i)
		if d.ID == "" {
			result.warn(field+".id", "id is empty")
			continue
		}
		key := d.Key().String()
		if first, ok := seen[key]; ok {
			result.warn(field, fmt.Sprintf("duplicate of descriptors[%d] (%s)", first, key))
			continue
		}
		seen[key] = i
		if d.DateUpdated == nil {
			result.warn(field+".dateUpdated", "dateUpdated is empty; the next check treats any fetched content as newer")
		}
		if len(d.AllTests()) == 0 {
			result.warn(field+".netTests", "descriptor has no net-tests")
		}
	}

	return result
}

func logWarnings(result *ValidationResult) {
	for _, w := range result.Warnings {
		slog.Warn("descriptor store validation warning", "field", w.Field, "message", w.Message)
	}
}
