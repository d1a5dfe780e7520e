//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors for the CLI.
type Formatter struct {
	NoColor bool
	Writer  io.Writer

	errorColor    *color.Color
	codeColor     *color.Color
	subjectColor  *color.Color
	hintColor     *color.Color
	expectedColor *color.Color
	gotColor      *color.Color
	dimColor      *color.Color
}

// NewFormatter creates a Formatter writing to w.
func NewFormatter(w io.Writer, noColor bool) *Formatter {
	if noColor {
		color.NoColor = true
	}

	return &Formatter{
		NoColor:       noColor,
		Writer:        w,
		errorColor:    color.New(color.FgRed, color.Bold),
		codeColor:     color.New(color.FgRed),
		subjectColor:  color.New(color.FgCyan),
		hintColor:     color.New(color.FgGreen),
		expectedColor: color.New(color.FgYellow),
		gotColor:      color.New(color.FgRed),
		dimColor:      color.New(color.FgHiBlack),
	}
}

// Format renders err as "Error [CODE]: message" followed by its context.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	var configErr *ConfigError
	var valErr *ValidationError
	var descErr *DescriptorError
	var networkErr *NetworkError
	var stateErr *StateError
	var baseErr *Error

	switch {
	case errors.As(err, &configErr):
		f.header(&sb, &configErr.Base)
		f.field(&sb, "File:   ", f.subjectColor.Sprint(configErr.File), configErr.File != "")
		if configErr.Line > 0 {
			f.field(&sb, "Line:   ", fmt.Sprintf("%d:%d", configErr.Line, configErr.Column), true)
		}
		f.footer(&sb, &configErr.Base)
	case errors.As(err, &valErr):
		f.header(&sb, &valErr.Base)
		f.field(&sb, "Field:    ", valErr.Field, valErr.Field != "")
		f.field(&sb, "Expected: ", f.expectedColor.Sprint(valErr.Expected), valErr.Expected != "")
		f.field(&sb, "Got:      ", f.gotColor.Sprint(valErr.Got), valErr.Got != "")
		f.footer(&sb, &valErr.Base)
	case errors.As(err, &descErr):
		f.header(&sb, &descErr.Base)
		f.field(&sb, "Descriptor: ", f.subjectColor.Sprint(descErr.ID), descErr.ID != "")
		f.field(&sb, "Revision:   ", fmt.Sprintf("%d", descErr.Revision), descErr.Revision > 0)
		f.footer(&sb, &descErr.Base)
	case errors.As(err, &networkErr):
		f.header(&sb, &networkErr.Base)
		f.field(&sb, "URL:    ", networkErr.URL, networkErr.URL != "")
		f.field(&sb, "Status: ", f.gotColor.Sprintf("%d", networkErr.StatusCode), networkErr.StatusCode > 0)
		f.footer(&sb, &networkErr.Base)
	case errors.As(err, &stateErr):
		f.header(&sb, &stateErr.Base)
		f.field(&sb, "Held by PID: ", f.gotColor.Sprintf("%d", stateErr.LockPID), stateErr.LockPID > 0)
		f.field(&sb, "Lock file:   ", f.subjectColor.Sprint(stateErr.LockFile), stateErr.LockFile != "")
		f.footer(&sb, &stateErr.Base)
	case errors.As(err, &baseErr):
		f.header(&sb, baseErr)
		f.footer(&sb, baseErr)
	default:
		sb.WriteString(f.errorColor.Sprint("Error: "))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatJSON renders err as indented JSON.
func (f *Formatter) FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return nil, nil
	}

	var configErr *ConfigError
	var valErr *ValidationError
	var descErr *DescriptorError
	var networkErr *NetworkError
	var stateErr *StateError
	var baseErr *Error

	switch {
	case errors.As(err, &configErr):
		return json.MarshalIndent(configErr, "", "  ")
	case errors.As(err, &valErr):
		return json.MarshalIndent(valErr, "", "  ")
	case errors.As(err, &descErr):
		return json.MarshalIndent(descErr, "", "  ")
	case errors.As(err, &networkErr):
		return json.MarshalIndent(networkErr, "", "  ")
	case errors.As(err, &stateErr):
		return json.MarshalIndent(stateErr, "", "  ")
	case errors.As(err, &baseErr):
		return json.MarshalIndent(baseErr, "", "  ")
	default:
		return json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
	}
}

// header writes "Error [E101]: message" or "Error: message" without a code.
func (f *Formatter) header(sb *strings.Builder, err *Error) {
	sb.WriteString(f.errorColor.Sprint("Error"))
	if err.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(f.codeColor.Sprintf("[%s]", err.Code))
	}
	sb.WriteString(f.errorColor.Sprint(": "))
	sb.WriteString(err.Message)
	sb.WriteString("\n\n")
}

func (f *Formatter) field(sb *strings.Builder, label, value string, show bool) {
	if !show {
		return
	}
	sb.WriteString("  ")
	sb.WriteString(f.dimColor.Sprint(label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

func (f *Formatter) footer(sb *strings.Builder, err *Error) {
	if err.Cause != nil {
		sb.WriteString("\n  ")
		sb.WriteString(f.dimColor.Sprint("Cause: "))
		sb.WriteString(err.Cause.Error())
		sb.WriteString("\n")
	}

	if err.Hint == "" {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(f.hintColor.Sprint("Hint: "))
	lines := strings.Split(err.Hint, "\n")
	sb.WriteString(lines[0])
	sb.WriteString("\n")
	for _, line := range lines[1:] {
		sb.WriteString("      ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
