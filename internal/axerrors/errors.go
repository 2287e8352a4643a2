// Package axerrors implements the compiler's structured error and warning
// surface: a taxonomy of error Kinds, a Diagnostic carrying source
// location, and ordered warning collection with warn-as-error promotion.
//
// Grounded field-for-field on the teacher's internal/errors.SentraError.
package axerrors

import (
	"fmt"
	"strings"
)

// Kind is the compiler error taxonomy from spec.md §7.
type Kind string

const (
	ParseError            Kind = "ParseError"
	TypeError             Kind = "TypeError"
	BinaryOperationError  Kind = "BinaryOperationError"
	FunctionLookupError   Kind = "FunctionLookupError"
	AmbiguousOverloadError Kind = "AmbiguousOverloadError"
	UnknownAttributeError Kind = "UnknownAttributeError"
	JitError              Kind = "JitError"
)

// WarningKind is the non-fatal warning taxonomy from spec.md §7.
type WarningKind string

const (
	WarnImplicitFloatToInt WarningKind = "ImplicitFloatToIntCast"
	WarnNarrowingConversion WarningKind = "NarrowingConversion"
	WarnDeadCode           WarningKind = "DeadCode"
	WarnUnusedLocal        WarningKind = "UnusedLocal"
	WarnBitwiseFloatCast   WarningKind = "BitwiseOpImplicitFloatCast"
)

// Location is a position in AX source text.
type Location struct {
	Line   int
	Column int
}

// Diagnostic is the structured object the compiler driver returns for
// failures (Kind is one of the Kind constants above) and for warnings
// (Kind is empty, WarningKind is set).
type Diagnostic struct {
	Kind        Kind
	WarningKind WarningKind
	Message     string
	Location    Location
	Snippet     string
}

func (d *Diagnostic) IsWarning() bool { return d.Kind == "" && d.WarningKind != "" }

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	label := string(d.Kind)
	if label == "" {
		label = "Warning:" + string(d.WarningKind)
	}
	sb.WriteString(fmt.Sprintf("%s: %s", label, d.Message))
	if d.Location.Line > 0 {
		sb.WriteString(fmt.Sprintf(" (line %d, column %d)", d.Location.Line, d.Location.Column))
	}
	if d.Snippet != "" {
		sb.WriteString(fmt.Sprintf("\n  %d | %s", d.Location.Line, d.Snippet))
		if d.Location.Column > 0 {
			sb.WriteString("\n  " + strings.Repeat(" ", len(fmt.Sprintf("%d | ", d.Location.Line))+d.Location.Column-1) + "^")
		}
	}
	return sb.String()
}

func New(kind Kind, line, col int, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{Line: line, Column: col},
	}
}

func NewWarning(kind WarningKind, line, col int, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		WarningKind: kind,
		Message:     fmt.Sprintf(format, args...),
		Location:    Location{Line: line, Column: col},
	}
}

func (d *Diagnostic) WithSnippet(snippet string) *Diagnostic {
	d.Snippet = snippet
	return d
}

// Diagnostics is an ordered collection of errors and warnings accumulated
// during one compilation. WarnAsError controls whether Warn promotes into
// an entry returned by Errors().
type Diagnostics struct {
	WarnAsError bool
	entries     []*Diagnostic
}

func (d *Diagnostics) Error(diag *Diagnostic) {
	d.entries = append(d.entries, diag)
}

func (d *Diagnostics) Warn(diag *Diagnostic) {
	if d.WarnAsError {
		promoted := *diag
		promoted.Kind = TypeError
		d.entries = append(d.entries, &promoted)
		return
	}
	d.entries = append(d.entries, diag)
}

// Errors returns only the fatal entries (errors, plus any warning promoted
// by WarnAsError).
func (d *Diagnostics) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, e := range d.entries {
		if !e.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns only the non-fatal entries, in the shape WarnAsError
// left them (i.e. empty once everything has been promoted to an error).
func (d *Diagnostics) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, e := range d.entries {
		if e.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

func (d *Diagnostics) HasErrors() bool { return len(d.Errors()) > 0 }

// All returns every entry in the order it was recorded.
func (d *Diagnostics) All() []*Diagnostic { return d.entries }
