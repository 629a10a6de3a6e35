// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fwerrors defines the diagnostic taxonomy used by the rule
// compiler: five error kinds, a structured Error carrying rule
// provenance, and a compiler-scoped Sink that collects diagnostics and
// computes the process exit code.
package fwerrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a compiler diagnostic.
type Kind int

const (
	KindStructural Kind = iota
	KindResolution
	KindSemantic
	KindCapacity
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindResolution:
		return "resolution"
	case KindSemantic:
		return "semantic"
	case KindCapacity:
		return "capacity"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Severity distinguishes a warning (compilation may still produce output)
// from an error (compilation is aborted, no output is written).
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Error is a structured compiler diagnostic with rule provenance.
type Error struct {
	Kind       Kind
	Severity   Severity
	Message    string
	Underlying error
	Attributes map[string]any

	// Provenance, per spec ("fw:ruleset:position: warning|error: msg").
	Firewall string
	RuleSet  string
	Position int
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("%s:%s:%d: %s", e.Firewall, e.RuleSet, e.Position, e.Severity)
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a warning-severity diagnostic of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Severity: SeverityWarning, Message: msg}
}

// Newf creates a formatted warning-severity diagnostic.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// Fatal creates an error-severity diagnostic of the given kind.
func Fatal(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Severity: SeverityError, Message: msg}
}

// Fatalf creates a formatted error-severity diagnostic.
func Fatalf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/severity to an existing error.
func Wrap(err error, kind Kind, severity Severity, msg string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: msg, Underlying: err}
}

// At returns a copy of e with provenance filled in.
func (e *Error) At(firewall, ruleSet string, position int) *Error {
	n := *e
	n.Firewall = firewall
	n.RuleSet = ruleSet
	n.Position = position
	return &n
}

// GetKind returns the Kind of err, or KindStructural if err is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStructural
}

// ExitCode values per spec §6.5.
const (
	ExitSuccess = 0
	ExitWarning = 1
	ExitError   = 2
)

// Sink is the compiler-scoped diagnostic collector: a single compilation
// pass accumulates warnings/errors here instead of raising exceptions, per
// spec's "diagnostic sink" re-architecture note (§9.1).
type Sink struct {
	diags   []*Error
	aborted bool
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Add records a diagnostic. Error-severity diagnostics set the aborted flag,
// which downstream processors are expected to observe and stop producing
// output (spec §5, §7 propagation policy).
func (s *Sink) Add(e *Error) {
	s.diags = append(s.diags, e)
	if e.Severity == SeverityError {
		s.aborted = true
	}
}

// Warnf records a warning with the given kind and provenance.
func (s *Sink) Warnf(kind Kind, firewall, ruleSet string, position int, format string, args ...any) {
	s.Add(Newf(kind, format, args...).At(firewall, ruleSet, position))
}

// Errorf records an error with the given kind and provenance.
func (s *Sink) Errorf(kind Kind, firewall, ruleSet string, position int, format string, args ...any) {
	s.Add(Fatalf(kind, format, args...).At(firewall, ruleSet, position))
}

// Aborted reports whether any error-severity diagnostic has been recorded.
func (s *Sink) Aborted() bool {
	return s.aborted
}

// Diagnostics returns all recorded diagnostics in recording order.
func (s *Sink) Diagnostics() []*Error {
	return s.diags
}

// ExitCode computes the process exit status: SUCCESS when there are no
// diagnostics, WARNING when there are only warnings, ERROR when any
// error-severity diagnostic was recorded.
func (s *Sink) ExitCode() int {
	if s.aborted {
		return ExitError
	}
	if len(s.diags) > 0 {
		return ExitWarning
	}
	return ExitSuccess
}
