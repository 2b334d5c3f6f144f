// Package errors implements the error taxonomy of spec.md §7: typed,
// machine-readable error kinds that carry enough context for both a CLI
// exit-code mapping and structured diagnostics, grounded on the teacher's
// internal/errors package (typed structs, New* constructors, Unwrap).
package errors

import (
	"fmt"
	"time"
)

// Kind is the machine-readable error category of spec.md §7's taxonomy
// table.
type Kind string

const (
	KindInvalidPatternSyntax Kind = "invalid_pattern_syntax"
	KindSecurityViolation    Kind = "security_violation"
	KindPatternConflict      Kind = "pattern_conflict"
	KindFilesystem           Kind = "filesystem"
	KindPerformance          Kind = "performance"
	KindUnexpected           Kind = "unexpected"
)

// ConflictReason distinguishes the three PatternConflict variants.
type ConflictReason string

const (
	ConflictAllExcluded  ConflictReason = "ALL_EXCLUDED"
	ConflictContradictory ConflictReason = "CONTRADICTORY"
	ConflictIneffective  ConflictReason = "INEFFECTIVE"
)

// PatternRole tags a pattern as belonging to an include or exclude list.
type PatternRole string

const (
	RoleInclude PatternRole = "include"
	RoleExclude PatternRole = "exclude"
)

// PatternError is raised by the Pattern Validator (Component A). Index is
// -1 when the pattern was not part of an array.
type PatternError struct {
	Kind      Kind
	Pattern   string
	Reason    string
	Index     int
	Role      PatternRole
	Timestamp time.Time
}

func newPatternError(kind Kind, pattern, reason string, role PatternRole, index int) *PatternError {
	return &PatternError{Kind: kind, Pattern: pattern, Reason: reason, Role: role, Index: index, Timestamp: time.Now()}
}

// NewInvalidPatternSyntax reports a pattern that failed type/length/syntax
// checks.
func NewInvalidPatternSyntax(pattern, reason string, role PatternRole, index int) *PatternError {
	return newPatternError(KindInvalidPatternSyntax, pattern, reason, role, index)
}

// NewSecurityViolation reports a pattern that tripped a security rule.
func NewSecurityViolation(pattern, reason string, role PatternRole, index int) *PatternError {
	return newPatternError(KindSecurityViolation, pattern, reason, role, index)
}

func (e *PatternError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: pattern %q (role=%s, index=%d): %s", e.Kind, e.Pattern, e.Role, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s: pattern %q (role=%s): %s", e.Kind, e.Pattern, e.Role, e.Reason)
}

// PatternConflictError is raised by Component D, with reason ALL_EXCLUDED,
// when patterns leave no file out of a non-empty candidate set. Component I
// (filter.Apply) does not raise it, and no code path raises the
// CONTRADICTORY or INEFFECTIVE reasons.
type PatternConflictError struct {
	Reason          ConflictReason
	Include         []string
	Exclude         []string
	CandidateCount  int
	ResultCount     int
	Timestamp       time.Time
}

func NewPatternConflict(reason ConflictReason, include, exclude []string, candidateCount, resultCount int) *PatternConflictError {
	return &PatternConflictError{
		Reason:         reason,
		Include:        include,
		Exclude:        exclude,
		CandidateCount: candidateCount,
		ResultCount:    resultCount,
		Timestamp:      time.Now(),
	}
}

func (e *PatternConflictError) Error() string {
	return fmt.Sprintf("pattern_conflict(%s): %d candidates narrowed to %d by include=%v exclude=%v",
		e.Reason, e.CandidateCount, e.ResultCount, e.Include, e.Exclude)
}

// FilesystemError wraps an underlying OS error with the operation and path
// that triggered it. Raised by Component D, G, H.
type FilesystemError struct {
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewFilesystemError(op, path string, err error) *FilesystemError {
	return &FilesystemError{Operation: op, Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *FilesystemError) Unwrap() error { return e.Underlying }

// NewNoFilesFound reports a specific Filesystem-kind condition: discovery
// returned no files without raising a pattern conflict, i.e. the candidate
// set under root was empty.
func NewNoFilesFound(root string) *FilesystemError {
	return NewFilesystemError("discover", root, fmt.Errorf("no supported files found under root"))
}

// PerformanceError is raised when a pattern or operation trips a
// performance guard (e.g. too many ** segments).
type PerformanceError struct {
	Patterns  []string
	Metric    string
	Value     int
	Limit     int
	Timestamp time.Time
}

func NewPerformanceError(patterns []string, metric string, value, limit int) *PerformanceError {
	return &PerformanceError{Patterns: patterns, Metric: metric, Value: value, Limit: limit, Timestamp: time.Now()}
}

func (e *PerformanceError) Error() string {
	return fmt.Sprintf("performance: %s=%d exceeds limit %d for patterns %v", e.Metric, e.Value, e.Limit, e.Patterns)
}

// UnexpectedError wraps any error that doesn't fit another taxonomy kind.
type UnexpectedError struct {
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewUnexpected(op string, err error) *UnexpectedError {
	return &UnexpectedError{Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected during %s: %v", e.Operation, e.Underlying)
}

func (e *UnexpectedError) Unwrap() error { return e.Underlying }

// ExitCode maps an error to the authoritative CLI exit codes of spec.md §6.
// A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch e := err.(type) {
	case *PatternError:
		if e.Kind == KindSecurityViolation {
			return 11
		}
		return 10
	case *PatternConflictError:
		return 12
	case *FilesystemError:
		return 13
	case *PerformanceError:
		return 14
	case *UnexpectedError:
		return 99
	default:
		return 99
	}
}
