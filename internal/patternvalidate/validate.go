// Package patternvalidate implements Component A (Pattern Validator) of
// spec.md §4.A: syntactic and security validation of glob patterns, with no
// I/O. Grounded on the teacher's internal/security package's layered
// validation style (ordered checks, each returning a specific reason) and
// compiled against github.com/bmatcuk/doublestar/v4, the glob engine used
// throughout this module.
package patternvalidate

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
)

const (
	maxPatternLength = 1000
	maxPatternCount  = 100
	maxGlobstarCount = 10
)

var securityTokens = []string{"$(", "`", ";", "&", ">", "<"}

// Validate checks a single pattern string against spec.md §4.A's ordered
// rules. index is -1 when the pattern is not part of an array.
func Validate(pattern string, role lciserrors.PatternRole, index int) error {
	if pattern == "" {
		return lciserrors.NewInvalidPatternSyntax(pattern, "pattern must be a non-empty string", role, index)
	}
	if len(pattern) > maxPatternLength {
		return lciserrors.NewInvalidPatternSyntax(pattern, "pattern exceeds 1000 characters", role, index)
	}
	if err := validateSecurity(pattern, role, index); err != nil {
		return err
	}
	if strings.Count(pattern, "**") > maxGlobstarCount {
		return lciserrors.NewPerformanceError([]string{pattern}, "globstar_count", strings.Count(pattern, "**"), maxGlobstarCount)
	}
	if !doublestar.ValidatePattern(pattern) {
		return lciserrors.NewInvalidPatternSyntax(pattern, "pattern failed to compile", role, index)
	}
	return nil
}

// ValidateList validates an array of patterns (length-capped at 100),
// returning the first failure encountered in order.
func ValidateList(patterns []string, role lciserrors.PatternRole) error {
	if len(patterns) > maxPatternCount {
		return lciserrors.NewInvalidPatternSyntax("", "pattern array exceeds 100 entries", role, -1)
	}
	for i, p := range patterns {
		if err := Validate(p, role, i); err != nil {
			return err
		}
	}
	return nil
}

// validateSecurity rejects path traversal, absolute patterns, shell
// metacharacters, and unbalanced pipe alternation. A `|` enclosed in
// balanced parentheses is extglob alternation and is permitted.
func validateSecurity(pattern string, role lciserrors.PatternRole, index int) error {
	if strings.Contains(pattern, "../") {
		return lciserrors.NewSecurityViolation(pattern, "pattern contains path traversal (../)", role, index)
	}
	if strings.HasPrefix(pattern, "/") {
		return lciserrors.NewSecurityViolation(pattern, "pattern must not be absolute", role, index)
	}
	for _, tok := range securityTokens {
		if strings.Contains(pattern, tok) {
			return lciserrors.NewSecurityViolation(pattern, "pattern contains disallowed shell metacharacter "+tok, role, index)
		}
	}
	if hasUnbalancedPipe(pattern) {
		return lciserrors.NewSecurityViolation(pattern, "pattern contains an unenclosed | (only extglob alternation inside parentheses is allowed)", role, index)
	}
	return nil
}

// hasUnbalancedPipe walks the pattern tracking paren depth; a `|` is only
// permitted while depth > 0.
func hasUnbalancedPipe(pattern string) bool {
	depth := 0
	for _, r := range pattern {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}
