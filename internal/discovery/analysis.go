package discovery

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"
)

// WarningKind enumerates the advisory categories discover_with_analysis
// can surface. These are non-fatal — unlike Component D's ALL_EXCLUDED
// conflict, the run still returns a result.
type WarningKind string

const (
	WarningNoMatch       WarningKind = "no_match_pattern"
	WarningBroadExclude  WarningKind = "exclude_over_half"
	WarningNarrowResult  WarningKind = "very_narrow_selection"
	WarningComplexGlob   WarningKind = "complex_pattern"
)

// Warning is one advisory emitted alongside a successful discovery.
type Warning struct {
	Kind       WarningKind
	Pattern    string
	Message    string
	Suggestion string
}

// Analysis bundles the discovered paths with diagnostics computed from the
// same pass, per spec.md §4.D's discover_with_analysis sibling.
type Analysis struct {
	Paths    []string
	Warnings []Warning
}

// maxGlobstarsBeforeComplex flags a pattern as "complex" once it has more
// than 3 "**" segments, per spec.md §4.D.
const maxGlobstarsBeforeComplex = 3

// narrowResultThreshold: a non-empty result of at most this many files, from a
// candidate set of at least 20, is flagged as a very narrow selection.
const narrowResultThreshold = 3
const narrowCandidateFloor = 20

// DiscoverWithAnalysis runs Discover and additionally reports no-match
// patterns, overly broad excludes, very narrow results, and complex
// (>3 "**") patterns — all derived from the same candidate/result counts,
// no extra filesystem pass.
func DiscoverWithAnalysis(root string, opts FilterOptions) (Analysis, error) {
	paths, candidateCount, err := discover(root, opts)
	if err != nil {
		return Analysis{}, err
	}

	var warnings []Warning
	resultSet := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		resultSet[p] = struct{}{}
	}

	for _, p := range opts.Include {
		norm := normalizeIncludePattern(p)
		if !patternMatchesAny(norm, paths) {
			warnings = append(warnings, Warning{
				Kind:       WarningNoMatch,
				Pattern:    p,
				Message:    fmt.Sprintf("include pattern %q matched no discovered file", p),
				Suggestion: suggestSimilarPath(p, paths),
			})
		}
		if strings.Count(norm, "**") > maxGlobstarsBeforeComplex {
			warnings = append(warnings, Warning{
				Kind:    WarningComplexGlob,
				Pattern: p,
				Message: fmt.Sprintf("include pattern %q has more than %d globstar segments", p, maxGlobstarsBeforeComplex),
			})
		}
	}
	for _, p := range opts.Exclude {
		if strings.Count(p, "**") > maxGlobstarsBeforeComplex {
			warnings = append(warnings, Warning{
				Kind:    WarningComplexGlob,
				Pattern: p,
				Message: fmt.Sprintf("exclude pattern %q has more than %d globstar segments", p, maxGlobstarsBeforeComplex),
			})
		}
	}

	if len(opts.Exclude) > 0 && candidateCount > 0 && len(paths) < candidateCount/2 {
		warnings = append(warnings, Warning{
			Kind:    WarningBroadExclude,
			Message: fmt.Sprintf("exclude patterns removed more than half of %d candidate files (%d remain)", candidateCount, len(paths)),
		})
	}

	if candidateCount >= narrowCandidateFloor && len(paths) > 0 && len(paths) <= narrowResultThreshold {
		warnings = append(warnings, Warning{
			Kind:    WarningNarrowResult,
			Message: fmt.Sprintf("selection narrowed %d candidates down to only %d files", candidateCount, len(paths)),
		})
	}

	return Analysis{Paths: paths, Warnings: warnings}, nil
}

func patternMatchesAny(pattern string, paths []string) bool {
	for _, p := range paths {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// suggestSimilarPath proposes the discovered path whose basename is closest
// to a no-match pattern's literal stem, using edit-distance fuzzy matching —
// a "did you mean" aid for typo'd include patterns.
func suggestSimilarPath(pattern string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	stem := strings.TrimSuffix(strings.TrimSuffix(pattern, "/**"), "/*")
	stem = strings.TrimSuffix(filepath.Base(stem), filepath.Ext(stem))
	if stem == "" {
		return ""
	}

	best := ""
	bestSimilarity := -1.0
	for _, c := range candidates {
		base := strings.TrimSuffix(filepath.Base(c), filepath.Ext(c))
		sim, err := edlib.StringsSimilarity(stem, base, edlib.Levenshtein)
		if err != nil {
			continue
		}
		// StringsSimilarity already returns a 0-1 similarity, 1 = identical.
		similarity := float64(sim)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = c
		}
	}
	return best
}
