package patternvalidate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
)

func TestValidate_Accepts(t *testing.T) {
	cases := []string{
		"src/**/*.ts",
		"examples/**",
		"*.tsx",
		"src/{a,b}.ts",
		"src/@(a|b).ts", // extglob alternation inside parens
	}
	for _, p := range cases {
		t.Run(p, func(t *testing.T) {
			assert.NoError(t, Validate(p, lciserrors.RoleInclude, -1))
		})
	}
}

func TestValidate_RejectsTraversal(t *testing.T) {
	err := Validate("../etc/passwd", lciserrors.RoleExclude, 0)
	require.Error(t, err)
	var pe *lciserrors.PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, lciserrors.KindSecurityViolation, pe.Kind)
}

func TestValidate_RejectsAbsolute(t *testing.T) {
	err := Validate("/etc/passwd", lciserrors.RoleExclude, 0)
	require.Error(t, err)
	var pe *lciserrors.PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, lciserrors.KindSecurityViolation, pe.Kind)
}

func TestValidate_RejectsShellMetacharacters(t *testing.T) {
	for _, p := range []string{"$(rm -rf /)", "`whoami`", "a;b", "a&b", "a>b", "a<b"} {
		err := Validate(p, lciserrors.RoleInclude, -1)
		require.Error(t, err, p)
	}
}

func TestValidate_RejectsUnenclosedPipe(t *testing.T) {
	err := Validate("a|b", lciserrors.RoleInclude, -1)
	require.Error(t, err)
}

func TestValidate_RejectsTooManyGlobstars(t *testing.T) {
	p := strings.Repeat("**/", 11) + "x.ts"
	err := Validate(p, lciserrors.RoleInclude, -1)
	require.Error(t, err)
	var perf *lciserrors.PerformanceError
	require.ErrorAs(t, err, &perf)
}

func TestValidate_RejectsEmptyString(t *testing.T) {
	err := Validate("", lciserrors.RoleInclude, -1)
	require.Error(t, err)
}

func TestValidate_RejectsTooLong(t *testing.T) {
	err := Validate(strings.Repeat("a", 1001), lciserrors.RoleInclude, -1)
	require.Error(t, err)
}

func TestValidateList_RejectsTooManyPatterns(t *testing.T) {
	patterns := make([]string, 101)
	for i := range patterns {
		patterns[i] = "a.ts"
	}
	err := ValidateList(patterns, lciserrors.RoleInclude)
	require.Error(t, err)
}

func TestValidateList_PropagatesIndex(t *testing.T) {
	patterns := []string{"ok.ts", "../bad.ts"}
	err := ValidateList(patterns, lciserrors.RoleExclude)
	require.Error(t, err)
	var pe *lciserrors.PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, lciserrors.RoleExclude, pe.Role)
}
