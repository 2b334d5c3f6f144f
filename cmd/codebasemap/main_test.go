package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebasemap/codebasemap/internal/types"
)

var testBinaryPath string

func TestMain(m *testing.M) {
	tempBinary := filepath.Join(os.TempDir(), fmt.Sprintf("codebasemap-test-%d", time.Now().UnixNano()))

	buildCmd := exec.Command("go", "build", "-o", tempBinary, ".")
	var buildOut bytes.Buffer
	buildCmd.Stdout = &buildOut
	buildCmd.Stderr = &buildOut
	if err := buildCmd.Run(); err != nil {
		fmt.Printf("failed to build codebasemap for testing: %v\nbuild output: %s\n", err, buildOut.String())
		os.Exit(1)
	}
	testBinaryPath = tempBinary

	code := m.Run()
	os.Remove(testBinaryPath)
	os.Exit(code)
}

func setupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.ts": `import { helper } from "./util";
export function main(): void {
  helper();
}`,
		"util.ts": `export function helper(): string {
  return "ok";
}`,
		"util.test.ts": `import { helper } from "./util";
test("helper", () => helper());`,
	}
	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(testBinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestScan_ProducesValidIndex(t *testing.T) {
	root := setupTestProject(t)

	stdout, stderr, err := runCLI(t, "scan", "--root", root)
	require.NoError(t, err, "stderr: %s", stderr)

	var idx types.ProjectIndex
	require.NoError(t, json.Unmarshal([]byte(stdout), &idx))
	assert.Equal(t, 3, idx.Metadata.TotalFiles)
	assert.Contains(t, idx.Nodes, "main.ts")
	assert.Contains(t, idx.Files["main.ts"].Dependencies, "util.ts")
}

func TestScan_RespectsExcludeFlag(t *testing.T) {
	root := setupTestProject(t)

	stdout, stderr, err := runCLI(t, "scan", "--root", root, "--exclude", "**/*.test.ts")
	require.NoError(t, err, "stderr: %s", stderr)

	var idx types.ProjectIndex
	require.NoError(t, json.Unmarshal([]byte(stdout), &idx))
	assert.Equal(t, 2, idx.Metadata.TotalFiles)
	assert.NotContains(t, idx.Nodes, "util.test.ts")
}

func TestScan_AllExcludedExitsWithPatternConflictCode(t *testing.T) {
	root := setupTestProject(t)

	_, _, err := runCLI(t, "scan", "--root", root, "--include", "src/**", "--exclude", "src/**")
	require.Error(t, err)
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	assert.Equal(t, 12, exitErr.ExitCode())
}

func TestFilterThenFormat_Pipeline(t *testing.T) {
	root := setupTestProject(t)

	scanOut, stderr, err := runCLI(t, "scan", "--root", root)
	require.NoError(t, err, "stderr: %s", stderr)

	scanFile := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(scanFile, []byte(scanOut), 0o644))

	filterCmd := exec.Command(testBinaryPath, "filter", "--in", scanFile, "--exclude", "**/*.test.ts")
	var filterOut bytes.Buffer
	filterCmd.Stdout = &filterOut
	require.NoError(t, filterCmd.Run())

	var filtered types.ProjectIndex
	require.NoError(t, json.Unmarshal(filterOut.Bytes(), &filtered))
	assert.Equal(t, 2, filtered.Metadata.TotalFiles)

	filteredFile := filepath.Join(t.TempDir(), "filtered.json")
	require.NoError(t, os.WriteFile(filteredFile, filterOut.Bytes(), 0o644))

	formatCmd := exec.Command(testBinaryPath, "format", "--in", filteredFile, "--style", "dsl")
	var formatOut bytes.Buffer
	formatCmd.Stdout = &formatOut
	require.NoError(t, formatCmd.Run())
	assert.Contains(t, formatOut.String(), "main.ts")
}
