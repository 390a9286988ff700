package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment: every scenario runs inside its own TempDir
	TempDir string
	EnvVars map[string]string

	// Test artifacts
	CreatedFiles []string
}

// NewTestContext creates a new test context.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "boxseed-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	// Resolve symlinks so paths printed by the CLI match paths built here.
	if resolved, err := filepath.EvalSymlinks(tempDir); err == nil {
		tempDir = resolved
	}

	return &TestContext{
		TempDir:      tempDir,
		EnvVars:      map[string]string{},
		CreatedFiles: []string{},
	}, nil
}

// Cleanup removes all temporary files and directories created during tests.
func (testCtx *TestContext) Cleanup() error {
	var errors []error

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errors = append(errors, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errors = append(errors, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("cleanup errors: %v", errors)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars[name] = value
}

// TrackFile adds a file to be cleaned up after tests.
func (testCtx *TestContext) TrackFile(filename string) {
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, testCtx.Path(filename))
}

// Path resolves a scenario-relative path inside the temp directory.
func (testCtx *TestContext) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(testCtx.TempDir, filepath.FromSlash(rel))
}

// substituteVariables replaces {dir} with the scenario directory.
func (testCtx *TestContext) substituteVariables(s string) string {
	return strings.ReplaceAll(s, "{dir}", testCtx.TempDir)
}

// writeFile writes content to a scenario-relative path, creating parents.
func (testCtx *TestContext) writeFile(rel, content string) (string, error) {
	path := testCtx.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	testCtx.TrackFile(path)
	return path, nil
}
