package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/boxseed/cmd/boxseed/cmd"
	"github.com/cucumber/godog"
)

// iRunCommand executes a boxseed command line in-process and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteVariables(command)
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "boxseed" {
		parts = parts[1:]
	}

	restoreEnv, err := testCtx.applyEnv()
	if err != nil {
		return err
	}
	defer restoreEnv()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := os.Chdir(testCtx.TempDir); err != nil {
		return fmt.Errorf("failed to enter scenario directory: %w", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd.ResetFlags()
	root := cmd.GetRootCommand()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(parts)

	err = root.ExecuteContext(ctx)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)
	if err != nil {
		testCtx.LastExitCode = 1
	} else {
		testCtx.LastExitCode = 0
	}
	return nil
}

// applyEnv sets the scenario environment and returns a function restoring it.
func (testCtx *TestContext) applyEnv() (func(), error) {
	type saved struct {
		value string
		ok    bool
	}
	previous := make(map[string]saved, len(testCtx.EnvVars))
	for name, value := range testCtx.EnvVars {
		old, ok := os.LookupEnv(name)
		previous[name] = saved{old, ok}
		if err := os.Setenv(name, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return func() {
		for name, p := range previous {
			if p.ok {
				_ = os.Setenv(name, p.value)
			} else {
				_ = os.Unsetenv(name)
			}
		}
	}, nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies the output lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeExactly compares the whole output.
func (testCtx *TestContext) theOutputShouldBeExactly(doc *godog.DocString) error {
	want := strings.TrimSpace(doc.Content)
	got := strings.TrimSpace(testCtx.LastOutput)
	if got != want {
		return fmt.Errorf("output mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
	return nil
}

// theLogsShouldContain verifies the structured logs contain specific text.
func (testCtx *TestContext) theLogsShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastStderr, expectedText) {
		return fmt.Errorf("logs do not contain '%s'\nActual logs: %s", expectedText, testCtx.LastStderr)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return nil
}

// theJSONShouldContain verifies JSON contains a specific field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return checkFieldExists(data, field)
}

// theJSONFieldShouldBe compares a top-level JSON field rendered with %v.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	val, ok := data[field]
	if !ok {
		return fmt.Errorf("field '%s' not found in JSON", field)
	}
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %s, want %s", field, got, expected)
	}
	return nil
}

func checkFieldExists(data map[string]any, field string) error {
	// Handle nested field paths (e.g., "engine.workers")
	parts := strings.Split(field, ".")
	current := data

	for i, part := range parts {
		val, exists := current[part]
		if !exists {
			return fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return nil
		}
		nextMap, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot navigate deeper into non-object field '%s'", part)
		}
		current = nextMap
	}
	return nil
}

// theOutputShouldBeValidCSVWithRows verifies the CSV output and its data row count.
func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) == 0 {
		return errors.New("CSV output has no header")
	}
	if got := len(records) - 1; got != rows {
		return fmt.Errorf("CSV has %d data rows, want %d\nOutput: %s", got, rows, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput + " " + testCtx.LastStderr
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	// Convert to lowercase for case-insensitive matching
	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// theFileShouldExist verifies a file exists.
func (testCtx *TestContext) theFileShouldExist(filename string) error {
	fullPath := testCtx.Path(filename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", fullPath)
	}
	return nil
}

// theFileShouldContain verifies a file contains specific content.
func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	if err := testCtx.theFileShouldExist(filename); err != nil {
		return err
	}

	fullPath := testCtx.Path(filename)
	content, err := os.ReadFile(fullPath) //nolint:gosec // G304: Test file reading with controlled path
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", fullPath, err)
	}

	if !strings.Contains(string(content), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'\nActual content: %s",
			filename, expectedContent, string(content))
	}
	return nil
}

// theFileShouldContainBlock verifies a file contains a multi-line block.
func (testCtx *TestContext) theFileShouldContainBlock(filename string, doc *godog.DocString) error {
	return testCtx.theFileShouldContain(filename, doc.Content)
}

// theEnvironmentVariableIsSetTo sets an environment variable for the next commands.
func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteVariables(value))
	return nil
}

// theOutputShouldContainVersionInformation verifies version output.
func (testCtx *TestContext) theOutputShouldContainVersionInformation() error {
	for _, indicator := range []string{"boxseed version", "Commit:", "Built:"} {
		if !strings.Contains(testCtx.LastOutput, indicator) {
			return fmt.Errorf("output does not contain version information %q: %s", indicator, testCtx.LastOutput)
		}
	}
	return nil
}

// registerCommandSteps registers command execution and result verification steps.
func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
}

// registerOutputSteps registers output verification steps.
func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be exactly:$`, testCtx.theOutputShouldBeExactly)
	sc.Step(`^the logs should contain "([^"]*)"$`, testCtx.theLogsShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)
	sc.Step(`^the output should contain version information$`, testCtx.theOutputShouldContainVersionInformation)
}

// registerFileSteps registers file verification steps.
func (testCtx *TestContext) registerFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the file "([^"]*)" should contain:$`, testCtx.theFileShouldContainBlock)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}

// RegisterCommonSteps registers all common step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
	testCtx.registerFileSteps(sc)
}
