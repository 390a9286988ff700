package support

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// theErrorShouldMentionFileNotFound verifies file not found error.
func (testCtx *TestContext) theErrorShouldMentionFileNotFound() error {
	return testCtx.theErrorShouldMention("no such file")
}

// theErrorShouldMentionUnknownFlag verifies unknown flag error.
func (testCtx *TestContext) theErrorShouldMentionUnknownFlag() error {
	return testCtx.theErrorShouldMention("unknown flag")
}

// theErrorShouldSuggestAvailableCommands verifies command suggestion error.
func (testCtx *TestContext) theErrorShouldSuggestAvailableCommands() error {
	text := strings.ToLower(testCtx.LastStderr + " " + fmt.Sprint(testCtx.LastError))
	for _, indicator := range []string{"did you mean", "unknown command"} {
		if strings.Contains(text, indicator) {
			return nil
		}
	}
	return fmt.Errorf("error does not suggest available commands: %s", text)
}

// theErrorShouldMentionInvalidConfigurationValues verifies a validation error.
func (testCtx *TestContext) theErrorShouldMentionInvalidConfigurationValues() error {
	return testCtx.theErrorShouldMention("configuration validation failed")
}

// RegisterErrorSteps registers error verification steps.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the error should mention a missing file$`, testCtx.theErrorShouldMentionFileNotFound)
	sc.Step(`^the error should mention an unknown flag$`, testCtx.theErrorShouldMentionUnknownFlag)
	sc.Step(`^the error should suggest available commands$`, testCtx.theErrorShouldSuggestAvailableCommands)
	sc.Step(`^the error should mention invalid configuration values$`,
		testCtx.theErrorShouldMentionInvalidConfigurationValues)
}
