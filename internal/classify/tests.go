package classify

import (
	"regexp"
	"strings"
)

// Test command verdicts.
const (
	TestCommand  Verdict = "test"
	OtherCommand Verdict = "other"
)

// Test result verdicts.
const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

// TestCommands recognizes shell commands that run a test suite.
var TestCommands = RuleSet{
	Name: "test-command",
	Rules: []Rule{
		{Name: "node-package-manager", Pattern: regexp.MustCompile(`\b(npm|pnpm|yarn|bun)\s+(run\s+)?test\b`), Verdict: TestCommand},
		{Name: "node-runner", Pattern: regexp.MustCompile(`\b(jest|vitest|mocha)(\s|$)|\bplaywright\s+test\b`), Verdict: TestCommand},
		{Name: "pytest", Pattern: regexp.MustCompile(`\b(pytest|python3?\s+-m\s+(pytest|unittest))\b`), Verdict: TestCommand},
		{Name: "go", Pattern: regexp.MustCompile(`\bgo\s+test\b`), Verdict: TestCommand},
		{Name: "cargo", Pattern: regexp.MustCompile(`\bcargo\s+(test|nextest)\b`), Verdict: TestCommand},
		{Name: "jvm", Pattern: regexp.MustCompile(`(^|\s)(mvn|gradle|\./gradlew|gradlew)\b.*\btest\b`), Verdict: TestCommand},
		{Name: "dotnet", Pattern: regexp.MustCompile(`\bdotnet\s+test\b`), Verdict: TestCommand},
		{Name: "ruby-php", Pattern: regexp.MustCompile(`\b(rspec|phpunit|rake\s+test)\b`), Verdict: TestCommand},
		{Name: "make", Pattern: regexp.MustCompile(`\b(make|mage)\s+test\b`), Verdict: TestCommand},
	},
	Default: OtherCommand,
}

var failureCountRe = regexp.MustCompile(`(?i)\b([1-9]\d*)\s+(failed|failing|failures?|errors?)\b|\b(failed|failures?|errors?)\s*[:=]\s*([1-9]\d*)`)

// noFailureCount is true when the output reports no non-zero failure count.
func noFailureCount(in Input) bool {
	return !failureCountRe.MatchString(in.Text)
}

var failLineRe = regexp.MustCompile(`(?m)^(--- )?FAIL\b`)

// noFailureMarkers additionally rejects go-style FAIL lines, which appear
// next to ok lines of other packages.
func noFailureMarkers(in Input) bool {
	return noFailureCount(in) && !failLineRe.MatchString(in.Text)
}

func exitZero(in Input) bool    { return in.ExitCode != nil && *in.ExitCode == 0 }
func exitNonZero(in Input) bool { return in.ExitCode != nil && *in.ExitCode != 0 }

// TestResults classifies test output. Success markers count only when no
// non-zero failure count appears alongside them; failure markers come next,
// then the exit code. Inconclusive output is a failure.
var TestResults = RuleSet{
	Name: "test-result",
	Rules: []Rule{
		{Name: "all-passed", Pattern: regexp.MustCompile(`(?i)\ball tests? passed\b`), Guard: noFailureCount, Verdict: Pass},
		{Name: "count-passed", Pattern: regexp.MustCompile(`(?i)\b\d+\s+(passed|passing)\b`), Guard: noFailureCount, Verdict: Pass},
		{Name: "test-result-ok", Pattern: regexp.MustCompile(`(?i)\btest result:\s*ok\b`), Guard: noFailureCount, Verdict: Pass},
		{Name: "go-ok", Pattern: regexp.MustCompile(`(?m)^(ok\s+\S+|PASS$)`), Guard: noFailureMarkers, Verdict: Pass},
		{Name: "failure-count", Pattern: failureCountRe, Verdict: Fail},
		{Name: "fail-line", Pattern: failLineRe, Verdict: Fail},
		{Name: "test-result-failed", Pattern: regexp.MustCompile(`(?i)\btest result:\s*FAILED\b|\btests? failed\b`), Verdict: Fail},
		{Name: "assertion", Pattern: regexp.MustCompile(`\b(AssertionError|assert\.\w+ failed|panic:)`), Verdict: Fail},
		{Name: "exit-zero", Guard: exitZero, Verdict: Pass},
		{Name: "exit-nonzero", Guard: exitNonZero, Verdict: Fail},
	},
	Default: Fail,
}

// IsTestCommand reports whether command runs a test suite.
func IsTestCommand(command string) bool {
	return TestCommands.Classify(command) == TestCommand
}

// TestPassed classifies the output and exit code of a test run.
func TestPassed(output string, exitCode *int) bool {
	return TestResults.Evaluate(Input{Text: output, ExitCode: exitCode}).Verdict == Pass
}

var (
	// assertionLineRe matches lines that carry the failure itself: pytest
	// "E" lines and short summaries, go test names and file:line messages,
	// jest test bullets and expectations, exception and error messages.
	assertionLineRe = regexp.MustCompile(`^(E\s+\S|FAILED\s+\S+\s+-\s|--- FAIL:|\S+_test\.go:\d+:|● |(Expected|Received):|panic:|error(\[\w+\])?:)|\b\w*(Error|Exception):`)
	errorLineRe     = regexp.MustCompile(`(?i)(error|fail|exception|assert|panic)`)
	// bannerLineRe matches decoration rules such as pytest's
	// "==== FAILURES ====" and "____ test_x ____".
	bannerLineRe = regexp.MustCompile(`^[=_\-*#~]{3,}`)
	// fileHeaderRe matches per-file or per-package result headers such as
	// jest's "FAIL src/a.test.js" and go's "FAIL\tpkg\t0.1s".
	fileHeaderRe = regexp.MustCompile(`^(FAIL|PASS|ok)\s+\S+(\s+\S+)?$`)
	durationRe   = regexp.MustCompile(`\b\d+(\.\d+)?\s*(ms|s|sec|seconds)\b`)
	hexAddrRe    = regexp.MustCompile(`0x[0-9a-fA-F]+`)
)

// maxFailureText bounds the extracted failure signature.
const maxFailureText = 200

// maxAssertionLines bounds how many failure lines a signature joins.
const maxAssertionLines = 3

// FailureSignature extracts the text compared between consecutive failures.
// It joins the first lines that carry an assertion or error message; when
// there are none it takes the first error-looking line that is not a banner
// or a file header, else the last non-empty line. Durations and addresses
// are masked so reruns of the same failure compare equal.
func FailureSignature(output string) string {
	var assertions []string
	var first, last string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if assertionLineRe.MatchString(line) {
			if len(assertions) < maxAssertionLines {
				assertions = append(assertions, line)
			}
			continue
		}
		if bannerLineRe.MatchString(line) || fileHeaderRe.MatchString(line) {
			continue
		}
		if first == "" && errorLineRe.MatchString(line) {
			first = line
		}
	}
	sig := strings.Join(assertions, " | ")
	if sig == "" {
		sig = first
	}
	if sig == "" {
		sig = last
	}
	sig = durationRe.ReplaceAllString(sig, "<t>")
	sig = hexAddrRe.ReplaceAllString(sig, "<addr>")
	if len(sig) > maxFailureText {
		sig = sig[:maxFailureText]
	}
	return sig
}
