package classify

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(i int) *int { return &i }

func TestRuleSetFirstMatchWinsAndDefault(t *testing.T) {
	rs := RuleSet{
		Rules: []Rule{
			{Name: "a", Pattern: regexp.MustCompile(`x`), Verdict: "first"},
			{Name: "b", Pattern: regexp.MustCompile(`x`), Verdict: "second"},
			{Name: "guarded", Guard: func(in Input) bool { return in.Text == "g" }, Verdict: "guard"},
		},
		Default: "none",
	}
	assert.Equal(t, Match{Verdict: "first", Rule: "a", Groups: []string{"x"}}, rs.Evaluate(Input{Text: "x"}))
	assert.Equal(t, Verdict("guard"), rs.Classify("g"))
	assert.Equal(t, Match{Verdict: "none"}, rs.Evaluate(Input{Text: "y"}))
}

func TestIsTestCommand(t *testing.T) {
	tests := []struct {
		cmd  string
		want bool
	}{
		{"npm test", true},
		{"npm run test -- --watch=false", true},
		{"yarn test", true},
		{"npx vitest run", true},
		{"jest", true},
		{"pytest -q tests/", true},
		{"python -m pytest", true},
		{"go test ./...", true},
		{"cargo test", true},
		{"./gradlew clean test", true},
		{"mvn -q test", true},
		{"dotnet test", true},
		{"make test", true},
		{"ls -la", false},
		{"cat jest.config.js", false},
		{"git commit -m 'add tests'", false},
		{"npm install", false},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTestCommand(tt.cmd))
		})
	}
}

func TestTestPassed(t *testing.T) {
	tests := []struct {
		name   string
		output string
		exit   *int
		want   bool
	}{
		{"jest all passed", "Tests: 12 passed, 12 total", nil, true},
		{"success with failure count", "Tests: 1 failed, 11 passed, 12 total", intp(0), false},
		{"zero failures is fine", "10 passed, 0 failed", nil, true},
		{"pytest failure", "==== 2 failed, 3 passed in 0.12s ====", nil, false},
		{"go ok", "ok  \tgithub.com/x/y\t0.01s", nil, true},
		{"go fail among ok", "ok  \tgithub.com/x/a\t0.01s\n--- FAIL: TestB (0.00s)\nFAIL\tgithub.com/x/b", nil, false},
		{"cargo ok", "test result: ok. 4 passed; 0 failed", nil, true},
		{"failure marker beats exit zero", "AssertionError: expected true", intp(0), false},
		{"exit code zero", "done", intp(0), true},
		{"exit code non-zero", "done", intp(1), false},
		{"inconclusive defaults to failure", "something happened", nil, false},
		{"empty defaults to failure", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TestPassed(tt.output, tt.exit))
		})
	}
}

func TestFailureSignature(t *testing.T) {
	a := FailureSignature("running...\n--- FAIL: TestLogin (0.02s)\n    login_test.go:12: got 1")
	b := FailureSignature("running...\n--- FAIL: TestLogin (0.35s)\n    login_test.go:12: got 1")
	assert.Equal(t, a, b, "durations are masked")
	assert.Contains(t, a, "TestLogin")

	assert.Equal(t, "last line", FailureSignature("first\n\nlast line\n"))
	assert.Empty(t, FailureSignature("   "))

	long := FailureSignature("Error: " + string(make([]byte, 500)))
	assert.LessOrEqual(t, len(long), maxFailureText)
}

const pytestFailure = `============================= test session starts ==============================
collected 3 items

tests/test_api.py .F.                                                    [100%%]

=================================== FAILURES ===================================
__________________________________ test_login __________________________________

    def test_login():
>       %s
E       %s

tests/test_api.py:12: %s
=========================== short test summary info ============================
FAILED tests/test_api.py::test_login - %s
========================= 1 failed, 2 passed in 0.42s ==========================`

func pytestOutput(assertion, message string) string {
	kind, _, _ := strings.Cut(message, ":")
	return fmt.Sprintf(pytestFailure, assertion, message, kind, message)
}

func TestFailureSignatureDistinguishesErrors(t *testing.T) {
	status := FailureSignature(pytestOutput("assert resp.status == 200", "AssertionError: expected 200 got 500"))
	session := FailureSignature(pytestOutput("user = request.session['session']", "KeyError: 'session'"))
	assert.NotEqual(t, status, session)
	assert.Contains(t, status, "expected 200 got 500")
	assert.Contains(t, session, "KeyError: 'session'")
	assert.NotContains(t, status, "=====")

	rerun := FailureSignature(pytestOutput("assert resp.status == 200", "AssertionError: expected 200 got 500"))
	assert.Equal(t, status, rerun)

	jest := func(expected string) string {
		return FailureSignature("FAIL src/login.test.js\n  ● login › rejects bad password\n\n    Expected: " + expected + "\n    Received: 200\n")
	}
	assert.NotEqual(t, jest("401"), jest("403"))
	assert.NotContains(t, jest("401"), "src/login.test.js")
}

func TestIsCompletionIntent(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Complete the requirements phase", true},
		{"Phase 06 is done, record it", true},
		{"Advance to the next phase", true},
		{"Run the gate check before moving on", true},
		{"Write the login handler", false},
		{"Initialize the project and complete phase setup", false},
		{"Discover the project structure", false},
		{"Configure the constitution", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompletionIntent(tt.text))
		})
	}
}

func TestSourceRefs(t *testing.T) {
	assert.Equal(t, Match{Verdict: GitHubRef, Rule: "github-issue", Groups: []string{"#42", "42"}}, SourceRefs.Evaluate(Input{Text: "#42"}))
	assert.Equal(t, JiraRef, SourceRefs.Classify("PROJ-7"))
	assert.Equal(t, BareNumber, SourceRefs.Classify("42"))
	assert.Equal(t, FreeText, SourceRefs.Classify("Add login #42"))
	assert.Equal(t, FreeText, SourceRefs.Classify("proj-7"))
}
