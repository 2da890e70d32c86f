package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/chazu/swarf/pkg/job"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		s, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if s == nil {
			t.Fatal("expected non-nil script")
		}
		if len(s.Jobs) != 0 {
			t.Errorf("expected no jobs, got %d", len(s.Jobs))
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	s, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if s == nil || len(s.Jobs) != 0 {
		t.Fatalf("expected an empty script, got %+v", s)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	s, evalErrs, err := eng.Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil script on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	s, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil script on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateResult(t *testing.T) {
	eng := NewEngine()

	res := eng.EvaluateResult(`(job :input "a.stl")`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Script == nil || len(res.Script.Jobs) != 1 {
		t.Fatalf("expected one job, got %+v", res.Script)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "no :tool") {
		t.Errorf("warnings = %v, want the missing tool warning", res.Warnings)
	}

	res = eng.EvaluateResult(`(job :input`)
	if res.Script != nil || len(res.Errors) == 0 {
		t.Errorf("expected errors only, got %+v", res)
	}
}

func TestWithDefaults(t *testing.T) {
	base := job.New("")
	base.Tool.Feed = 900
	base.LayerHeight = 0.25
	eng := NewEngine(WithDefaults(base))

	s, evalErrs, err := eng.Evaluate(`(job :input "part.stl")`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("evaluate: %v %v", err, evalErrs)
	}
	j := s.Jobs[0]
	if j.Tool.Feed != 900 || j.LayerHeight != 0.25 {
		t.Errorf("job did not start from the defaults: feed %g, layer height %g", j.Tool.Feed, j.LayerHeight)
	}
	if eng.Kernel() == nil || eng.Kernel().Name() != "sdfx" {
		t.Errorf("expected the sdfx kernel by default")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not mention a line, got %q", s)
	}
}

func TestEvalWarningString(t *testing.T) {
	if got := (EvalWarning{Job: "plate", Message: "m"}).String(); got != "job plate: m" {
		t.Errorf("got %q", got)
	}
	if got := (EvalWarning{Message: "m"}).String(); got != "m" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	src := `(job :name "a" :input "a.stl" :tool (tool :diameter 3))`

	for i := 0; i < 5; i++ {
		s, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if len(s.Jobs) != 1 || s.Jobs[0].Name != "a" || s.Jobs[0].Tool.Diameter != 3 {
			t.Errorf("iteration %d: got %+v", i, s.Jobs)
		}
		// Job numbering starts over with each evaluation.
		if len(s.Warnings) != 0 {
			t.Errorf("iteration %d: unexpected warnings %v", i, s.Warnings)
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	eng := NewEngine(WithTimeout(20 * time.Millisecond))
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := eng.wait(ch, 0)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out after 20ms") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > EvalTimeout {
		t.Error("custom timeout was not used")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	eng := NewEngine()
	eng.generation = 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{script: &Script{}}

	_, _, err := eng.wait(ch, 1)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}

	ch <- evalResult{script: &Script{}}
	if s, _, err := eng.wait(ch, 2); err != nil || s == nil {
		t.Errorf("current generation: script %v, err %v", s, err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: bad thing", 3, "bad thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
