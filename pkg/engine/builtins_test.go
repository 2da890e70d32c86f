package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/tool"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(tool :kind :vbit)`, `(tool "__kw_kind" "__kw_vbit")`},
		{"multiple keywords", `(box :x 40 :y 20)`, `(box "__kw_x" 40 "__kw_y" 20)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"keyword in raw string preserved", "`raw :keyword`", "`raw :keyword`"},
		{"escaped quote", `"a \" :b"`, `"a \" :b"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(def end-mill :depth-per-pass)`, `(def end_mill "__kw_depth-per-pass")`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative number preserved", `(translate s -5 0 0)`, `(translate s -5 0 0)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
		{"colon before digit untouched", `:1`, `:1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evalOK(t *testing.T, src string) *Script {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(src)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil script")
	}
	return s
}

func evalFails(t *testing.T, src, want string) {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(src)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil script, got %d jobs", len(s.Jobs))
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	if !strings.Contains(evalErrs[0].Message, want) {
		t.Errorf("error %q does not mention %q", evalErrs[0].Message, want)
	}
}

// ---------------------------------------------------------------------------
// tool and job
// ---------------------------------------------------------------------------

func TestToolAndJob(t *testing.T) {
	s := evalOK(t, `
(def cutter (tool :kind :vbit :number 3 :diameter 6 :angle 60
                  :depth-per-pass 0.5 :total-depth 2 :feed 400 :plunge 100 :safe-z 8))
(job :name "sign" :input "sign.stl" :tool cutter
     :strategy :pocket :compensation :outside :order :nearest
     :stepover 1.5 :layer-height 0.2 :first-layer 0.1 :section 0.25
     :z-origin :model :epsilon 0.001 :workers 4 :precision 3
     :arc-tolerance 0.01 :annotate true :offset-lines false
     :output "out/sign.nc")
`)
	if len(s.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(s.Jobs))
	}
	if len(s.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", s.Warnings)
	}
	j := s.Jobs[0]

	wantTool := tool.Tool{
		Kind: tool.VBit, Number: 3, Diameter: 6, Angle: 60,
		DepthPerPass: 0.5, TotalDepth: 2, Feed: 400, Plunge: 100, SafeZ: 8,
	}
	if j.Tool != wantTool {
		t.Errorf("tool = %+v, want %+v", j.Tool, wantTool)
	}
	if j.Name != "sign" || j.Input != "sign.stl" || j.Output != "out/sign.nc" {
		t.Errorf("name/input/output = %q %q %q", j.Name, j.Input, j.Output)
	}
	if j.Plan.Strategy != plan.Pocket || j.Plan.Compensation != plan.CompOutside || j.Plan.Order != plan.OrderNearest {
		t.Errorf("plan options = %+v", j.Plan)
	}
	if j.Plan.Stepover != 1.5 || j.Plan.ArcTolerance != 0.01 || !j.Plan.Annotate || j.Plan.OffsetLines {
		t.Errorf("plan options = %+v", j.Plan)
	}
	if j.LayerHeight != 0.2 || j.FirstLayer != 0.1 || j.Section != 0.25 || j.Epsilon != 0.001 {
		t.Errorf("slicing = %g %g %g %g", j.LayerHeight, j.FirstLayer, j.Section, j.Epsilon)
	}
	if j.ZOrigin != job.ZModel || j.Workers != 4 || j.Precision != 3 {
		t.Errorf("z origin %s, workers %d, precision %d", j.ZOrigin, j.Workers, j.Precision)
	}
}

func TestToolStartsFromDefaults(t *testing.T) {
	s := evalOK(t, `(job :input "a.stl" :tool (tool :diameter 3))`)
	got := s.Jobs[0].Tool
	want := tool.Default()
	want.Diameter = 3
	if got != want {
		t.Errorf("tool = %+v, want %+v", got, want)
	}
}

func TestJobNamesAndWarnings(t *testing.T) {
	s := evalOK(t, `
(job :input "a.stl")
(job :name "b" :input "b.stl" :tool (tool))
(job :name "b" :input "c.stl" :tool (tool))
`)
	names := []string{s.Jobs[0].Name, s.Jobs[1].Name, s.Jobs[2].Name}
	if names[0] != "job1" || names[1] != "b" || names[2] != "b" {
		t.Errorf("names = %v", names)
	}
	if len(s.Warnings) != 2 {
		t.Fatalf("warnings = %v, want missing tool and duplicate name", s.Warnings)
	}
	if s.Warnings[0].Job != "job1" || !strings.Contains(s.Warnings[0].Message, "no :tool") {
		t.Errorf("first warning = %v", s.Warnings[0])
	}
	if s.Warnings[1].Job != "b" || !strings.Contains(s.Warnings[1].Message, "more than once") {
		t.Errorf("second warning = %v", s.Warnings[1])
	}
}

func TestTrailingFlag(t *testing.T) {
	s := evalOK(t, `(job :input "a.stl" :tool (tool) :annotate)`)
	if !s.Jobs[0].Plan.Annotate {
		t.Error("a trailing :annotate should switch annotation on")
	}
}

func TestJobErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown job keyword", `(job :input "a.stl" :speed 3)`, "unknown keyword :speed"},
		{"unknown tool keyword", `(tool :rpm 18000)`, "unknown keyword :rpm"},
		{"bad kind", `(tool :kind :ballnose)`, "ballnose"},
		{"bad strategy", `(job :input "a.stl" :strategy :spiral)`, "spiral"},
		{"bad z origin", `(job :input "a.stl" :z-origin :bottom)`, "bottom"},
		{"no geometry", `(job :name "x" :tool (tool))`, "neither an input file nor a model"},
		{"both sources", `(job :input "a.stl" :model (box 1 1 1) :tool (tool))`, "both"},
		{"invalid tool", `(job :input "a.stl" :tool (tool :feed 0))`, "feed"},
		{"fractional number", `(tool :number 1.5)`, "whole number"},
		{"tool not a tool", `(job :input "a.stl" :tool 6)`, "expected a tool"},
		{"model not a solid", `(job :model 6)`, "expected solid"},
		{"string for number", `(tool :diameter "six")`, "expected number"},
		{"non bool flag", `(job :input "a.stl" :annotate 1)`, "true or false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.src, tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Solids
// ---------------------------------------------------------------------------

func near(a, b v3.Vec) bool {
	const tol = 1e-9
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestModelBuiltins(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		min, max v3.Vec
	}{
		{"box", `(box 40 30 6)`, v3.Vec{}, v3.Vec{X: 40, Y: 30, Z: 6}},
		{"box from vec3", `(box (vec3 4 3 2))`, v3.Vec{}, v3.Vec{X: 4, Y: 3, Z: 2}},
		{"cylinder", `(cylinder 10 5)`, v3.Vec{X: -5, Y: -5}, v3.Vec{X: 5, Y: 5, Z: 10}},
		{"translate", `(translate (box 2 2 2) 10 -5 1)`, v3.Vec{X: 10, Y: -5, Z: 1}, v3.Vec{X: 12, Y: -3, Z: 3}},
		{"union", `(union (box 2 2 2) (translate (box 2 2 2) 4 0 0))`, v3.Vec{}, v3.Vec{X: 6, Y: 2, Z: 2}},
		{"difference keeps the first", `(difference (box 10 10 2) (cylinder 4 2) (translate (box 1 1 1) 20 0 0))`, v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := evalOK(t, `(job :tool (tool) :model `+tt.model+`)`)
			m := s.Jobs[0].Model
			if m == nil {
				t.Fatal("job has no model")
			}
			b := m.Bounds()
			if !near(b.Min, tt.min) || !near(b.Max, tt.max) {
				t.Errorf("bounds = %v..%v, want %v..%v", b.Min, b.Max, tt.min, tt.max)
			}
		})
	}
}

func TestModelFromVariables(t *testing.T) {
	s := evalOK(t, `
(def thickness 6)
(def plate (box 40 40 thickness))
(def hole (translate (cylinder thickness 3) 20 20 0))
(job :name "plate" :tool (tool) :model (difference plate hole))
`)
	b := s.Jobs[0].Model.Bounds()
	if b.Max.Z != 6 {
		t.Errorf("model top = %g, want 6", b.Max.Z)
	}
}

func TestRotateQuarterTurn(t *testing.T) {
	s := evalOK(t, `(job :tool (tool) :model (rotate (box 4 2 1) (vec3 0 0 90)))`)
	b := s.Jobs[0].Model.Bounds()
	size := b.Size()
	if math.Abs(size.X-2) > 1e-9 || math.Abs(size.Y-4) > 1e-9 {
		t.Errorf("rotated size = %v, want 2 x 4", size)
	}
}

func TestSolidErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"box non-positive", `(box 0 1 1)`, "box"},
		{"box arity", `(box 1 2)`, "x y z"},
		{"cylinder arity", `(cylinder 1)`, "cylinder requires"},
		{"union arity", `(union (box 1 1 1))`, "at least 2"},
		{"union non-solid", `(union (box 1 1 1) 3)`, "argument 2"},
		{"translate arity", `(translate (box 1 1 1))`, "requires a solid"},
		{"translate non-solid", `(translate 1 2 3 4)`, "expected solid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.src, tt.want)
		})
	}
}
