package preview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/swarf/pkg/contour"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/tool"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/plot/plotter"
)

func square(x, y, side float64) contour.Path {
	return contour.Path{Closed: true, Points: []v2.Vec{
		{X: x, Y: y}, {X: x + side, Y: y}, {X: x + side, Y: y + side}, {X: x, Y: y + side}, {X: x, Y: y},
	}}
}

func program(t *testing.T) *plan.Program {
	t.Helper()
	tl := tool.Default()
	tl.DepthPerPass = 2
	tl.TotalDepth = 4
	pl, err := plan.New(tl, plan.Options{Strategy: plan.Pocket}, nil)
	if err != nil {
		t.Fatalf("plan.New: %v", err)
	}
	prog, _, err := pl.Plan([]plan.LayerPaths{{Paths: []contour.Path{square(0, 0, 2), square(5, 5, 1)}}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return prog
}

func TestSheetsSplitByDepth(t *testing.T) {
	sheets := Sheets(program(t))
	if len(sheets) != 2 {
		t.Fatalf("got %d sheets, want 2", len(sheets))
	}
	for i, want := range []float64{-2, -4} {
		s := sheets[i]
		if s.Index != i || s.Z != want {
			t.Errorf("sheet %d: index %d z %g, want z %g", i, s.Index, s.Z, want)
		}
		if len(s.Cuts) != 2 {
			t.Errorf("sheet %d: %d cuts, want 2", i, len(s.Cuts))
		}
	}

	wantCut := plotter.XYs{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0}}
	if diff := cmp.Diff(wantCut, sheets[0].Cuts[0]); diff != "" {
		t.Errorf("first cut (-want +got):\n%s", diff)
	}
	// The traverse from the first square to the second.
	wantRapid := plotter.XYs{{X: 0, Y: 0}, {X: 5, Y: 5}}
	if len(sheets[0].Rapids) != 1 {
		t.Fatalf("sheet 0 rapids = %v", sheets[0].Rapids)
	}
	if diff := cmp.Diff(wantRapid, sheets[0].Rapids[0]); diff != "" {
		t.Errorf("rapid (-want +got):\n%s", diff)
	}
}

func TestSheetsEmptyProgram(t *testing.T) {
	p := &plan.Program{Moves: []plan.Move{{Op: plan.OpUnits}, {Op: plan.OpEnd}}}
	if got := Sheets(p); len(got) != 0 {
		t.Errorf("got %d sheets, want none", len(got))
	}
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{"png", ".svg"} {
		files, err := WriteDir(program(t), dir, "part", format)
		if err != nil {
			t.Fatalf("WriteDir(%s): %v", format, err)
		}
		if len(files) != 2 {
			t.Fatalf("wrote %d files, want 2", len(files))
		}
		if filepath.Base(files[1]) != "part_001."+format[len(format)-3:] {
			t.Errorf("second file = %s", files[1])
		}
		for _, f := range files {
			info, err := os.Stat(f)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() == 0 {
				t.Errorf("%s is empty", f)
			}
		}
	}
}
