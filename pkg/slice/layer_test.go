package slice

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/swarf/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestHeights(t *testing.T) {
	tests := []struct {
		name       string
		minZ, maxZ float64
		h, offset  float64
		want       []float64
	}{
		{"exact multiple", 0, 3, 1, 0, []float64{0, 1, 2, 3}},
		{"partial final step", 0, 2.5, 1, 0, []float64{0, 1, 2}},
		{"mid-layer sampling", 0, 1, 1, 0.5, []float64{0.5}},
		{"negative range", -2, 0, 0.5, 0.25, []float64{-1.75, -1.25, -0.75, -0.25}},
		{"offset beyond range", 0, 0.2, 1, 0.5, []float64{}},
		{"flat mesh", 1, 1, 0.3, 0, []float64{1}},
		{"no drift over many layers", 0, 1, 0.1, 0, []float64{0, 0.1, 0.2, 0.30000000000000004, 0.4, 0.5, 0.6000000000000001, 0.7000000000000001, 0.8, 0.9, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Heights(tt.minZ, tt.maxZ, tt.h, tt.offset)
			if err != nil {
				t.Fatalf("Heights: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Heights mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeightsErrors(t *testing.T) {
	tests := []struct {
		name               string
		minZ, maxZ, h, off float64
	}{
		{"zero layer height", 0, 1, 0, 0},
		{"negative layer height", 0, 1, -1, 0},
		{"negative offset", 0, 1, 1, -0.1},
		{"inverted range", 2, 1, 1, 0},
		{"vanishing layer height", 0, 10, 1e-300, 0},
		{"too many layers", 0, 1, 1e-7, 0},
		{"infinite range", 0, math.Inf(1), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Heights(tt.minZ, tt.maxZ, tt.h, tt.off); err == nil {
				t.Error("Heights() error = nil, want error")
			}
		})
	}
}

func unitCube() *mesh.Mesh {
	return mesh.Cuboid("cube", v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
}

func TestSliceUnitCubeMidHeight(t *testing.T) {
	m := unitCube()
	bb := m.Bounds()
	zs, err := Heights(bb.Min.Z, bb.Max.Z, 1.0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	st, err := Slice(context.Background(), m, zs, Options{})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(st.Layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(st.Layers))
	}
	l := st.Layers[0]
	if l.Z != 0.5 {
		t.Errorf("layer Z = %v, want 0.5", l.Z)
	}
	// Each of the four side faces is two triangles, and both cross z=0.5.
	if len(l.Segments) != 8 {
		t.Fatalf("got %d segments, want 8", len(l.Segments))
	}
	var perimeter float64
	for _, s := range l.Segments {
		perimeter += s.Length()
	}
	if perimeter < 4-1e-9 || perimeter > 4+1e-9 {
		t.Errorf("total segment length = %v, want 4", perimeter)
	}
}

// Slicing exactly at the cube's faces only touches vertices and in-plane
// edges, so both layers are empty but still present.
func TestSliceKeepsEmptyBoundaryLayers(t *testing.T) {
	m := unitCube()
	zs := []float64{-1, 0, 0.5, 1, 2}
	st, err := Slice(context.Background(), m, zs, Options{})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	want := []int{0, 0, 8, 0, 0}
	if diff := cmp.Diff(want, st.SegmentCounts()); diff != "" {
		t.Errorf("segment counts (-want +got):\n%s", diff)
	}
	for i, l := range st.Layers {
		if l.Index != i || l.Z != zs[i] {
			t.Errorf("layer %d has index %d z %v, want index %d z %v", i, l.Index, l.Z, i, zs[i])
		}
	}
	if !st.Layers[0].IsEmpty() || st.Layers[2].IsEmpty() {
		t.Error("IsEmpty() disagrees with segment counts")
	}
}

// Loading a synthetic binary mesh and slicing inside each triangle's Z-span
// yields one segment per (triangle, layer) pair the triangle spans.
func TestSliceSegmentCountMatchesSpans(t *testing.T) {
	src := &mesh.Mesh{}
	for i := 0; i < 5; i++ {
		base := float64(i)
		src.Triangles = append(src.Triangles, mesh.Triangle{
			V0: v3.Vec{X: base, Y: 0, Z: base},
			V1: v3.Vec{X: base + 1, Y: 0, Z: base},
			V2: v3.Vec{X: base, Y: 1, Z: base + 1 + float64(i%2)},
		})
	}
	var buf bytes.Buffer
	if err := mesh.EncodeBinary(&buf, src); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	bb := m.Bounds()
	zs, err := Heights(bb.Min.Z, bb.Max.Z, 0.25, 0.125)
	if err != nil {
		t.Fatal(err)
	}

	want := 0
	for _, tr := range m.Triangles {
		lo, hi := tr.ZSpan()
		for _, z := range zs {
			if z > lo && z < hi {
				want++
			}
		}
	}

	st, err := Slice(context.Background(), m, zs, Options{})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	got := 0
	for _, c := range st.SegmentCounts() {
		got += c
	}
	if got != want {
		t.Errorf("total segments = %d, want %d", got, want)
	}
	if want == 0 {
		t.Fatal("fixture spans no layers")
	}
}

func TestSliceParallelMatchesSequential(t *testing.T) {
	m := mesh.Cuboid("block", v3.Vec{X: -3, Y: -2, Z: 0}, v3.Vec{X: 3, Y: 2, Z: 7})
	m.Triangles = append(m.Triangles, mesh.Cuboid("post", v3.Vec{X: 5, Z: 1}, v3.Vec{X: 6, Y: 1, Z: 4}).Triangles...)
	zs, err := Heights(0, 7, 0.3, 0.15)
	if err != nil {
		t.Fatal(err)
	}

	seq, err := Slice(context.Background(), m, zs, Options{})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := Slice(context.Background(), m, zs, Options{Workers: 4})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if diff := cmp.Diff(seq, par); diff != "" {
		t.Errorf("parallel result differs (-seq +par):\n%s", diff)
	}
}

func TestSliceCountsDegenerateTriangles(t *testing.T) {
	m := unitCube()
	m.Triangles = append(m.Triangles,
		mesh.Triangle{V0: v3.Vec{Z: 0}, V1: v3.Vec{Z: 0}, V2: v3.Vec{X: 1, Z: 1}},
		mesh.Triangle{V0: v3.Vec{Z: 0}, V1: v3.Vec{X: 1, Z: 1}, V2: v3.Vec{X: 2, Z: 2}},
	)
	st, err := Slice(context.Background(), m, []float64{0.5}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Degenerate != 2 {
		t.Errorf("Degenerate = %d, want 2", st.Degenerate)
	}
	if n := len(st.Layers[0].Segments); n != 8 {
		t.Errorf("got %d segments, want 8", n)
	}
}

func TestSliceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{0, 3} {
		_, err := Slice(ctx, unitCube(), []float64{0.25, 0.5, 0.75}, Options{Workers: workers})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: error = %v, want context.Canceled", workers, err)
		}
	}
}

func TestSliceAt(t *testing.T) {
	l := SliceAt(unitCube(), 0.25)
	if len(l.Segments) != 8 {
		t.Errorf("SliceAt: got %d segments, want 8", len(l.Segments))
	}
}
