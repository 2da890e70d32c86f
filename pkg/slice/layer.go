package slice

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/swarf/pkg/mesh"
	"golang.org/x/sync/errgroup"
)

// heightSlack absorbs floating-point error when deciding whether the last
// height still lies within the mesh.
const heightSlack = 1e-9

// Layer is the set of segments produced at one Z height. A layer with no
// segments is valid and kept in the stack.
type Layer struct {
	Index    int
	Z        float64
	Segments []Segment
}

// IsEmpty reports whether the layer has no segments.
func (l *Layer) IsEmpty() bool {
	return len(l.Segments) == 0
}

// Stack is the ordered result of slicing a mesh at several heights.
type Stack struct {
	Layers []Layer

	// Degenerate counts triangles skipped because they have (near) zero
	// area. Each is a geometry warning, not a failure.
	Degenerate int
}

// SegmentCounts returns the number of segments in each layer.
func (s *Stack) SegmentCounts() []int {
	counts := make([]int, len(s.Layers))
	for i := range s.Layers {
		counts[i] = len(s.Layers[i].Segments)
	}
	return counts
}

// MaxLayers bounds the number of planes Heights will produce.
const MaxLayers = 1000000

// Heights returns minZ+offset, minZ+offset+layerHeight, ... up to and
// including the last value not above maxZ. Each height is computed from its
// index so error does not accumulate across layers. An offset of
// layerHeight/2 samples the middle of each layer and keeps the first plane
// off the mesh's bottom face.
func Heights(minZ, maxZ, layerHeight, offset float64) ([]float64, error) {
	if !(layerHeight > 0) || math.IsInf(layerHeight, 0) {
		return nil, fmt.Errorf("slice: layer height must be positive, got %g", layerHeight)
	}
	if offset < 0 {
		return nil, fmt.Errorf("slice: first layer offset must not be negative, got %g", offset)
	}
	if maxZ < minZ {
		return nil, fmt.Errorf("slice: empty Z range %g..%g", minZ, maxZ)
	}
	start := minZ + offset
	if start > maxZ+heightSlack {
		return []float64{}, nil
	}
	count := math.Floor((maxZ-start)/layerHeight+heightSlack) + 1
	if math.IsNaN(count) || count > MaxLayers {
		return nil, fmt.Errorf("slice: layer height %g over %g..%g gives more than %d layers", layerHeight, minZ, maxZ, MaxLayers)
	}
	zs := make([]float64, int(count))
	for i := range zs {
		zs[i] = start + float64(i)*layerHeight
	}
	return zs, nil
}

// Options controls how a stack is computed.
type Options struct {
	// Workers is the number of layers sliced concurrently. Values below 2
	// slice sequentially.
	Workers int
}

// Slice cuts m at each height in zs and returns one layer per height in the
// same order. Within a layer, segments follow triangle order, so the result
// is deterministic whatever the worker count. The context is checked between
// layers.
func Slice(ctx context.Context, m *mesh.Mesh, zs []float64, opts Options) (*Stack, error) {
	tris := make([]mesh.Triangle, 0, len(m.Triangles))
	degenerate := 0
	for _, t := range m.Triangles {
		if t.Degenerate() {
			degenerate++
			continue
		}
		tris = append(tris, t)
	}

	st := &Stack{Layers: make([]Layer, len(zs)), Degenerate: degenerate}

	if opts.Workers < 2 {
		for i, z := range zs {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("slice: layer %d: %w", i, err)
			}
			st.Layers[i] = sliceLayer(tris, i, z)
		}
		return st, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, z := range zs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("slice: layer %d: %w", i, err)
			}
			st.Layers[i] = sliceLayer(tris, i, z)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

// SliceAt cuts m at a single height.
func SliceAt(m *mesh.Mesh, z float64) Layer {
	l := Layer{Z: z}
	for _, t := range m.Triangles {
		if t.Degenerate() {
			continue
		}
		if seg, ok := Intersect(t, z); ok {
			l.Segments = append(l.Segments, seg)
		}
	}
	return l
}

func sliceLayer(tris []mesh.Triangle, index int, z float64) Layer {
	l := Layer{Index: index, Z: z}
	for _, t := range tris {
		lo, hi := t.ZSpan()
		if z <= lo || z >= hi {
			continue
		}
		if seg, ok := Intersect(t, z); ok {
			l.Segments = append(l.Segments, seg)
		}
	}
	return l
}
