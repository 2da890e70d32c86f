// Package mesh holds the in-memory triangle mesh that the slicing pipeline
// consumes, together with the STL loader and writers.
//
// A Mesh is immutable once loaded: slicers read it concurrently and never
// modify it.
package mesh

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DegenerateArea is the area below which a triangle is treated as degenerate.
const DegenerateArea = 1e-12

// Triangle is one facet of a surface mesh. Normal is whatever the source file
// carried and is not trusted by the slicer.
type Triangle struct {
	Normal     v3.Vec
	V0, V1, V2 v3.Vec
}

// Vertices returns the three vertices in winding order.
func (t Triangle) Vertices() [3]v3.Vec {
	return [3]v3.Vec{t.V0, t.V1, t.V2}
}

// Area returns the surface area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * t.V1.Sub(t.V0).Cross(t.V2.Sub(t.V0)).Length()
}

// Degenerate reports whether the triangle has (near) zero area, which covers
// duplicate and collinear vertices.
func (t Triangle) Degenerate() bool {
	a := t.Area()
	return a < DegenerateArea || math.IsNaN(a)
}

// ZSpan returns the lowest and highest Z of the triangle's vertices.
func (t Triangle) ZSpan() (lo, hi float64) {
	lo = math.Min(t.V0.Z, math.Min(t.V1.Z, t.V2.Z))
	hi = math.Max(t.V0.Z, math.Max(t.V1.Z, t.V2.Z))
	return lo, hi
}

// FaceNormal computes the unit normal from the winding order. It returns the
// zero vector for degenerate triangles.
func (t Triangle) FaceNormal() v3.Vec {
	n := t.V1.Sub(t.V0).Cross(t.V2.Sub(t.V0))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Mesh is an ordered sequence of triangles.
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Bounds scans every vertex and returns the axis-aligned bounding box.
// An empty mesh has a zero box.
func (m *Mesh) Bounds() sdf.Box3 {
	if len(m.Triangles) == 0 {
		return sdf.Box3{}
	}
	lo := m.Triangles[0].V0
	hi := lo
	for _, t := range m.Triangles {
		for _, v := range t.Vertices() {
			lo = minVec(lo, v)
			hi = maxVec(hi, v)
		}
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// DegenerateCount returns how many triangles are degenerate.
func (m *Mesh) DegenerateCount() int {
	n := 0
	for _, t := range m.Triangles {
		if t.Degenerate() {
			n++
		}
	}
	return n
}

// FromSDF converts sdfx render output into a Mesh. Normals are recomputed
// from the winding order.
func FromSDF(name string, tris []*sdf.Triangle3) *Mesh {
	m := &Mesh{Name: name, Triangles: make([]Triangle, 0, len(tris))}
	for _, tri := range tris {
		t := Triangle{V0: tri[0], V1: tri[1], V2: tri[2]}
		t.Normal = t.FaceNormal()
		m.Triangles = append(m.Triangles, t)
	}
	return m
}

// ToSDF converts the mesh into the triangle form used by sdfx render.
func (m *Mesh) ToSDF() []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, len(m.Triangles))
	for i, t := range m.Triangles {
		out[i] = &sdf.Triangle3{t.V0, t.V1, t.V2}
	}
	return out
}

func minVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
