// Package slice cuts a triangle mesh with horizontal planes. Intersect
// handles one triangle against one plane; Slice runs every triangle against
// a sequence of Z heights and returns a stack of layers.
package slice

import (
	"github.com/chazu/swarf/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Segment is where one triangle crosses one horizontal plane. Both endpoints
// carry the plane's Z.
type Segment struct {
	A, B v3.Vec
}

// Length returns the segment's length.
func (s Segment) Length() float64 {
	return s.B.Sub(s.A).Length()
}

// crosses reports whether the edge a-b crosses z strictly. A vertex lying
// exactly on the plane never counts as a crossing.
func crosses(za, zb, z float64) bool {
	return (za < z && zb > z) || (za > z && zb < z)
}

// lerp interpolates the edge a-b at height z. The caller guarantees the edge
// crosses z, so za != zb.
func lerp(a, b v3.Vec, z float64) v3.Vec {
	t := (z - a.Z) / (b.Z - a.Z)
	p := a.Add(b.Sub(a).MulScalar(t))
	p.Z = z
	return p
}

// Intersect returns the segment where t crosses the plane at height z. Edges
// are tested in v0-v1, v1-v2, v2-v0 order and a segment is produced only when
// exactly two of them cross. Triangles touching the plane at a vertex or
// lying in it produce nothing, so meshes with vertices exactly on a slicing
// height can lose segments there.
func Intersect(t mesh.Triangle, z float64) (Segment, bool) {
	edges := [3][2]v3.Vec{{t.V0, t.V1}, {t.V1, t.V2}, {t.V2, t.V0}}

	var pts [3]v3.Vec
	n := 0
	for _, e := range edges {
		if crosses(e[0].Z, e[1].Z, z) {
			pts[n] = lerp(e[0], e[1], z)
			n++
		}
	}
	if n != 2 {
		return Segment{}, false
	}
	return Segment{A: pts[0], B: pts[1]}, true
}
