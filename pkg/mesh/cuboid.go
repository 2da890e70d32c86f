package mesh

import v3 "github.com/deadsy/sdfx/vec/v3"

// Cuboid returns an axis-aligned box spanning lo..hi as 12 outward-facing
// triangles. It is the exact counterpart of a marching-cubes box and is used
// for stock blanks and fixtures.
func Cuboid(name string, lo, hi v3.Vec) *Mesh {
	// Corner i has bit 0 -> X, bit 1 -> Y, bit 2 -> Z.
	var c [8]v3.Vec
	for i := range c {
		c[i] = lo
		if i&1 != 0 {
			c[i].X = hi.X
		}
		if i&2 != 0 {
			c[i].Y = hi.Y
		}
		if i&4 != 0 {
			c[i].Z = hi.Z
		}
	}
	faces := [6][4]int{
		{0, 2, 3, 1}, // bottom
		{4, 5, 7, 6}, // top
		{0, 1, 5, 4}, // front
		{2, 6, 7, 3}, // back
		{0, 4, 6, 2}, // left
		{1, 3, 7, 5}, // right
	}
	m := &Mesh{Name: name, Triangles: make([]Triangle, 0, 12)}
	for _, f := range faces {
		for _, tri := range [2][3]int{{f[0], f[1], f[2]}, {f[0], f[2], f[3]}} {
			t := Triangle{V0: c[tri[0]], V1: c[tri[1]], V2: c[tri[2]]}
			t.Normal = t.FaceNormal()
			m.Triangles = append(m.Triangles, t)
		}
	}
	return m
}
