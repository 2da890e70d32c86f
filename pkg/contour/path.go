// Package contour turns the unordered segments of a slice layer into
// polylines and grows or shrinks closed polylines by a tool radius.
//
// Paths are planar; the layer they belong to carries the Z height.
package contour

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Path is an ordered polyline. A closed path repeats its first point as its
// last point.
type Path struct {
	Points []v2.Vec
	Closed bool
}

// Len returns the number of points.
func (p Path) Len() int {
	return len(p.Points)
}

// Start returns the first point.
func (p Path) Start() v2.Vec {
	return p.Points[0]
}

// End returns the last point.
func (p Path) End() v2.Vec {
	return p.Points[len(p.Points)-1]
}

// Length returns the polyline length.
func (p Path) Length() float64 {
	var l float64
	for i := 1; i < len(p.Points); i++ {
		l += p.Points[i].Sub(p.Points[i-1]).Length()
	}
	return l
}

// ring returns the points of a closed path without the repeated last point.
func (p Path) ring() []v2.Vec {
	if p.Closed && len(p.Points) > 1 {
		return p.Points[:len(p.Points)-1]
	}
	return p.Points
}

// SignedArea returns the shoelace area of the path treated as a polygon.
// Counter-clockwise rings are positive.
func (p Path) SignedArea() float64 {
	pts := p.ring()
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// Reverse returns the path with its point order reversed.
func (p Path) Reverse() Path {
	out := Path{Points: make([]v2.Vec, len(p.Points)), Closed: p.Closed}
	for i, pt := range p.Points {
		out.Points[len(p.Points)-1-i] = pt
	}
	return out
}

// Clone returns a deep copy.
func (p Path) Clone() Path {
	return Path{Points: append([]v2.Vec(nil), p.Points...), Closed: p.Closed}
}

// Contains reports whether pt lies inside the closed path using the
// even-odd rule. Open paths contain nothing.
func (p Path) Contains(pt v2.Vec) bool {
	if !p.Closed {
		return false
	}
	pts := p.ring()
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Simplify drops points that lie within tol of the line through their
// neighbours. Closed paths are treated cyclically and may lose their start
// point, in which case the ring restarts at the first kept point.
func Simplify(p Path, tol float64) Path {
	pts := p.ring()
	if len(pts) < 3 {
		return p.Clone()
	}
	keep := make([]bool, len(pts))
	for i := range pts {
		keep[i] = true
	}
	n := len(pts)
	changed := true
	for changed {
		changed = false
		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			if !p.Closed && (i == 0 || i == n-1) {
				continue
			}
			prev, next := neighbour(keep, i, -1, p.Closed), neighbour(keep, i, 1, p.Closed)
			if prev < 0 || next < 0 || prev == next {
				continue
			}
			if lineDistance(pts[i], pts[prev], pts[next]) <= tol {
				keep[i] = false
				changed = true
			}
		}
	}
	out := Path{Closed: p.Closed}
	for i, pt := range pts {
		if keep[i] {
			out.Points = append(out.Points, pt)
		}
	}
	if p.Closed && len(out.Points) > 0 {
		out.Points = append(out.Points, out.Points[0])
	}
	return out
}

// neighbour walks from i in direction dir to the next kept index.
func neighbour(keep []bool, i, dir int, cyclic bool) int {
	n := len(keep)
	for k := 1; k < n; k++ {
		j := i + dir*k
		if cyclic {
			j = ((j % n) + n) % n
		} else if j < 0 || j >= n {
			return -1
		}
		if keep[j] {
			return j
		}
	}
	return -1
}

// lineDistance is the distance from p to the infinite line through a and b.
func lineDistance(p, a, b v2.Vec) float64 {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 {
		return p.Sub(a).Length()
	}
	return math.Abs(d.X*(p.Y-a.Y)-d.Y*(p.X-a.X)) / l
}
