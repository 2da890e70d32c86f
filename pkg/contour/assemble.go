package contour

import (
	"github.com/chazu/swarf/pkg/slice"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/dhconnelly/rtreego"
)

// DefaultEpsilon is the absolute distance (model units) within which two
// segment endpoints are considered the same point.
const DefaultEpsilon = 1e-6

// endpoint is one end of a segment, indexed in the R-tree.
type endpoint struct {
	seg  int
	end  int // 0 = A, 1 = B
	p    v2.Vec
	rect rtreego.Rect
}

func (e *endpoint) Bounds() rtreego.Rect {
	return e.rect
}

// endpointIndex finds unused segment endpoints near a point.
type endpointIndex struct {
	tree *rtreego.Rtree
	ends [][2]*endpoint
	eps  float64
}

func newEndpointIndex(segs [][2]v2.Vec, skip []bool, eps float64) *endpointIndex {
	idx := &endpointIndex{
		tree: rtreego.NewTree(2, 25, 50),
		ends: make([][2]*endpoint, len(segs)),
		eps:  eps,
	}
	for i, s := range segs {
		if skip[i] {
			continue
		}
		for end, p := range s {
			e := &endpoint{seg: i, end: end, p: p, rect: rtreego.Point{p.X, p.Y}.ToRect(eps)}
			idx.ends[i][end] = e
			idx.tree.Insert(e)
		}
	}
	return idx
}

// remove takes both endpoints of segment i out of the index.
func (idx *endpointIndex) remove(i int) {
	for _, e := range idx.ends[i] {
		if e != nil {
			idx.tree.Delete(e)
		}
	}
}

// nearest returns the lowest-numbered unused segment with an endpoint within
// eps of p, and which end matched. Lowest index wins so assembly does not
// depend on tree iteration order.
func (idx *endpointIndex) nearest(p v2.Vec) (seg, end int, ok bool) {
	hits := idx.tree.SearchIntersect(rtreego.Point{p.X, p.Y}.ToRect(idx.eps))
	seg = -1
	for _, h := range hits {
		e := h.(*endpoint)
		if e.p.Sub(p).Length() > idx.eps {
			continue
		}
		if seg < 0 || e.seg < seg || (e.seg == seg && e.end < end) {
			seg, end = e.seg, e.end
		}
	}
	return seg, end, seg >= 0
}

// Assemble stitches unordered segments into polylines by greedily joining
// endpoints that lie within eps of each other. Chains are grown forward from
// the lowest unused segment, then backward from its start. A chain whose end
// returns to its start is closed. Segments that join nothing stay as
// two-point open paths; zero-length segments are dropped. Gaps in the mesh
// give fragmented paths, never an error.
func Assemble(segments []slice.Segment, eps float64) []Path {
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	segs := make([][2]v2.Vec, len(segments))
	used := make([]bool, len(segments))
	for i, s := range segments {
		segs[i] = [2]v2.Vec{{X: s.A.X, Y: s.A.Y}, {X: s.B.X, Y: s.B.Y}}
		if segs[i][0].Sub(segs[i][1]).Length() <= eps {
			used[i] = true
		}
	}
	idx := newEndpointIndex(segs, used, eps)

	take := func(i int) {
		used[i] = true
		idx.remove(i)
	}
	near := func(a, b v2.Vec) bool {
		return a.Sub(b).Length() <= eps
	}
	isClosed := func(pts []v2.Vec) bool {
		return len(pts) >= 4 && near(pts[0], pts[len(pts)-1])
	}

	var paths []Path
	for i := range segs {
		if used[i] {
			continue
		}
		take(i)
		pts := []v2.Vec{segs[i][0], segs[i][1]}

		// Forward from the tail.
		for !isClosed(pts) {
			j, end, ok := idx.nearest(pts[len(pts)-1])
			if !ok {
				break
			}
			take(j)
			pts = append(pts, segs[j][1-end])
		}

		// Backward from the head.
		if !isClosed(pts) {
			var head []v2.Vec
			cur := pts[0]
			for {
				j, end, ok := idx.nearest(cur)
				if !ok {
					break
				}
				take(j)
				cur = segs[j][1-end]
				head = append(head, cur)
				if len(head)+len(pts) >= 4 && near(cur, pts[len(pts)-1]) {
					break
				}
			}
			if len(head) > 0 {
				joined := make([]v2.Vec, 0, len(head)+len(pts))
				for k := len(head) - 1; k >= 0; k-- {
					joined = append(joined, head[k])
				}
				pts = append(joined, pts...)
			}
		}

		p := Path{Points: pts}
		if isClosed(pts) {
			p.Closed = true
			pts[len(pts)-1] = pts[0]
		}
		paths = append(paths, p)
	}
	return paths
}

// AssembleLayer stitches a layer's segments and removes collinear points
// within eps.
func AssembleLayer(l slice.Layer, eps float64) []Path {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	raw := Assemble(l.Segments, eps)
	out := make([]Path, len(raw))
	for i, p := range raw {
		out[i] = Simplify(p, eps)
	}
	return out
}
