package contour

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// clipperScale converts model units (mm) to Clipper's integer grid: one
// grid step is a nanometre.
const clipperScale = 1e6

// DefaultArcTolerance is the maximum deviation (model units) between a round
// join and the true arc.
const DefaultArcTolerance = 0.001

// OffsetOptions controls Offset.
type OffsetOptions struct {
	// OpenLines offsets open paths as well, with round end caps. Otherwise
	// open paths are returned unchanged.
	OpenLines bool

	// ArcTolerance overrides DefaultArcTolerance when positive.
	ArcTolerance float64
}

// Normalize orients closed paths by nesting depth: outer boundaries (even
// depth) run counter-clockwise and holes (odd depth) clockwise, which is what
// the offsetter expects. Open paths are copied unchanged.
func Normalize(paths []Path) []Path {
	depths := Depths(paths)
	out := make([]Path, len(paths))
	for i, p := range paths {
		out[i] = p.Clone()
		if depths[i] < 0 {
			continue
		}
		ccw := p.SignedArea() > 0
		if (depths[i]%2 == 0) != ccw {
			out[i] = out[i].Reverse()
		}
	}
	return out
}

// Offset grows (delta > 0) or shrinks (delta < 0) closed paths using round
// joins. The result may hold any number of closed paths, including none when
// an inward offset is larger than a polygon's inscribed radius. Open paths are
// passed through after the offset result, or offset by |delta| with round
// caps when opts.OpenLines is set. Input orientation matters: run Normalize
// first when the paths come straight from Assemble.
func Offset(paths []Path, delta float64, opts OffsetOptions) []Path {
	if delta == 0 {
		out := make([]Path, len(paths))
		for i, p := range paths {
			out[i] = p.Clone()
		}
		return out
	}
	arc := opts.ArcTolerance
	if arc <= 0 {
		arc = DefaultArcTolerance
	}

	var closed, open clipper.Paths
	var passthrough []Path
	for _, p := range paths {
		switch {
		case p.Closed && len(p.Points) >= 4:
			closed = append(closed, toClipper(p.ring()))
		case !p.Closed && opts.OpenLines && len(p.Points) >= 2:
			open = append(open, toClipper(p.Points))
		default:
			passthrough = append(passthrough, p.Clone())
		}
	}

	var out []Path
	if len(closed) > 0 {
		co := clipper.NewClipperOffset()
		co.ArcTolerance = arc * clipperScale
		co.AddPaths(closed, clipper.JtRound, clipper.EtClosedPolygon)
		out = append(out, fromClipper(co.Execute(delta*clipperScale))...)
	}
	if len(open) > 0 {
		co := clipper.NewClipperOffset()
		co.ArcTolerance = arc * clipperScale
		co.AddPaths(open, clipper.JtRound, clipper.EtOpenRound)
		out = append(out, fromClipper(co.Execute(math.Abs(delta)*clipperScale))...)
	}
	return append(out, passthrough...)
}

func toClipper(pts []v2.Vec) clipper.Path {
	cp := make(clipper.Path, len(pts))
	for i, p := range pts {
		cp[i] = &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * clipperScale)),
			Y: clipper.CInt(math.Round(p.Y * clipperScale)),
		}
	}
	return cp
}

// fromClipper converts offset output into closed paths, dropping rings with
// fewer than three points.
func fromClipper(cps clipper.Paths) []Path {
	out := make([]Path, 0, len(cps))
	for _, cp := range cps {
		if len(cp) < 3 {
			continue
		}
		p := Path{Closed: true, Points: make([]v2.Vec, 0, len(cp)+1)}
		for _, ip := range cp {
			p.Points = append(p.Points, v2.Vec{
				X: float64(ip.X) / clipperScale,
				Y: float64(ip.Y) / clipperScale,
			})
		}
		p.Points = append(p.Points, p.Points[0])
		out = append(out, p)
	}
	return out
}
