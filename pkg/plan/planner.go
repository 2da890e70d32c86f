package plan

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/chazu/swarf/pkg/contour"
	"github.com/chazu/swarf/pkg/tool"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// maxRings bounds the concentric clearing rings generated for one island.
const maxRings = 10000

// Strategy selects how depth is handled.
type Strategy int

const (
	// Contour cuts every layer once at the layer's own Z.
	Contour Strategy = iota
	// Pocket cuts one contour set repeatedly, stepping down by the tool's
	// depth per pass until the total depth is reached.
	Pocket
)

func (s Strategy) String() string {
	switch s {
	case Contour:
		return "contour"
	case Pocket:
		return "pocket"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses "contour" or "pocket".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "contour", "layers", "slice":
		return Contour, nil
	case "pocket":
		return Pocket, nil
	}
	return 0, fmt.Errorf("plan: unknown strategy %q (want contour or pocket)", s)
}

// Compensation selects which side of a contour the tool runs on.
type Compensation int

const (
	// CompNone runs the tool centre on the contour.
	CompNone Compensation = iota
	// CompInside offsets inward by the cutting radius (pocketing).
	CompInside
	// CompOutside offsets outward by the cutting radius (cutting a part out).
	CompOutside
)

func (c Compensation) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompInside:
		return "inside"
	case CompOutside:
		return "outside"
	}
	return fmt.Sprintf("Compensation(%d)", int(c))
}

// ParseCompensation parses "none", "inside" or "outside".
func ParseCompensation(s string) (Compensation, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompNone, nil
	case "inside", "in", "pocket":
		return CompInside, nil
	case "outside", "out":
		return CompOutside, nil
	}
	return 0, fmt.Errorf("plan: unknown compensation %q (want none, inside or outside)", s)
}

// Order selects how paths within one layer or pass are sequenced.
type Order int

const (
	// OrderAssembly keeps the order the paths were assembled in.
	OrderAssembly Order = iota
	// OrderNearest greedily picks the path whose start is closest to the
	// current position.
	OrderNearest
)

func (o Order) String() string {
	if o == OrderNearest {
		return "nearest"
	}
	return "assembly"
}

// ParseOrder parses "assembly" or "nearest".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "assembly", "":
		return OrderAssembly, nil
	case "nearest":
		return OrderNearest, nil
	}
	return 0, fmt.Errorf("plan: unknown order %q (want assembly or nearest)", s)
}

// Options configures a Planner.
type Options struct {
	Strategy     Strategy
	Compensation Compensation
	Order        Order

	// Stepover adds concentric inward rings this far apart until the island
	// is cleared. Pocket strategy only; zero cuts the boundary alone.
	Stepover float64

	// ZShift is added to every layer Z in the Contour strategy.
	ZShift float64

	// Surface is the stock top in program Z for the Contour strategy.
	// Traverses sit SafeZ above it and cut depth is measured down from it.
	Surface float64

	// OffsetLines applies compensation to open paths too, with round caps.
	OffsetLines bool

	// ArcTolerance is passed to the offsetter; zero uses its default.
	ArcTolerance float64

	// Annotate emits a comment before every layer or pass.
	Annotate bool
}

// LayerPaths is the contour set of one layer.
type LayerPaths struct {
	Index int
	Z     float64
	Paths []contour.Path
}

// Stats summarizes a planned program.
type Stats struct {
	Layers       int // layers seen, including empty ones
	Passes       int // depth passes (Pocket)
	PathsCut     int
	EmptyOffsets int // islands whose offset collapsed and were skipped
}

// Planner produces motion programs for one tool.
type Planner struct {
	tool   tool.Tool
	opts   Options
	logger *log.Logger
}

// New validates the tool and options and returns a Planner. Invalid input
// yields a *PlanningError.
func New(t tool.Tool, opts Options, logger *log.Logger) (*Planner, error) {
	if err := validate(t, opts); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{tool: t, opts: opts, logger: logger}, nil
}

func validate(t tool.Tool, o Options) error {
	if !(t.DepthPerPass > 0) {
		return invalid("depth-per-pass", "must be positive, got %g", t.DepthPerPass)
	}
	if t.TotalDepth < 0 || math.IsNaN(t.TotalDepth) {
		return invalid("total-depth", "must not be negative, got %g", t.TotalDepth)
	}
	if !(t.Feed > 0) {
		return invalid("feed", "must be positive, got %g", t.Feed)
	}
	if !(t.Plunge > 0) {
		return invalid("plunge", "must be positive, got %g", t.Plunge)
	}
	switch t.Kind {
	case tool.FlatEnd:
	case tool.TSlot:
		if t.HeadDiameter < 0 || (t.HeadDiameter > 0 && t.HeadDiameter < t.Diameter) {
			return invalid("head-diameter", "%g is narrower than the shaft %g", t.HeadDiameter, t.Diameter)
		}
	case tool.VBit:
		if !(t.Angle > 0 && t.Angle < 180) {
			return invalid("angle", "must be between 0 and 180 degrees, got %g", t.Angle)
		}
	default:
		return invalid("kind", "unknown tool kind %v", t.Kind)
	}
	if o.Compensation != CompNone && !(t.Diameter > 0) {
		return invalid("diameter", "must be positive for %s compensation, got %g", o.Compensation, t.Diameter)
	}
	if o.Stepover < 0 {
		return invalid("stepover", "must not be negative, got %g", o.Stepover)
	}
	switch o.Strategy {
	case Contour:
	case Pocket:
		if !(t.SafeZ > 0) {
			return invalid("safe-z", "must be above the stock surface, got %g", t.SafeZ)
		}
	default:
		return invalid("strategy", "unknown strategy %v", o.Strategy)
	}
	return nil
}

// Plan builds the motion program. Contour cuts each layer at its Z in
// ascending order; Pocket cuts the paths of all given layers at every pass
// depth. Layers or passes without paths emit nothing.
func (pl *Planner) Plan(layers []LayerPaths) (*Program, Stats, error) {
	layers = append([]LayerPaths(nil), layers...)
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].Z < layers[j].Z })

	if pl.opts.Strategy == Contour {
		for _, l := range layers {
			if len(l.Paths) == 0 {
				continue
			}
			if z := l.Z + pl.opts.ZShift; z >= pl.traverse() {
				return nil, Stats{}, invalid("safe-z", "%g is not above layer %d at z=%g", pl.traverse(), l.Index, z)
			}
		}
	}

	prog := &Program{}
	st := Stats{Layers: len(layers)}
	pl.preamble(prog)

	c := &cutter{pl: pl, prog: prog, stats: &st, cache: make(map[float64]compensated)}
	switch pl.opts.Strategy {
	case Pocket:
		var paths []contour.Path
		for _, l := range layers {
			paths = append(paths, l.Paths...)
		}
		n := pl.tool.Passes()
		for p := 1; p <= n; p++ {
			z := pl.tool.PassDepth(p)
			st.Passes++
			if pl.opts.Annotate {
				prog.comment("pass %d z=%s", p, trim(z))
			}
			c.cut(paths, z, -z)
		}
	default:
		for _, l := range layers {
			if len(l.Paths) == 0 {
				continue
			}
			z := l.Z + pl.opts.ZShift
			if pl.opts.Annotate {
				prog.comment("layer %d z=%s", l.Index, trim(z))
			}
			c.cache = make(map[float64]compensated)
			c.cut(l.Paths, z, math.Max(0, pl.opts.Surface-z))
		}
	}

	prog.emit(Move{Op: OpEnd})
	return prog, st, nil
}

func (pl *Planner) preamble(prog *Program) {
	prog.emit(Move{Op: OpUnits})
	prog.emit(Move{Op: OpAbsolute})
	if pl.tool.Number > 0 {
		prog.emit(Move{Op: OpToolChange, Tool: pl.tool.Number})
	}
	prog.rapidZ(pl.traverse())
}

// traverse is the absolute Z of rapid moves between paths.
func (pl *Planner) traverse() float64 {
	if pl.opts.Strategy == Contour {
		return pl.opts.Surface + pl.tool.SafeZ
	}
	return pl.tool.SafeZ
}

// cutter carries the state of one planning run.
type cutter struct {
	pl    *Planner
	prog  *Program
	stats *Stats
	pos   v2.Vec

	// cache holds compensated paths by offset distance for the current
	// contour set.
	cache map[float64]compensated
}

type compensated struct {
	paths []contour.Path
	empty int
}

// cut compensates paths for the tool at the given depth below the surface
// and emits them at z.
func (c *cutter) cut(paths []contour.Path, z, depth float64) {
	rings := c.toolpaths(paths, depth, z)
	if c.pl.opts.Order == OrderNearest {
		rings = orderNearest(rings, c.pos)
	}
	for _, r := range rings {
		if r.Len() < 2 {
			continue
		}
		c.path(r, z)
		c.stats.PathsCut++
		c.pos = r.End()
	}
}

// toolpaths applies compensation and clearing rings. Islands whose offset
// collapses are skipped and counted.
func (c *cutter) toolpaths(paths []contour.Path, depth, z float64) []contour.Path {
	pl := c.pl
	var delta float64
	switch pl.opts.Compensation {
	case CompInside:
		delta = -pl.tool.CuttingRadius(depth)
	case CompOutside:
		delta = pl.tool.CuttingRadius(depth)
	}
	stepover := 0.0
	if pl.opts.Strategy == Pocket {
		stepover = pl.opts.Stepover
	}
	if delta == 0 && stepover == 0 {
		return paths
	}
	if cached, ok := c.cache[delta]; ok {
		c.stats.EmptyOffsets += cached.empty
		return cached.paths
	}

	offOpts := contour.OffsetOptions{ArcTolerance: pl.opts.ArcTolerance}
	var out []contour.Path
	empty := 0
	for gi, g := range contour.Group(paths) {
		if !g[0].Closed || g[0].Len() < 4 {
			if pl.opts.OffsetLines && delta != 0 {
				out = append(out, contour.Offset(g, delta, contour.OffsetOptions{
					OpenLines:    true,
					ArcTolerance: pl.opts.ArcTolerance,
				})...)
				continue
			}
			out = append(out, g...)
			continue
		}
		g = contour.Normalize(g)
		rings := contour.Offset(g, delta, offOpts)
		if len(rings) == 0 {
			empty++
			pl.logger.Printf("plan: offset %g collapsed island %d at z=%g, skipping", delta, gi, z)
			continue
		}
		out = append(out, rings...)
		for k := 1; stepover > 0 && k <= maxRings; k++ {
			inner := contour.Offset(g, delta-float64(k)*stepover, offOpts)
			if len(inner) == 0 {
				break
			}
			out = append(out, inner...)
		}
	}
	c.stats.EmptyOffsets += empty
	c.cache[delta] = compensated{paths: out, empty: empty}
	return out
}

// path emits rapid-to-start, plunge, cut and retract for one path.
func (c *cutter) path(p contour.Path, z float64) {
	t := c.pl.tool
	s := p.Start()
	c.prog.rapidXYZ(s.X, s.Y, c.pl.traverse())
	c.prog.linearZ(z, t.PlungeFeed())
	for i, pt := range p.Points[1:] {
		feed := 0.0
		if i == 0 {
			feed = t.Feed
		}
		c.prog.linearXY(pt.X, pt.Y, feed)
	}
	c.prog.rapidZ(c.pl.traverse())
}

// orderNearest sequences paths greedily by the distance from the current
// position to each path's start. Ties go to the earlier path.
func orderNearest(paths []contour.Path, from v2.Vec) []contour.Path {
	used := make([]bool, len(paths))
	out := make([]contour.Path, 0, len(paths))
	for len(out) < len(paths) {
		best, bestDist := -1, math.Inf(1)
		for i, p := range paths {
			if used[i] || p.Len() == 0 {
				continue
			}
			if d := p.Start().Sub(from).Length(); d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		out = append(out, paths[best])
		from = paths[best].End()
	}
	return out
}

func trim(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
