// Package pipeline runs a job end to end: load or tessellate the geometry,
// slice it, stitch the segments into contours, plan the tool motion and
// format it as G-code.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chazu/swarf/pkg/contour"
	"github.com/chazu/swarf/pkg/gcode"
	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/mesh"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/slice"
	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrNoKernel is returned for a model job on a Runner without a kernel.
var ErrNoKernel = errors.New("pipeline: job has a model but no kernel is configured")

// runNamespace seeds the run ids.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("swarf.run"))

// Result is everything a run produced.
type Result struct {
	RunID string
	Job   job.Job

	Triangles  int
	Degenerate int
	Bounds     sdf.Box3

	// SegmentCounts has one entry per slicing plane. Pocket jobs have a
	// single plane, the section.
	SegmentCounts []int
	Layers        []plan.LayerPaths

	Program *plan.Program
	Stats   plan.Stats
	GCode   []byte

	Warnings []job.Finding
}

// Segments returns the total number of segments over all planes.
func (r *Result) Segments() int {
	return lo.Sum(r.SegmentCounts)
}

// EmptyLayers counts layers that produced no paths.
func (r *Result) EmptyLayers() int {
	return lo.CountBy(r.Layers, func(l plan.LayerPaths) bool { return len(l.Paths) == 0 })
}

// OpenPaths counts paths that did not close, a sign of gaps in the mesh.
func (r *Result) OpenPaths() int {
	return lo.SumBy(r.Layers, func(l plan.LayerPaths) int {
		return lo.CountBy(l.Paths, func(p contour.Path) bool { return !p.Closed })
	})
}

// Runner runs jobs. The zero value logs to log.Default and cannot run
// model jobs.
type Runner struct {
	Kernel kernel.Kernel
	Logger *log.Logger
}

// New returns a Runner. A nil logger uses log.Default.
func New(k kernel.Kernel, logger *log.Logger) *Runner {
	return &Runner{Kernel: k, Logger: logger}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Geometry loads the job's STL input or tessellates its model.
func (r *Runner) Geometry(j job.Job) (*mesh.Mesh, error) {
	switch {
	case j.Input != "" && j.Model != nil:
		return nil, fmt.Errorf("pipeline: job %s has both an input file and a model", j.Name)
	case j.Input != "":
		return mesh.Load(j.Input)
	case j.Model != nil:
		if r.Kernel == nil {
			return nil, ErrNoKernel
		}
		name := j.Name
		if name == "" {
			name = "model"
		}
		m, err := r.Kernel.ToMesh(j.Model, name)
		if err != nil {
			return nil, fmt.Errorf("pipeline: tessellate %s: %w", name, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("pipeline: job %s has no geometry", j.Name)
}

// Run executes j and returns the program text without writing anything.
// Errors are fatal: a *mesh.LoadError, a *plan.PlanningError, a
// validation failure or a cancelled context.
func (r *Runner) Run(ctx context.Context, j job.Job) (*Result, error) {
	logger := r.logger()

	m, err := r.Geometry(j)
	if err != nil {
		return nil, err
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("pipeline: %s: %w", j.Source(), kernel.ErrEmptyMesh)
	}
	bounds := m.Bounds()

	if j.ZOrigin == job.ZTop {
		j.Plan.ZShift = -bounds.Max.Z
	}
	j.Plan.Surface = bounds.Max.Z + j.Plan.ZShift

	res := &Result{
		RunID:     runID(j, m, bounds).String(),
		Job:       j,
		Triangles: m.TriangleCount(),
		Bounds:    bounds,
	}
	logger.Printf("pipeline: run %s: %s, %d triangles, z %g..%g",
		res.RunID, j.Source(), res.Triangles, bounds.Min.Z, bounds.Max.Z)

	planner, err := plan.New(j.Tool, j.Plan, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: job %s: %w", j.Name, err)
	}

	vr := job.ValidateAll(j, bounds)
	if !vr.OK() {
		return nil, fmt.Errorf("pipeline: job %s: %w", j.Name, vr.Err())
	}
	for _, w := range vr.Warnings {
		logger.Printf("pipeline: run %s: %v", res.RunID, w)
	}
	res.Warnings = vr.Warnings

	layers, err := r.layers(ctx, j, m, bounds, res)
	if err != nil {
		return nil, err
	}
	res.Layers = layers

	prog, stats, err := planner.Plan(layers)
	if err != nil {
		return nil, fmt.Errorf("pipeline: job %s: %w", j.Name, err)
	}
	res.Program = prog
	res.Stats = stats

	var buf bytes.Buffer
	if err := gcode.NewWriter(&buf, gcode.Options{Precision: j.Precision}).WriteProgram(prog); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.GCode = buf.Bytes()

	logger.Printf("pipeline: run %s: %d layers (%d empty), %d segments, %d paths cut, %d passes, %d empty offsets, %d degenerate triangles",
		res.RunID, stats.Layers, res.EmptyLayers(), res.Segments(), stats.PathsCut, stats.Passes, stats.EmptyOffsets, res.Degenerate)
	if n := res.OpenPaths(); n > 0 {
		logger.Printf("pipeline: run %s: %d open paths, the mesh may have gaps", res.RunID, n)
	}
	return res, nil
}

// layers slices m and assembles the contours the planner works from.
func (r *Runner) layers(ctx context.Context, j job.Job, m *mesh.Mesh, b sdf.Box3, res *Result) ([]plan.LayerPaths, error) {
	if j.Plan.Strategy == plan.Pocket {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		z := b.Min.Z + j.Section*(b.Max.Z-b.Min.Z)
		l := slice.SliceAt(m, z)
		res.Degenerate = m.DegenerateCount()
		res.SegmentCounts = []int{len(l.Segments)}
		return []plan.LayerPaths{{Index: 0, Z: z, Paths: contour.AssembleLayer(l, j.Epsilon)}}, nil
	}

	zs, err := slice.Heights(b.Min.Z, b.Max.Z, j.LayerHeight, j.FirstLayer)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	stack, err := slice.Slice(ctx, m, zs, slice.Options{Workers: j.Workers})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.Degenerate = stack.Degenerate
	res.SegmentCounts = stack.SegmentCounts()

	return lo.Map(stack.Layers, func(l slice.Layer, _ int) plan.LayerPaths {
		return plan.LayerPaths{Index: l.Index, Z: l.Z, Paths: contour.AssembleLayer(l, j.Epsilon)}
	}), nil
}

// Execute runs j and writes the program to j.OutputPath. Nothing is written
// when the run fails.
func (r *Runner) Execute(ctx context.Context, j job.Job) (*Result, error) {
	res, err := r.Run(ctx, j)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(j.OutputPath(), res.GCode); err != nil {
		return nil, err
	}
	r.logger().Printf("pipeline: run %s: wrote %s", res.RunID, j.OutputPath())
	return res, nil
}

// runID is derived from the job settings and the geometry so a repeated run
// logs the same id.
func runID(j job.Job, m *mesh.Mesh, b sdf.Box3) uuid.UUID {
	key := fmt.Sprintf("%s|%s|%d|%v|%v|%+v|%+v|%g|%g|%g|%s",
		j.Name, j.Source(), m.TriangleCount(), b.Min, b.Max,
		j.Tool, j.Plan, j.LayerHeight, j.FirstLayer, j.Section, j.ZOrigin)
	return uuid.NewSHA1(runNamespace, []byte(key))
}
