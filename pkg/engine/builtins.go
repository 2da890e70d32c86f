package engine

import (
	"fmt"

	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/tool"
	zygo "github.com/glycerine/zygomys/zygo"
)

// sexpTool carries a cutter definition.
type sexpTool struct {
	t tool.Tool
}

func (s *sexpTool) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(tool %s)", s.t)
}
func (s *sexpTool) Type() *zygo.RegisteredType { return nil }

// sexpJob is what (job ...) returns; the job itself is recorded in the
// script.
type sexpJob struct {
	name string
}

func (s *sexpJob) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(job %q)", s.name)
}
func (s *sexpJob) Type() *zygo.RegisteredType { return nil }

var toolKeys = []string{
	"kind", "number", "diameter", "head-diameter", "angle",
	"depth-per-pass", "total-depth", "feed", "plunge", "safe-z",
}

var jobKeys = []string{
	"name", "input", "model", "tool", "output",
	"strategy", "compensation", "order", "stepover", "offset-lines", "arc-tolerance", "annotate",
	"layer-height", "first-layer", "section", "z-origin", "epsilon", "workers", "precision",
}

// builder collects what a script defines.
type builder struct {
	k      kernel.Kernel
	base   job.Job
	script *Script
	names  map[string]bool
}

// registerBuiltins installs the job script builtins. Source must have been
// through preprocessSource so keywords are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (tool :kind :vbit :diameter 6 :angle 60 :depth-per-pass 1 ...)
	// -----------------------------------------------------------------------
	env.AddFunction("tool", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown(toolKeys...); err != nil {
			return zygo.SexpNull, fmt.Errorf("tool: %w", err)
		}
		t := b.base.Tool
		var kind string
		fields := []struct {
			key string
			dst *float64
		}{
			{"diameter", &t.Diameter},
			{"head-diameter", &t.HeadDiameter},
			{"angle", &t.Angle},
			{"depth-per-pass", &t.DepthPerPass},
			{"total-depth", &t.TotalDepth},
			{"feed", &t.Feed},
			{"plunge", &t.Plunge},
			{"safe-z", &t.SafeZ},
		}
		for _, f := range fields {
			if err := pa.floatKW(f.key, f.dst); err != nil {
				return zygo.SexpNull, fmt.Errorf("tool: %w", err)
			}
		}
		if err := pa.intKW("number", &t.Number); err != nil {
			return zygo.SexpNull, fmt.Errorf("tool: %w", err)
		}
		if err := pa.stringKW("kind", &kind); err != nil {
			return zygo.SexpNull, fmt.Errorf("tool: %w", err)
		}
		if kind != "" {
			k, err := tool.ParseKind(kind)
			if err != nil {
				return zygo.SexpNull, err
			}
			t.Kind = k
		}
		return &sexpTool{t: t}, nil
	})

	// -----------------------------------------------------------------------
	// (job :name "plate" :model solid :tool cutter :strategy :pocket ...)
	// -----------------------------------------------------------------------
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown(jobKeys...); err != nil {
			return zygo.SexpNull, fmt.Errorf("job: %w", err)
		}
		j, err := b.job(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("job %s: %w", j.Name, err)
		}
		b.script.Jobs = append(b.script.Jobs, j)
		return &sexpJob{name: j.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		v, err := toXYZ(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{v: v}, nil
	})

	// -----------------------------------------------------------------------
	// (box 40 40 6) and (cylinder height radius [segments])
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		size, err := toXYZ(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		s, err := b.k.Box(size.X, size.Y, size.Z)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{s: s, desc: fmt.Sprintf("box %g %g %g", size.X, size.Y, size.Z)}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 || len(args) > 3 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires height, radius and optional segments")
		}
		var v [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: argument %d: %w", i+1, err)
			}
			v[i] = f
		}
		s, err := b.k.Cylinder(v[0], v[1], int(v[2]))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{s: s, desc: fmt.Sprintf("cylinder %g %g", v[0], v[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	booleans := map[string]func(a, b kernel.Solid) kernel.Solid{
		"union":        b.k.Union,
		"difference":   b.k.Difference,
		"intersection": b.k.Intersection,
	}
	for op, fn := range booleans {
		env.AddFunction(op, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", op, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument 1: %w", op, err)
			}
			out := acc.s
			for i, a := range args[1:] {
				s, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", op, i+2, err)
				}
				out = fn(out, s.s)
			}
			return &sexpSolid{s: out, desc: fmt.Sprintf("%s of %d", op, len(args))}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (translate solid x y z) and (rotate solid (vec3 0 0 90))
	// -----------------------------------------------------------------------
	transforms := map[string]func(s kernel.Solid, x, y, z float64) kernel.Solid{
		"translate": b.k.Translate,
		"rotate":    b.k.Rotate,
	}
	for op, fn := range transforms {
		env.AddFunction(op, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and an offset", op)
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			v, err := toXYZ(args[1:])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			return &sexpSolid{
				s:    fn(s.s, v.X, v.Y, v.Z),
				desc: fmt.Sprintf("%s %s %g %g %g", op, s.desc, v.X, v.Y, v.Z),
			}, nil
		})
	}
}

// job builds a job from (job ...) arguments over the builder's defaults.
func (b *builder) job(pa kwArgs) (job.Job, error) {
	j := b.base
	j.Name = fmt.Sprintf("job%d", len(b.script.Jobs)+1)
	if err := pa.stringKW("name", &j.Name); err != nil {
		return j, err
	}
	if b.names[j.Name] {
		b.script.Warnings = append(b.script.Warnings, EvalWarning{
			Job:     j.Name,
			Message: "job name used more than once; later outputs overwrite earlier ones",
		})
	}
	b.names[j.Name] = true

	if err := pa.stringKW("input", &j.Input); err != nil {
		return j, err
	}
	if v, ok := pa.kw["model"]; ok {
		s, err := toSolid(v)
		if err != nil {
			return j, fmt.Errorf("model: %w", err)
		}
		j.Model = s.s
	}
	if v, ok := pa.kw["tool"]; ok {
		t, ok := v.(*sexpTool)
		if !ok {
			return j, fmt.Errorf("tool: expected a tool, got %s", v.SexpString(nil))
		}
		j.Tool = t.t
	} else {
		b.script.Warnings = append(b.script.Warnings, EvalWarning{
			Job:     j.Name,
			Message: fmt.Sprintf("no :tool given, using %s", j.Tool),
		})
	}
	if err := pa.stringKW("output", &j.Output); err != nil {
		return j, err
	}

	var strategy, comp, order, origin string
	for key, dst := range map[string]*string{
		"strategy": &strategy, "compensation": &comp, "order": &order, "z-origin": &origin,
	} {
		if err := pa.stringKW(key, dst); err != nil {
			return j, err
		}
	}
	var err error
	if strategy != "" {
		if j.Plan.Strategy, err = plan.ParseStrategy(strategy); err != nil {
			return j, err
		}
	}
	if comp != "" {
		if j.Plan.Compensation, err = plan.ParseCompensation(comp); err != nil {
			return j, err
		}
	}
	if order != "" {
		if j.Plan.Order, err = plan.ParseOrder(order); err != nil {
			return j, err
		}
	}
	if origin != "" {
		if j.ZOrigin, err = job.ParseZOrigin(origin); err != nil {
			return j, err
		}
	}

	for key, dst := range map[string]*float64{
		"stepover":      &j.Plan.Stepover,
		"arc-tolerance": &j.Plan.ArcTolerance,
		"layer-height":  &j.LayerHeight,
		"first-layer":   &j.FirstLayer,
		"section":       &j.Section,
		"epsilon":       &j.Epsilon,
	} {
		if err := pa.floatKW(key, dst); err != nil {
			return j, err
		}
	}
	for key, dst := range map[string]*int{"workers": &j.Workers, "precision": &j.Precision} {
		if err := pa.intKW(key, dst); err != nil {
			return j, err
		}
	}
	for key, dst := range map[string]*bool{"annotate": &j.Plan.Annotate, "offset-lines": &j.Plan.OffsetLines} {
		if err := pa.boolKW(key, dst); err != nil {
			return j, err
		}
	}

	if r := job.Validate(j); !r.OK() {
		return j, r.Err()
	}
	return j, nil
}
