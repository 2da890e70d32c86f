package job

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/chazu/swarf/pkg/plan"
	"github.com/deadsy/sdfx/sdf"
)

// Severity indicates whether a finding blocks the run or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks the run
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one validation result.
type Finding struct {
	Field    string
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	if f.Field == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Field, f.Message)
}

// Result separates blocking errors from warnings.
type Result struct {
	Errors   []Finding
	Warnings []Finding
}

// OK reports whether there are no errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the errors, or returns nil.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, f := range r.Errors {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Result) add(f Finding) {
	if f.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, f)
		return
	}
	r.Errors = append(r.Errors, f)
}

func errorf(field, format string, args ...any) Finding {
	return Finding{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(field, format string, args ...any) Finding {
	return Finding{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// Validate runs the structural checks, which need nothing but the job.
func Validate(j Job) Result {
	var r Result
	for _, f := range validateStructure(j) {
		r.add(f)
	}
	return r
}

// ValidateAll runs every tier: structural checks, checks against the
// geometry's bounds, and machine advisories.
func ValidateAll(j Job, bounds sdf.Box3) Result {
	r := Validate(j)
	for _, f := range validateGeometry(j, bounds) {
		r.add(f)
	}
	for _, f := range validateMachine(j) {
		r.add(f)
	}
	return r
}

// validateStructure checks the job's own fields, including everything the
// planner would reject.
func validateStructure(j Job) []Finding {
	var fs []Finding
	switch {
	case j.Input == "" && j.Model == nil:
		fs = append(fs, errorf("input", "job has neither an input file nor a model"))
	case j.Input != "" && j.Model != nil:
		fs = append(fs, errorf("input", "job has both an input file and a model"))
	}
	if !(j.LayerHeight > 0) {
		fs = append(fs, errorf("layer-height", "must be positive, got %g", j.LayerHeight))
	}
	if j.FirstLayer < 0 || math.IsNaN(j.FirstLayer) {
		fs = append(fs, errorf("first-layer", "must not be negative, got %g", j.FirstLayer))
	}
	if !(j.Section >= 0 && j.Section <= 1) {
		fs = append(fs, errorf("section", "must be between 0 and 1, got %g", j.Section))
	}
	if j.Epsilon < 0 || math.IsNaN(j.Epsilon) {
		fs = append(fs, errorf("epsilon", "must not be negative, got %g", j.Epsilon))
	}
	if j.Workers < 0 {
		fs = append(fs, errorf("workers", "must not be negative, got %d", j.Workers))
	}
	if j.Precision < 0 || j.Precision > 9 {
		fs = append(fs, errorf("precision", "must be between 0 and 9, got %d", j.Precision))
	}
	if _, err := plan.New(j.Tool, j.Plan, log.New(io.Discard, "", 0)); err != nil {
		var pe *plan.PlanningError
		if errors.As(err, &pe) {
			fs = append(fs, errorf(pe.Field, "%s", pe.Reason))
		} else {
			fs = append(fs, errorf("tool", "%v", err))
		}
	}
	return fs
}

// validateGeometry compares the job with the extent of its geometry.
func validateGeometry(j Job, b sdf.Box3) []Finding {
	var fs []Finding
	size := b.Size()
	if size.X <= 0 || size.Y <= 0 {
		fs = append(fs, errorf("input", "geometry has no XY extent (%g x %g)", size.X, size.Y))
		return fs
	}
	if j.Plan.Strategy == plan.Contour && j.LayerHeight > 0 && j.FirstLayer > size.Z {
		fs = append(fs, warnf("first-layer", "%g is above the model's height %g, no layer will be cut", j.FirstLayer, size.Z))
	}
	if j.Plan.Strategy == plan.Contour && j.LayerHeight > size.Z && size.Z > 0 {
		fs = append(fs, warnf("layer-height", "%g exceeds the model's height %g", j.LayerHeight, size.Z))
	}
	if d := j.Tool.Diameter; d > math.Min(size.X, size.Y) && j.Plan.Compensation == plan.CompInside {
		fs = append(fs, warnf("diameter", "%g mm cutter is wider than the part (%g x %g), inside offsets will collapse", d, size.X, size.Y))
	}
	if j.Plan.Strategy == plan.Pocket && size.Z > 0 && j.Tool.TotalDepth > size.Z {
		fs = append(fs, warnf("total-depth", "%g cuts deeper than the model's height %g", j.Tool.TotalDepth, size.Z))
	}
	return fs
}

// validateMachine flags settings that are legal but unusual.
func validateMachine(j Job) []Finding {
	var fs []Finding
	t := j.Tool
	if t.Plunge > t.Feed && t.Feed > 0 {
		fs = append(fs, warnf("plunge", "plunge feed %g is faster than the cutting feed %g", t.Plunge, t.Feed))
	}
	if t.Diameter > 0 && t.DepthPerPass > t.Diameter {
		fs = append(fs, warnf("depth-per-pass", "%g is deeper than the cutter diameter %g", t.DepthPerPass, t.Diameter))
	}
	if j.Plan.Stepover > 0 && t.Diameter > 0 && j.Plan.Stepover > t.Diameter {
		fs = append(fs, warnf("stepover", "%g is wider than the cutter, material will be left between rings", j.Plan.Stepover))
	}
	if j.Plan.Stepover > 0 && j.Plan.Strategy != plan.Pocket {
		fs = append(fs, warnf("stepover", "only applies to the pocket strategy"))
	}
	return fs
}
