// Package job describes one slicing and toolpath run: where the geometry
// comes from, the tool, and how layers are cut.
package job

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/swarf/pkg/contour"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/tool"
)

// ZOrigin selects where Z = 0 lies in the emitted program.
type ZOrigin int

const (
	// ZModel keeps the model's own coordinates. Traverses sit SafeZ above
	// the model's top.
	ZModel ZOrigin = iota
	// ZTop puts Z = 0 on the top of the model, so every cut is below zero.
	ZTop
)

func (o ZOrigin) String() string {
	if o == ZTop {
		return "top"
	}
	return "model"
}

// ParseZOrigin parses "model" or "top". The empty string is model.
func ParseZOrigin(s string) (ZOrigin, error) {
	switch strings.ToLower(s) {
	case "model", "":
		return ZModel, nil
	case "top":
		return ZTop, nil
	}
	return 0, fmt.Errorf("job: unknown z origin %q (want top or model)", s)
}

// Job is a complete description of a run. Exactly one of Input and Model
// supplies the geometry.
type Job struct {
	Name string

	// Input is an STL file.
	Input string
	// Model is a solid built with a geometry kernel.
	Model kernel.Solid

	Tool tool.Tool
	Plan plan.Options

	// LayerHeight is the distance between slicing planes.
	LayerHeight float64
	// FirstLayer is the height of the first plane above the model's
	// lowest point. Half a layer height cuts through the middle of
	// each layer.
	FirstLayer float64
	// Section is where the Pocket strategy takes its outline, as a fraction
	// of the model's height from the bottom.
	Section float64
	ZOrigin ZOrigin

	// Epsilon is the endpoint matching tolerance used when joining
	// segments into paths.
	Epsilon float64
	// Workers bounds parallel layer slicing; 0 or 1 slices sequentially.
	Workers int
	// Precision is the number of fractional digits in the program text.
	Precision int

	// Output is the program file. Empty derives it from Input or Name.
	Output string
}

// New returns a job with the default tool and slicing settings.
func New(name string) Job {
	return Job{
		Name:        name,
		Tool:        tool.Default(),
		LayerHeight: 1,
		Section:     0.5,
		Epsilon:     contour.DefaultEpsilon,
		Workers:     1,
		Precision:   4,
	}
}

// OutputPath returns Output, or the input's base name (or the job name)
// with a .gcode extension.
func (j Job) OutputPath() string {
	if j.Output != "" {
		return j.Output
	}
	if j.Input != "" {
		return strings.TrimSuffix(j.Input, filepath.Ext(j.Input)) + ".gcode"
	}
	name := j.Name
	if name == "" {
		name = "job"
	}
	return name + ".gcode"
}

// Source describes where the geometry comes from, for logs.
func (j Job) Source() string {
	switch {
	case j.Input != "":
		return j.Input
	case j.Model != nil:
		return "model " + j.Name
	}
	return "nothing"
}
