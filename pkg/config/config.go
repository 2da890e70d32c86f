// Package config loads the machine profile: tool, feeds and slicing
// defaults from a config file, SWARF_ environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/swarf/pkg/contour"
	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/kernel/manifold"
	"github.com/chazu/swarf/pkg/kernel/sdfx"
	"github.com/chazu/swarf/pkg/plan"
	"github.com/chazu/swarf/pkg/tool"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SWARF_SAFE_Z.
const EnvPrefix = "SWARF"

// Profile is the flat set of settings a run is configured from. Keys match
// the command line flag names.
type Profile struct {
	Strategy     string  `mapstructure:"strategy"`
	Compensation string  `mapstructure:"compensation"`
	Order        string  `mapstructure:"order"`
	ZOrigin      string  `mapstructure:"z-origin"`
	Annotate     bool    `mapstructure:"annotate"`
	OffsetLines  bool    `mapstructure:"offset-lines"`
	Stepover     float64 `mapstructure:"stepover"`
	ArcTolerance float64 `mapstructure:"arc-tolerance"`

	Tool         string  `mapstructure:"tool"`
	ToolNumber   int     `mapstructure:"tool-number"`
	Diameter     float64 `mapstructure:"diameter"`
	HeadDiameter float64 `mapstructure:"head-diameter"`
	Angle        float64 `mapstructure:"angle"`
	DepthPerPass float64 `mapstructure:"depth-per-pass"`
	TotalDepth   float64 `mapstructure:"total-depth"`
	Feed         float64 `mapstructure:"feed"`
	Plunge       float64 `mapstructure:"plunge"`
	SafeZ        float64 `mapstructure:"safe-z"`

	LayerHeight float64 `mapstructure:"layer-height"`
	FirstLayer  float64 `mapstructure:"first-layer"`
	Section     float64 `mapstructure:"section"`
	Epsilon     float64 `mapstructure:"epsilon"`
	Workers     int     `mapstructure:"workers"`
	Precision   int     `mapstructure:"precision"`
	Cells       int     `mapstructure:"cells"`
	Kernel      string  `mapstructure:"kernel"`
}

// Defaults returns the built-in profile.
func Defaults() Profile {
	j := job.New("")
	t := j.Tool
	return Profile{
		Strategy:     plan.Contour.String(),
		Compensation: plan.CompNone.String(),
		Order:        plan.OrderAssembly.String(),
		ZOrigin:      job.ZModel.String(),
		ArcTolerance: contour.DefaultArcTolerance,
		Tool:         t.Kind.String(),
		ToolNumber:   t.Number,
		Diameter:     t.Diameter,
		DepthPerPass: t.DepthPerPass,
		TotalDepth:   t.TotalDepth,
		Feed:         t.Feed,
		Plunge:       t.Plunge,
		SafeZ:        t.SafeZ,
		LayerHeight:  j.LayerHeight,
		FirstLayer:   j.FirstLayer,
		Section:      j.Section,
		Epsilon:      j.Epsilon,
		Workers:      j.Workers,
		Precision:    j.Precision,
		Cells:        sdfx.DefaultCells,
		Kernel:       "sdfx",
	}
}

// New returns a viper instance seeded with the defaults and reading SWARF_
// environment variables.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	for key, val := range map[string]any{
		"strategy": d.Strategy, "compensation": d.Compensation, "order": d.Order,
		"z-origin": d.ZOrigin, "annotate": d.Annotate, "offset-lines": d.OffsetLines,
		"stepover": d.Stepover, "arc-tolerance": d.ArcTolerance,
		"tool": d.Tool, "tool-number": d.ToolNumber, "diameter": d.Diameter,
		"head-diameter": d.HeadDiameter, "angle": d.Angle,
		"depth-per-pass": d.DepthPerPass, "total-depth": d.TotalDepth,
		"feed": d.Feed, "plunge": d.Plunge, "safe-z": d.SafeZ,
		"layer-height": d.LayerHeight, "first-layer": d.FirstLayer, "section": d.Section,
		"epsilon": d.Epsilon, "workers": d.Workers, "precision": d.Precision, "cells": d.Cells,
		"kernel": d.Kernel,
	} {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags adds a flag for every profile key to fs, with the built-in
// defaults.
func RegisterFlags(fs *flag.FlagSet) {
	d := Defaults()
	fs.String("strategy", d.Strategy, "cutting strategy: contour or pocket")
	fs.String("compensation", d.Compensation, "tool side: none, inside or outside")
	fs.String("order", d.Order, "path order: assembly or nearest")
	fs.String("z-origin", d.ZOrigin, "where Z=0 lies: model coordinates or the top of the model")
	fs.Bool("annotate", d.Annotate, "emit a comment before every layer or pass")
	fs.Bool("offset-lines", d.OffsetLines, "apply compensation to open paths too")
	fs.Float64("stepover", d.Stepover, "distance between pocket clearing rings; 0 cuts the outline only")
	fs.Float64("arc-tolerance", d.ArcTolerance, "maximum deviation of round offset joins")

	fs.String("tool", d.Tool, "cutter kind: flat, tslot or vbit")
	fs.Int("tool-number", d.ToolNumber, "tool changer slot; 0 skips the tool change")
	fs.Float64("diameter", d.Diameter, "cutter diameter")
	fs.Float64("head-diameter", d.HeadDiameter, "T-slot head diameter")
	fs.Float64("angle", d.Angle, "V-bit included angle in degrees")
	fs.Float64("depth-per-pass", d.DepthPerPass, "depth of each pocket pass")
	fs.Float64("total-depth", d.TotalDepth, "final pocket depth")
	fs.Float64("feed", d.Feed, "cutting feed, mm/min")
	fs.Float64("plunge", d.Plunge, "plunge feed, mm/min")
	fs.Float64("safe-z", d.SafeZ, "traverse height above the stock top")

	fs.Float64("layer-height", d.LayerHeight, "distance between slicing planes")
	fs.Float64("first-layer", d.FirstLayer, "height of the first plane above the model bottom")
	fs.Float64("section", d.Section, "pocket outline height as a fraction of the model height")
	fs.Float64("epsilon", d.Epsilon, "endpoint matching tolerance")
	fs.Int("workers", d.Workers, "layers sliced in parallel")
	fs.Int("precision", d.Precision, "fractional digits in the program")
	fs.Int("cells", d.Cells, "tessellation resolution for job models")
	fs.String("kernel", d.Kernel, "geometry kernel for job models: sdfx or manifold")
}

// Load binds fs into v, reads the config file at path if one is given and
// decodes the merged profile.
func Load(v *viper.Viper, fs *flag.FlagSet, path string) (Profile, error) {
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Profile{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Profile{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("config: decode: %w", err)
	}
	return p, nil
}

// ToolConfig returns the profile's cutter.
func (p Profile) ToolConfig() (tool.Tool, error) {
	kind, err := tool.ParseKind(p.Tool)
	if err != nil {
		return tool.Tool{}, fmt.Errorf("config: %w", err)
	}
	return tool.Tool{
		Kind:         kind,
		Number:       p.ToolNumber,
		Diameter:     p.Diameter,
		HeadDiameter: p.HeadDiameter,
		Angle:        p.Angle,
		DepthPerPass: p.DepthPerPass,
		TotalDepth:   p.TotalDepth,
		Feed:         p.Feed,
		Plunge:       p.Plunge,
		SafeZ:        p.SafeZ,
	}, nil
}

// PlanOptions returns the profile's planner options.
func (p Profile) PlanOptions() (plan.Options, error) {
	strategy, err1 := plan.ParseStrategy(p.Strategy)
	comp, err2 := plan.ParseCompensation(p.Compensation)
	order, err3 := plan.ParseOrder(p.Order)
	if err := errors.Join(err1, err2, err3); err != nil {
		return plan.Options{}, fmt.Errorf("config: %w", err)
	}
	return plan.Options{
		Strategy:     strategy,
		Compensation: comp,
		Order:        order,
		Stepover:     p.Stepover,
		OffsetLines:  p.OffsetLines,
		ArcTolerance: p.ArcTolerance,
		Annotate:     p.Annotate,
	}, nil
}

// Job builds a job named name from the profile. The caller sets the
// geometry source and output.
func (p Profile) Job(name string) (job.Job, error) {
	t, err := p.ToolConfig()
	if err != nil {
		return job.Job{}, err
	}
	opts, err := p.PlanOptions()
	if err != nil {
		return job.Job{}, err
	}
	origin, err := job.ParseZOrigin(p.ZOrigin)
	if err != nil {
		return job.Job{}, fmt.Errorf("config: %w", err)
	}
	j := job.New(name)
	j.Tool = t
	j.Plan = opts
	j.LayerHeight = p.LayerHeight
	j.FirstLayer = p.FirstLayer
	j.Section = p.Section
	j.ZOrigin = origin
	j.Epsilon = p.Epsilon
	j.Workers = p.Workers
	j.Precision = p.Precision
	return j, nil
}

// NewKernel returns the geometry kernel the profile names. The manifold
// kernel needs a binary built with the manifold tag.
func (p Profile) NewKernel() (kernel.Kernel, error) {
	switch strings.ToLower(p.Kernel) {
	case "", "sdfx":
		return sdfx.New(sdfx.WithCells(p.Cells)), nil
	case "manifold":
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return k, nil
	}
	return nil, fmt.Errorf("config: unknown kernel %q (want sdfx or manifold)", p.Kernel)
}
