package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/chazu/swarf/pkg/engine"
	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/pipeline"
)

// App evaluates job scripts and plans their jobs in memory for a frontend.
// Its methods return JSON-serializable values.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	runner *pipeline.Runner

	// dir resolves relative input and output paths; empty means the
	// working directory.
	dir string
}

// MessageData is a JSON-serializable script error or warning.
type MessageData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Job     string `json:"job,omitempty"`
	Message string `json:"message"`
}

// JobData is one planned job.
type JobData struct {
	Name         string   `json:"name"`
	Source       string   `json:"source"`
	Output       string   `json:"output"`
	Strategy     string   `json:"strategy"`
	Tool         string   `json:"tool"`
	GCode        string   `json:"gcode"`
	Records      int      `json:"records"`
	Layers       int      `json:"layers"`
	EmptyLayers  int      `json:"emptyLayers"`
	Segments     []int    `json:"segments"`
	Passes       int      `json:"passes"`
	PathsCut     int      `json:"pathsCut"`
	EmptyOffsets int      `json:"emptyOffsets"`
	Warnings     []string `json:"warnings"`
	Error        string   `json:"error,omitempty"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Jobs     []JobData     `json:"jobs"`
	Errors   []MessageData `json:"errors"`
	Warnings []MessageData `json:"warnings"`
}

func newApp(ctx context.Context, k kernel.Kernel, base job.Job, logger *log.Logger) *App {
	return &App{
		ctx:    ctx,
		engine: engine.NewEngine(engine.WithKernel(k), engine.WithDefaults(base)),
		runner: pipeline.New(k, logger),
	}
}

// WriteJSON evaluates source and writes the result as indented JSON.
func (a *App) WriteJSON(w io.Writer, source string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.Evaluate(source)); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

// Evaluate runs a job script and plans every job it declares. Nothing is
// written to disk. A job that fails to plan carries its error and does not
// stop the others.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Jobs:     []JobData{},
		Errors:   []MessageData{},
		Warnings: []MessageData{},
	}

	script, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, MessageData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, MessageData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	for _, w := range script.Warnings {
		result.Warnings = append(result.Warnings, MessageData{Job: w.Job, Message: w.Message})
	}

	for _, j := range script.Jobs {
		result.Jobs = append(result.Jobs, a.plan(j))
	}
	return result
}

func (a *App) plan(j job.Job) JobData {
	j.Input = relativeTo(a.dir, j.Input)
	if j.Output != "" {
		j.Output = relativeTo(a.dir, j.Output)
	}
	d := JobData{
		Name:     j.Name,
		Source:   j.Source(),
		Output:   j.OutputPath(),
		Strategy: j.Plan.Strategy.String(),
		Tool:     j.Tool.String(),
		Segments: []int{},
		Warnings: []string{},
	}
	res, err := a.runner.Run(a.ctx, j)
	if err != nil {
		log.Printf("Plan error: job %s: %v", j.Name, err)
		d.Error = err.Error()
		return d
	}
	d.GCode = string(res.GCode)
	d.Records = res.Program.Len()
	d.Layers = res.Stats.Layers
	d.EmptyLayers = res.EmptyLayers()
	d.Segments = res.SegmentCounts
	d.Passes = res.Stats.Passes
	d.PathsCut = res.Stats.PathsCut
	d.EmptyOffsets = res.Stats.EmptyOffsets
	for _, w := range res.Warnings {
		d.Warnings = append(d.Warnings, w.Error())
	}
	return d
}
