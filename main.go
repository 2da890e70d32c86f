// Command swarf slices an STL file, or the models of a job script, into
// layers and writes G-code to cut them.
//
//	swarf [flags] <input.stl | job.swarf>
//
// Settings come from the built-in defaults, a machine profile given with
// --config, SWARF_ environment variables and flags, in increasing order of
// precedence. A job script's own settings override all of them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/swarf/pkg/config"
	"github.com/chazu/swarf/pkg/engine"
	"github.com/chazu/swarf/pkg/heightmap"
	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/mesh"
	"github.com/chazu/swarf/pkg/pipeline"
	"github.com/chazu/swarf/pkg/preview"
	flag "github.com/spf13/pflag"
)

// scriptExt marks job scripts; anything else is read as STL.
const scriptExt = ".swarf"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, log.Default())
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "swarf:", err)
		os.Exit(1)
	}
}

type options struct {
	config        string
	output        string
	preview       string
	previewFormat string
	heightmap     string
	width, height int
	stock         string
	report        bool
	json          bool
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("swarf", flag.ContinueOnError)
	fs.StringVar(&o.config, "config", "", "machine profile (yaml, toml or json)")
	fs.StringVarP(&o.output, "output", "o", "", "output file (default: input name + .gcode)")
	fs.StringVar(&o.preview, "preview", "", "write per-layer toolpath plots into this directory")
	fs.StringVar(&o.previewFormat, "preview-format", "png", "plot format: png or svg")
	fs.StringVar(&o.heightmap, "heightmap", "", "rasterize the geometry to a .pgm or .png height map instead of planning")
	fs.IntVar(&o.width, "width", 512, "height map width in pixels")
	fs.IntVar(&o.height, "height", 512, "height map height in pixels")
	fs.StringVar(&o.stock, "stock", "", "write a WxHxD stock block STL (top at z=0) and exit")
	fs.BoolVar(&o.report, "report", false, "print a summary of every run")
	fs.BoolVar(&o.json, "json", false, "plan a job script in memory and print the result as JSON")
	config.RegisterFlags(fs)
	fs.SortFlags = false
	return fs
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) error {
	var o options
	fs := newFlagSet(&o)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintf(stdout, "usage: swarf [flags] <input.stl | job%s>\n\n", scriptExt)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	prof, err := config.Load(config.New(), fs, o.config)
	if err != nil {
		return err
	}
	k, err := prof.NewKernel()
	if err != nil {
		return err
	}

	if o.stock != "" {
		return writeStock(k, o.stock, o.output, logger)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	input := fs.Arg(0)

	base, err := prof.Job(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	if err != nil {
		return err
	}
	if o.json {
		if !strings.EqualFold(filepath.Ext(input), scriptExt) {
			return fmt.Errorf("--json needs a %s script, got %s", scriptExt, input)
		}
		src, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		app := newApp(ctx, k, base, logger)
		app.dir = filepath.Dir(input)
		return app.WriteJSON(stdout, string(src))
	}
	jobs, err := loadJobs(input, base, k, logger)
	if err != nil {
		return err
	}
	if o.output != "" {
		if len(jobs) != 1 {
			return fmt.Errorf("--output needs exactly one job, %s declares %d", input, len(jobs))
		}
		jobs[0].Output = o.output
	}

	runner := pipeline.New(k, logger)
	if o.heightmap != "" {
		if len(jobs) != 1 {
			return fmt.Errorf("--heightmap needs exactly one job, %s declares %d", input, len(jobs))
		}
		return writeHeightmap(runner, jobs[0], o.heightmap, o.width, o.height, logger)
	}

	for _, j := range jobs {
		res, err := runner.Execute(ctx, j)
		if err != nil {
			return err
		}
		if o.preview != "" {
			if err := os.MkdirAll(o.preview, 0o755); err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			files, err := preview.WriteDir(res.Program, o.preview, j.Name, o.previewFormat)
			if err != nil {
				return err
			}
			logger.Printf("wrote %d preview plots to %s", len(files), o.preview)
		}
		if o.report {
			if err := res.WriteReport(stdout); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadJobs returns the single STL job for an STL input, or the jobs a script
// declares. Relative paths in a script are taken from the script's
// directory, and a script job without an output is written next to the
// script under its own name.
func loadJobs(input string, base job.Job, k kernel.Kernel, logger *log.Logger) ([]job.Job, error) {
	if !strings.EqualFold(filepath.Ext(input), scriptExt) {
		base.Input = input
		return []job.Job{base}, nil
	}

	src, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(engine.WithKernel(k), engine.WithDefaults(base))
	script, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s: %w", input, e)
		}
		return nil, errors.Join(errs...)
	}
	for _, w := range script.Warnings {
		logger.Printf("%s: %s", input, w)
	}
	if len(script.Jobs) == 0 {
		return nil, fmt.Errorf("%s declares no jobs", input)
	}

	dir := filepath.Dir(input)
	jobs := script.Jobs
	for i := range jobs {
		jobs[i].Input = relativeTo(dir, jobs[i].Input)
		if jobs[i].Output == "" {
			jobs[i].Output = jobs[i].Name + ".gcode"
		}
		jobs[i].Output = relativeTo(dir, jobs[i].Output)
	}
	return jobs, nil
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func writeHeightmap(r *pipeline.Runner, j job.Job, path string, w, h int, logger *log.Logger) error {
	m, err := r.Geometry(j)
	if err != nil {
		return err
	}
	hm, err := heightmap.Rasterize(m, w, h)
	if err != nil {
		return err
	}
	if err := hm.Save(path); err != nil {
		return err
	}
	logger.Printf("wrote %dx%d height map of %s to %s (%d pixels covered)", w, h, j.Source(), path, hm.Hits)
	return nil
}

func writeStock(k kernel.Kernel, size, output string, logger *log.Logger) error {
	x, y, z, err := parseSize(size)
	if err != nil {
		return err
	}
	m, err := kernel.Stock(k, x, y, z)
	if err != nil {
		return err
	}
	if output == "" {
		output = "stock.stl"
	}
	if err := mesh.Save(output, m); err != nil {
		return err
	}
	logger.Printf("wrote %gx%gx%g stock (%d triangles) to %s", x, y, z, m.TriangleCount(), output)
	return nil
}

// parseSize reads WxHxD.
func parseSize(s string) (x, y, z float64, err error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("stock size %q: want WxHxD", s)
	}
	var v [3]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("stock size %q: %w", s, err)
		}
	}
	return v[0], v[1], v[2], nil
}
