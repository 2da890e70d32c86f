package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
)

// WriteReport writes a human-readable summary of the run.
func (r *Result) WriteReport(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "job:            %s (%s)\n", r.Job.Name, r.Job.Source())
	fmt.Fprintf(bw, "run:            %s\n", r.RunID)
	fmt.Fprintf(bw, "triangles:      %d (%d degenerate)\n", r.Triangles, r.Degenerate)
	fmt.Fprintf(bw, "bounds:         %g,%g,%g .. %g,%g,%g\n",
		r.Bounds.Min.X, r.Bounds.Min.Y, r.Bounds.Min.Z, r.Bounds.Max.X, r.Bounds.Max.Y, r.Bounds.Max.Z)
	fmt.Fprintf(bw, "strategy:       %s, tool %s\n", r.Job.Plan.Strategy, r.Job.Tool)
	fmt.Fprintf(bw, "layers:         %d (%d empty)\n", r.Stats.Layers, r.EmptyLayers())
	counts := lo.Map(r.SegmentCounts, func(n int, _ int) string { return fmt.Sprint(n) })
	fmt.Fprintf(bw, "segments:       %d [%s]\n", r.Segments(), strings.Join(counts, " "))
	fmt.Fprintf(bw, "open paths:     %d\n", r.OpenPaths())
	fmt.Fprintf(bw, "passes:         %d\n", r.Stats.Passes)
	fmt.Fprintf(bw, "paths cut:      %d\n", r.Stats.PathsCut)
	fmt.Fprintf(bw, "empty offsets:  %d\n", r.Stats.EmptyOffsets)
	if r.Program != nil {
		fmt.Fprintf(bw, "records:        %d\n", r.Program.Len())
	}
	for _, f := range r.Warnings {
		fmt.Fprintf(bw, "warning:        %v\n", f)
	}
	return bw.Flush()
}
