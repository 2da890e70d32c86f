// Package preview draws motion programs as per-depth plots: one sheet for
// every Z level the tool cuts at, with feed moves as solid lines and the
// rapid traverses leading to them dashed.
package preview

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/chazu/swarf/pkg/plan"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Sheet is the XY motion at one cutting depth.
type Sheet struct {
	Index  int
	Z      float64
	Cuts   []plotter.XYs
	Rapids []plotter.XYs
}

// Sheets splits a program by cutting depth. Sheets are ordered by the first
// time the tool reaches their Z. Rapids are attached to the sheet of the
// plunge that follows them.
func Sheets(p *plan.Program) []Sheet {
	var (
		sheets  []Sheet
		byZ     = map[float64]int{}
		cur     = -1
		x, y    float64
		cut     plotter.XYs
		pending []plotter.XYs
	)
	flush := func() {
		if cur >= 0 && len(cut) > 1 {
			sheets[cur].Cuts = append(sheets[cur].Cuts, cut)
		}
		cut = nil
	}

	for _, m := range p.Moves {
		switch m.Op {
		case plan.OpRapid:
			flush()
			if m.Has(plan.AxisX | plan.AxisY) {
				if m.X != x || m.Y != y {
					pending = append(pending, plotter.XYs{{X: x, Y: y}, {X: m.X, Y: m.Y}})
				}
				x, y = m.X, m.Y
			}
		case plan.OpLinear:
			if m.Has(plan.AxisX | plan.AxisY) {
				if len(cut) == 0 {
					cut = plotter.XYs{{X: x, Y: y}}
				}
				x, y = m.X, m.Y
				cut = append(cut, plotter.XY{X: x, Y: y})
				continue
			}
			if !m.Has(plan.AxisZ) {
				continue
			}
			flush()
			i, ok := byZ[m.Z]
			if !ok {
				i = len(sheets)
				byZ[m.Z] = i
				sheets = append(sheets, Sheet{Index: i, Z: m.Z})
			}
			cur = i
			sheets[cur].Rapids = append(sheets[cur].Rapids, pending...)
			pending = nil
		}
	}
	flush()
	return sheets
}

// Render draws a sheet.
func Render(s Sheet, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s z=%g", title, s.Z)
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"
	p.Add(plotter.NewGrid())

	for _, pts := range s.Rapids {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("preview: rapid line: %w", err)
		}
		l.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
		l.Width = vg.Points(0.5)
		l.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(l)
	}
	for _, pts := range s.Cuts {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("preview: cut line: %w", err)
		}
		l.Color = color.RGBA{R: 20, G: 60, B: 160, A: 255}
		l.Width = vg.Points(1)
		p.Add(l)
	}
	return p, nil
}

// WriteDir renders every sheet of the program into dir as
// <name>_NNN.<format> and returns the paths written. Format is any
// extension gonum/plot can save, typically png or svg.
func WriteDir(p *plan.Program, dir, name, format string) ([]string, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		format = "png"
	}
	var files []string
	for _, s := range Sheets(p) {
		pl, err := Render(s, name)
		if err != nil {
			return files, err
		}
		file := filepath.Join(dir, fmt.Sprintf("%s_%03d.%s", name, s.Index, format))
		if err := pl.Save(12*vg.Centimeter, 12*vg.Centimeter, file); err != nil {
			return files, fmt.Errorf("preview: save %s: %w", file, err)
		}
		files = append(files, file)
	}
	return files, nil
}
