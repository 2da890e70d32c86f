// Package heightmap projects a mesh onto a regular XY grid and records the
// topmost surface under every cell as a 16-bit grey value.
//
// Values are inverted for engraving: the highest surface is 0 (black), the
// lowest hit surface 65535, and cells that no triangle covers are 65535 too.
// Image row 0 is the maximum Y edge of the grid.
package heightmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/chazu/swarf/pkg/mesh"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Pad is the fraction of the mesh's XY extent added on each side.
const Pad = 0.02

// ErrNoCoverage is returned when no grid cell lies inside any triangle.
var ErrNoCoverage = errors.New("heightmap: mesh covers no grid cell")

// Map is a rasterized mesh.
type Map struct {
	Image *image.Gray16
	// Bounds is the padded XY area the grid spans, with the mesh's Z range.
	Bounds sdf.Box3
	// Hits is the number of cells covered by at least one triangle.
	Hits int
}

// Rasterize samples the mesh on a width x height grid spanning its padded XY
// bounds. Cell (px, py) samples the world point at fraction px/(width-1)
// and py/(height-1) of the grid.
func Rasterize(m *mesh.Mesh, width, height int) (*Map, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("heightmap: grid %dx%d too small, need at least 2x2", width, height)
	}
	if m == nil || m.IsEmpty() {
		return nil, errors.New("heightmap: empty mesh")
	}

	b := m.Bounds()
	padX := (b.Max.X - b.Min.X) * Pad
	padY := (b.Max.Y - b.Min.Y) * Pad
	b.Min.X -= padX
	b.Max.X += padX
	b.Min.Y -= padY
	b.Max.Y += padY
	gridW := b.Max.X - b.Min.X
	gridH := b.Max.Y - b.Min.Y
	if gridW <= 0 || gridH <= 0 {
		return nil, fmt.Errorf("heightmap: mesh has no XY extent (%gx%g)", gridW, gridH)
	}

	zbuf := make([]float64, width*height)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	toPx := func(x float64) float64 { return (x - b.Min.X) / gridW * float64(width-1) }
	toPy := func(y float64) float64 { return (y - b.Min.Y) / gridH * float64(height-1) }

	for _, t := range m.Triangles {
		lo := v3.Vec{X: math.Min(t.V0.X, math.Min(t.V1.X, t.V2.X)), Y: math.Min(t.V0.Y, math.Min(t.V1.Y, t.V2.Y))}
		hi := v3.Vec{X: math.Max(t.V0.X, math.Max(t.V1.X, t.V2.X)), Y: math.Max(t.V0.Y, math.Max(t.V1.Y, t.V2.Y))}
		x0 := clamp(int(math.Floor(toPx(lo.X))), width)
		x1 := clamp(int(math.Ceil(toPx(hi.X))), width)
		y0 := clamp(int(math.Floor(toPy(lo.Y))), height)
		y1 := clamp(int(math.Ceil(toPy(hi.Y))), height)

		for py := y0; py <= y1; py++ {
			yw := b.Min.Y + float64(py)/float64(height-1)*gridH
			for px := x0; px <= x1; px++ {
				xw := b.Min.X + float64(px)/float64(width-1)*gridW
				z, ok := surfaceZ(t, xw, yw)
				if !ok {
					continue
				}
				if i := py*width + px; z > zbuf[i] {
					zbuf[i] = z
				}
			}
		}
	}

	zmin, zmax := math.Inf(1), math.Inf(-1)
	hits := 0
	for _, z := range zbuf {
		if math.IsInf(z, -1) {
			continue
		}
		hits++
		zmin = math.Min(zmin, z)
		zmax = math.Max(zmax, z)
	}
	if hits == 0 {
		return nil, ErrNoCoverage
	}

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for py := 0; py < height; py++ {
		row := height - 1 - py
		for px := 0; px < width; px++ {
			img.SetGray16(px, row, color.Gray16{Y: level(zbuf[py*width+px], zmin, zmax)})
		}
	}
	return &Map{Image: img, Bounds: b, Hits: hits}, nil
}

// flatTol is the relative Z range below which a surface counts as flat.
const flatTol = 1e-9

// level maps z to the inverted 16-bit range. A flat mesh is all top.
func level(z, zmin, zmax float64) uint16 {
	if math.IsInf(z, -1) {
		return math.MaxUint16
	}
	if zmax-zmin <= flatTol*math.Max(1, math.Abs(zmax)) {
		return 0
	}
	t := (z - zmin) / (zmax - zmin)
	t = math.Max(0, math.Min(1, t))
	return uint16(math.Round((1 - t) * math.MaxUint16))
}

// surfaceZ reports whether (x, y) lies inside the triangle's XY projection
// and, if so, the interpolated Z there. Edges count as inside. Triangles
// seen edge-on from above never contain a point.
func surfaceZ(t mesh.Triangle, x, y float64) (float64, bool) {
	a, b, c := t.V0, t.V1, t.V2
	den := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math.Abs(den) < 1e-12 {
		return 0, false
	}
	const eps = 1e-9
	w0 := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / den
	w1 := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / den
	w2 := 1 - w0 - w1
	if w0 < -eps || w1 < -eps || w2 < -eps {
		return 0, false
	}
	if a.Z == b.Z && b.Z == c.Z {
		return a.Z, true
	}
	return w0*a.Z + w1*b.Z + w2*c.Z, true
}

func clamp(i, n int) int {
	return max(0, min(n-1, i))
}
