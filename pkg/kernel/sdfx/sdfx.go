// Package sdfx implements kernel.Kernel with the signed distance function
// library github.com/deadsy/sdfx. Solids are tessellated by uniform marching
// cubes, so flat faces are exact only up to the cell size.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 200

type solid struct {
	s sdf.SDF3
}

func (s *solid) Bounds() sdf.Box3 {
	return s.s.BoundingBox()
}

// Kernel builds solids as signed distance functions.
type Kernel struct {
	cells int
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithCells sets the tessellation resolution. Values below 8 are raised
// to 8.
func WithCells(n int) Option {
	return func(k *Kernel) {
		k.cells = max(n, 8)
	}
}

// New returns a Kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{cells: DefaultCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

func (k *Kernel) Name() string { return "sdfx" }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box returns a block with its minimum corner at the origin. sdf.Box3D is
// centred, so it is shifted by half its size.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if err := kernel.CheckDims("box", x, y, z); err != nil {
		return nil, err
	}
	size := v3.Vec{X: x, Y: y, Z: z}
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(size.MulScalar(0.5)))), nil
}

// Cylinder returns a cylinder standing on z = 0. Segments are ignored; the
// surface is smooth until tessellated.
func (k *Kernel) Cylinder(height, radius float64, _ int) (kernel.Solid, error) {
	if err := kernel.CheckDims("cylinder", height, radius); err != nil {
		return nil, err
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns a minus b.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// Rotate applies Euler angles in degrees, X first.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	m := sdf.RotateZ(rad(z)).Mul(sdf.RotateY(rad(y))).Mul(sdf.RotateX(rad(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh runs marching cubes over the solid's bounding box.
func (k *Kernel) ToMesh(s kernel.Solid, name string) (*mesh.Mesh, error) {
	tris := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	m := mesh.FromSDF(name, tris)
	if m.IsEmpty() {
		return nil, fmt.Errorf("sdfx: %s: %w", name, kernel.ErrEmptyMesh)
	}
	return m, nil
}
