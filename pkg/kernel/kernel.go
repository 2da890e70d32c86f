// Package kernel defines the solid modelling interface used to build stock,
// fixtures and job models that are tessellated into meshes for slicing.
// Backends (sdfx, manifold) implement it; callers never see their internal
// representation.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/swarf/pkg/mesh"
	"github.com/deadsy/sdfx/sdf"
)

// ErrEmptyMesh is returned by ToMesh when tessellation yields no triangles.
var ErrEmptyMesh = errors.New("kernel: tessellation produced no triangles")

// Solid is an opaque handle to a backend solid.
type Solid interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() sdf.Box3
}

// Kernel builds and tessellates solids.
//
// Box has its minimum corner at the origin. Cylinder stands on the XY plane,
// centred on the Z axis. Rotations are Euler angles in degrees applied X,
// then Y, then Z.
type Kernel interface {
	Name() string

	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid

	// ToMesh tessellates s into a mesh called name.
	ToMesh(s Solid, name string) (*mesh.Mesh, error)
}

// CheckDims returns an error unless every dimension is positive and finite.
func CheckDims(kind string, dims ...float64) error {
	for _, d := range dims {
		if !(d > 0) || math.IsInf(d, 0) {
			return fmt.Errorf("kernel: %s dimensions must be positive, got %v", kind, dims)
		}
	}
	return nil
}

// Stock tessellates an x by y by z block with its top face at z = 0, the
// usual work origin for milling from the top of the stock.
func Stock(k Kernel, x, y, z float64) (*mesh.Mesh, error) {
	s, err := k.Box(x, y, z)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(k.Translate(s, 0, 0, -z), "stock")
	if err != nil {
		return nil, fmt.Errorf("kernel: stock: %w", err)
	}
	return m, nil
}
