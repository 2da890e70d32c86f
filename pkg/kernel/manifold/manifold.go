//go:build manifold

// Package manifold implements kernel.Kernel on the Manifold C library
// (https://github.com/elalish/manifold), whose booleans always produce
// closed meshes with exact planar faces.
//
// The manifoldc library must be installed. Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/mesh"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*Kernel)(nil)
var _ kernel.Solid = (*solid)(nil)

// defaultSegments is used for cylinders when the caller passes zero.
const defaultSegments = 64

type solid struct {
	ptr *C.ManifoldManifold
}

func (s *solid) Bounds() sdf.Box3 {
	bbox := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(bbox)
	return sdf.Box3{
		Min: v3.Vec{
			X: float64(C.manifold_box_min_x(bbox)),
			Y: float64(C.manifold_box_min_y(bbox)),
			Z: float64(C.manifold_box_min_z(bbox)),
		},
		Max: v3.Vec{
			X: float64(C.manifold_box_max_x(bbox)),
			Y: float64(C.manifold_box_max_y(bbox)),
			Z: float64(C.manifold_box_max_z(bbox)),
		},
	}
}

// newSolid takes ownership of ptr; the finalizer frees it.
func newSolid(ptr *C.ManifoldManifold) *solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func ptr(s kernel.Solid) *C.ManifoldManifold {
	return s.(*solid).ptr
}

// Kernel builds solids with Manifold.
type Kernel struct{}

// New returns a Kernel.
func New() (kernel.Kernel, error) {
	return &Kernel{}, nil
}

func (k *Kernel) Name() string { return "manifold" }

// Box is built uncentred, so its minimum corner is the origin.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if err := kernel.CheckDims("box", x, y, z); err != nil {
		return nil, err
	}
	p := C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(x), C.double(y), C.double(z), C.int(0))
	return newSolid(p), nil
}

// Cylinder is built uncentred, standing on z = 0.
func (k *Kernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	if err := kernel.CheckDims("cylinder", height, radius); err != nil {
		return nil, err
	}
	if segments < 3 {
		segments = defaultSegments
	}
	p := C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height), C.double(radius), C.double(radius),
		C.int(segments), C.int(0))
	return newSolid(p), nil
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_union(C.manifold_alloc_manifold(), ptr(a), ptr(b)))
}

// Difference returns a minus b.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_difference(C.manifold_alloc_manifold(), ptr(a), ptr(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_intersection(C.manifold_alloc_manifold(), ptr(a), ptr(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_translate(C.manifold_alloc_manifold(), ptr(s),
		C.double(x), C.double(y), C.double(z)))
}

// Rotate applies Euler angles in degrees, X first.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_rotate(C.manifold_alloc_manifold(), ptr(s),
		C.double(x), C.double(y), C.double(z)))
}

// ToMesh reads the MeshGL buffers back into triangles. Positions are the
// first three vertex properties; normals are recomputed from the winding.
func (k *Kernel) ToMesh(s kernel.Solid, name string) (*mesh.Mesh, error) {
	gl := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ptr(s))
	defer C.manifold_delete_meshgl(gl)

	numVert := int(C.manifold_meshgl_num_vert(gl))
	numTri := int(C.manifold_meshgl_num_tri(gl))
	if numVert == 0 || numTri == 0 {
		return nil, fmt.Errorf("manifold: %s: %w", name, kernel.ErrEmptyMesh)
	}
	numProp := int(C.manifold_meshgl_num_prop(gl))
	if numProp < 3 {
		return nil, fmt.Errorf("manifold: %s: %d vertex properties, need 3", name, numProp)
	}

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), gl)
	idx := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&idx[0])), gl)

	vert := func(i uint32) (v3.Vec, error) {
		if int(i) >= numVert {
			return v3.Vec{}, fmt.Errorf("manifold: %s: vertex index %d out of range %d", name, i, numVert)
		}
		b := int(i) * numProp
		return v3.Vec{X: float64(props[b]), Y: float64(props[b+1]), Z: float64(props[b+2])}, nil
	}

	m := &mesh.Mesh{Name: name, Triangles: make([]mesh.Triangle, 0, numTri)}
	for t := 0; t < numTri; t++ {
		var vs [3]v3.Vec
		for j := range vs {
			v, err := vert(idx[t*3+j])
			if err != nil {
				return nil, err
			}
			vs[j] = v
		}
		tri := mesh.Triangle{V0: vs[0], V1: vs[1], V2: vs[2]}
		tri.Normal = tri.FaceNormal()
		m.Triangles = append(m.Triangles, tri)
	}
	return m, nil
}
