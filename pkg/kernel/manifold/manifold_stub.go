//go:build !manifold

// Package manifold implements kernel.Kernel on the Manifold C library. This
// file is compiled without the manifold build tag and only reports that the
// backend is missing.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/swarf/pkg/kernel"
)

// ErrUnavailable is returned by New when built without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New reports ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
