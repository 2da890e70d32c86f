package mesh

import "fmt"

// LoadReason classifies why a mesh could not be loaded.
type LoadReason int

const (
	// ReasonOpen means the file could not be opened or read.
	ReasonOpen LoadReason = iota
	// ReasonTruncated means the input is shorter than the binary header.
	ReasonTruncated
	// ReasonNoTriangles means neither the binary nor the ASCII parser
	// produced a triangle.
	ReasonNoTriangles
)

// String returns the reason name.
func (r LoadReason) String() string {
	switch r {
	case ReasonOpen:
		return "open"
	case ReasonTruncated:
		return "truncated"
	case ReasonNoTriangles:
		return "no triangles"
	}
	return fmt.Sprintf("LoadReason(%d)", int(r))
}

// LoadError is returned when a mesh cannot be loaded. It is fatal to a run.
type LoadError struct {
	Path   string
	Reason LoadReason
	Err    error
}

func (e *LoadError) Error() string {
	src := e.Path
	if src == "" {
		src = "<stream>"
	}
	if e.Err != nil {
		return fmt.Sprintf("mesh: load %s: %s: %v", src, e.Reason, e.Err)
	}
	return fmt.Sprintf("mesh: load %s: %s", src, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
