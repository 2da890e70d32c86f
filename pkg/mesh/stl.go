package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Binary STL layout.
const (
	headerSize = 80
	countSize  = 4
	recordSize = 50

	// MinBinarySize is the smallest valid binary STL: header plus count.
	MinBinarySize = headerSize + countSize
)

var le = binary.LittleEndian

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads and decodes the STL file at path. The mesh is named after the
// file's base name without extension.
func Load(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: ReasonOpen, Err: err}
	}
	m, err := Decode(data)
	if err != nil {
		var lerr *LoadError
		if errors.As(err, &lerr) {
			lerr.Path = path
		}
		return nil, err
	}
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m, nil
}

// Read decodes an STL stream.
func Read(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Reason: ReasonOpen, Err: err}
	}
	return Decode(data)
}

// Decode detects the STL encoding and parses it. When the byte length is
// exactly 84+50*N for the declared count N the binary parser runs first,
// otherwise the ASCII parser does. If the first parser produces no
// triangles the other one is tried before giving up.
func Decode(data []byte) (*Mesh, error) {
	if len(data) < MinBinarySize {
		return nil, &LoadError{
			Reason: ReasonTruncated,
			Err:    fmt.Errorf("%d bytes, need at least %d", len(data), MinBinarySize),
		}
	}

	strategies := []func([]byte) ([]Triangle, error){parseASCII, parseBinary}
	if binarySizeMatches(data) {
		strategies[0], strategies[1] = strategies[1], strategies[0]
	}

	var errs []error
	for _, parse := range strategies {
		tris, err := parse(data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(tris) > 0 {
			return &Mesh{Triangles: tris}, nil
		}
	}
	return nil, &LoadError{Reason: ReasonNoTriangles, Err: errors.Join(errs...)}
}

// binarySizeMatches reports whether len(data) equals the size implied by the
// triangle count in the binary header.
func binarySizeMatches(data []byte) bool {
	n := uint64(le.Uint32(data[headerSize:]))
	return uint64(len(data)) == MinBinarySize+recordSize*n
}

// parseBinary reads up to the declared number of complete records. A file
// shorter than its declared count yields the records that are present.
func parseBinary(data []byte) ([]Triangle, error) {
	if len(data) < MinBinarySize {
		return nil, fmt.Errorf("binary: short header")
	}
	r := bytes.NewReader(data)
	var header render.STLHeader
	if err := binary.Read(r, le, &header); err != nil {
		return nil, fmt.Errorf("binary: header: %w", err)
	}
	available := (len(data) - MinBinarySize) / recordSize
	n := min(int(header.Count), available)

	tris := make([]Triangle, 0, n)
	for i := 0; i < n; i++ {
		var rec render.STLTriangle
		if err := binary.Read(r, le, &rec); err != nil {
			return nil, fmt.Errorf("binary: record %d: %w", i, err)
		}
		tris = append(tris, Triangle{
			Normal: vec32(rec.Normal),
			V0:     vec32(rec.Vertex1),
			V1:     vec32(rec.Vertex2),
			V2:     vec32(rec.Vertex3),
		})
	}
	return tris, nil
}

func vec32(a [3]float32) v3.Vec {
	return v3.Vec{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

// parseASCII reads the facet/vertex keyword stream. Facets that do not carry
// exactly three vertices are dropped. A malformed number fails the parse.
func parseASCII(data []byte) ([]Triangle, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}
	readVec := func(what string) (v3.Vec, error) {
		var f [3]float64
		for i := range f {
			tok, ok := next()
			if !ok {
				return v3.Vec{}, fmt.Errorf("ascii: %s: unexpected end of input", what)
			}
			x, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return v3.Vec{}, fmt.Errorf("ascii: %s: %w", what, err)
			}
			f[i] = x
		}
		return v3.Vec{X: f[0], Y: f[1], Z: f[2]}, nil
	}

	var (
		tris    []Triangle
		cur     Triangle
		verts   []v3.Vec
		inFacet bool
	)
	for {
		tok, ok := next()
		if !ok {
			break
		}
		switch strings.ToLower(tok) {
		case "facet":
			inFacet = true
			cur = Triangle{}
			verts = verts[:0]
		case "normal":
			if !inFacet {
				continue
			}
			n, err := readVec("normal")
			if err != nil {
				return nil, err
			}
			cur.Normal = n
		case "vertex":
			if !inFacet {
				continue
			}
			v, err := readVec("vertex")
			if err != nil {
				return nil, err
			}
			verts = append(verts, v)
		case "endfacet":
			if inFacet && len(verts) == 3 {
				cur.V0, cur.V1, cur.V2 = verts[0], verts[1], verts[2]
				tris = append(tris, cur)
			}
			inFacet = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii: %w", err)
	}
	return tris, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// EncodeBinary writes m as binary STL.
func EncodeBinary(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	var header [headerSize]byte
	copy(header[:], "binary STL: "+m.Name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("mesh: write header: %w", err)
	}
	if err := binary.Write(bw, le, uint32(len(m.Triangles))); err != nil {
		return fmt.Errorf("mesh: write count: %w", err)
	}
	var rec [recordSize]byte
	for _, t := range m.Triangles {
		vals := [12]float64{
			t.Normal.X, t.Normal.Y, t.Normal.Z,
			t.V0.X, t.V0.Y, t.V0.Z,
			t.V1.X, t.V1.Y, t.V1.Z,
			t.V2.X, t.V2.Y, t.V2.Z,
		}
		for j, v := range vals {
			le.PutUint32(rec[j*4:], math.Float32bits(float32(v)))
		}
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("mesh: write triangle: %w", err)
		}
	}
	return bw.Flush()
}

// EncodeASCII writes m as ASCII STL.
func EncodeASCII(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	name := m.Name
	if name == "" {
		name = "mesh"
	}
	vec := func(v v3.Vec) string {
		return fmt.Sprintf("%g %g %g", v.X, v.Y, v.Z)
	}
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range m.Triangles {
		fmt.Fprintf(bw, "  facet normal %s\n", vec(t.Normal))
		fmt.Fprintf(bw, "    outer loop\n")
		for _, v := range t.Vertices() {
			fmt.Fprintf(bw, "      vertex %s\n", vec(v))
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

// Save writes m to path as binary STL using the sdfx writer.
func Save(path string, m *Mesh) error {
	if err := render.SaveSTL(path, m.ToSDF()); err != nil {
		return fmt.Errorf("mesh: save %s: %w", path, err)
	}
	return nil
}
