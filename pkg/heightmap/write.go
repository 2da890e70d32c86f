package heightmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WritePGM writes the map as a binary 16-bit PGM (P5, maxval 65535,
// big-endian samples).
func (hm *Map) WritePGM(w io.Writer) error {
	r := hm.Image.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n65535\n", r.Dx(), r.Dy()); err != nil {
		return fmt.Errorf("heightmap: write pgm header: %w", err)
	}
	row := make([]byte, 2*r.Dx())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			binary.BigEndian.PutUint16(row[2*(x-r.Min.X):], hm.Image.Gray16At(x, y).Y)
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("heightmap: write pgm row %d: %w", y, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("heightmap: write pgm: %w", err)
	}
	return nil
}

// WritePNG writes the map as a 16-bit greyscale PNG.
func (hm *Map) WritePNG(w io.Writer) error {
	if err := png.Encode(w, hm.Image); err != nil {
		return fmt.Errorf("heightmap: encode png: %w", err)
	}
	return nil
}

// Save writes the map to path, choosing PNG for a .png extension and PGM
// otherwise.
func (hm *Map) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heightmap: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("heightmap: %w", cerr)
		}
	}()
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return hm.WritePNG(f)
	}
	return hm.WritePGM(f)
}
