// Package gcode serializes motion programs as G-code text, one block per
// record.
//
// Formatting is deterministic: numbers are written at a fixed precision with
// trailing zeros trimmed, so the same program always yields the same bytes.
package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/swarf/pkg/plan"
)

// DefaultPrecision is the number of fractional digits written when
// Options.Precision is zero.
const DefaultPrecision = 4

// Options controls number formatting.
type Options struct {
	// Precision is the number of fractional digits, at most 9.
	Precision int
}

// Writer writes programs to an underlying io.Writer.
type Writer struct {
	w    *bufio.Writer
	prec int
}

// NewWriter returns a Writer. A non-positive precision selects
// DefaultPrecision.
func NewWriter(w io.Writer, opts Options) *Writer {
	prec := opts.Precision
	if prec <= 0 {
		prec = DefaultPrecision
	}
	if prec > 9 {
		prec = 9
	}
	return &Writer{w: bufio.NewWriter(w), prec: prec}
}

// WriteProgram writes every record of p followed by a newline and flushes.
func (gw *Writer) WriteProgram(p *plan.Program) error {
	for i, m := range p.Moves {
		line, err := gw.block(m)
		if err != nil {
			return fmt.Errorf("gcode: record %d: %w", i, err)
		}
		if _, err := gw.w.WriteString(line); err != nil {
			return fmt.Errorf("gcode: write: %w", err)
		}
		if err := gw.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("gcode: write: %w", err)
		}
	}
	if err := gw.w.Flush(); err != nil {
		return fmt.Errorf("gcode: flush: %w", err)
	}
	return nil
}

// Format returns p as G-code text at the default precision.
func Format(p *plan.Program) (string, error) {
	var sb strings.Builder
	if err := NewWriter(&sb, Options{}).WriteProgram(p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (gw *Writer) block(m plan.Move) (string, error) {
	switch m.Op {
	case plan.OpUnits:
		return "G21", nil
	case plan.OpAbsolute:
		return "G90", nil
	case plan.OpToolChange:
		return fmt.Sprintf("T%d M6", m.Tool), nil
	case plan.OpRapid:
		return gw.words("G0", m), nil
	case plan.OpLinear:
		return gw.words("G1", m), nil
	case plan.OpComment:
		return "; " + strings.ReplaceAll(m.Text, "\n", " "), nil
	case plan.OpEnd:
		return "M30", nil
	}
	return "", fmt.Errorf("unknown op %v", m.Op)
}

func (gw *Writer) words(code string, m plan.Move) string {
	var sb strings.Builder
	sb.WriteString(code)
	word := func(letter byte, v float64) {
		sb.WriteByte(' ')
		sb.WriteByte(letter)
		sb.WriteString(gw.number(v))
	}
	if m.Has(plan.AxisX) {
		word('X', m.X)
	}
	if m.Has(plan.AxisY) {
		word('Y', m.Y)
	}
	if m.Has(plan.AxisZ) {
		word('Z', m.Z)
	}
	if m.Has(plan.AxisF) {
		word('F', m.Feed)
	}
	return sb.String()
}

// number formats v at the writer's precision, trimming trailing zeros and
// normalizing negative zero.
func (gw *Writer) number(v float64) string {
	s := strconv.FormatFloat(v, 'f', gw.prec, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}
