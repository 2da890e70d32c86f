// Package plan turns contours into an ordered motion program for a tool.
//
// A Program is a list of logical motion records. It carries no formatting;
// package gcode serializes it one record per line.
package plan

import "fmt"

// Op is the kind of a motion record.
type Op int

const (
	// OpUnits selects millimetre units.
	OpUnits Op = iota
	// OpAbsolute selects absolute positioning.
	OpAbsolute
	// OpToolChange loads tool Move.Tool.
	OpToolChange
	// OpRapid is a positioning move at machine rapid speed.
	OpRapid
	// OpLinear is a move at a feed rate.
	OpLinear
	// OpComment carries Move.Text only.
	OpComment
	// OpEnd ends the program.
	OpEnd
)

func (o Op) String() string {
	switch o {
	case OpUnits:
		return "units"
	case OpAbsolute:
		return "absolute"
	case OpToolChange:
		return "tool-change"
	case OpRapid:
		return "rapid"
	case OpLinear:
		return "linear"
	case OpComment:
		return "comment"
	case OpEnd:
		return "end"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Axis is a bit set of the words present on a move.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ
	AxisF
)

// Move is one motion record. Only the words flagged in Set are meaningful.
type Move struct {
	Op   Op
	X, Y float64
	Z    float64
	Feed float64
	Set  Axis
	Tool int
	Text string
}

// Has reports whether all of the given axes are present.
func (m Move) Has(a Axis) bool {
	return m.Set&a == a
}

// Program is an ordered list of motion records.
type Program struct {
	Moves []Move
}

// Len returns the number of records.
func (p *Program) Len() int {
	return len(p.Moves)
}

// Count returns how many records have the given op.
func (p *Program) Count(op Op) int {
	n := 0
	for _, m := range p.Moves {
		if m.Op == op {
			n++
		}
	}
	return n
}

func (p *Program) emit(m Move) {
	p.Moves = append(p.Moves, m)
}

func (p *Program) comment(format string, args ...any) {
	p.emit(Move{Op: OpComment, Text: fmt.Sprintf(format, args...)})
}

// rapidXYZ moves to (x, y) at height z.
func (p *Program) rapidXYZ(x, y, z float64) {
	p.emit(Move{Op: OpRapid, X: x, Y: y, Z: z, Set: AxisX | AxisY | AxisZ})
}

func (p *Program) rapidZ(z float64) {
	p.emit(Move{Op: OpRapid, Z: z, Set: AxisZ})
}

func (p *Program) linearZ(z, feed float64) {
	p.emit(Move{Op: OpLinear, Z: z, Feed: feed, Set: AxisZ | AxisF})
}

// linearXY cuts to (x, y). A feed of zero leaves the modal feed unchanged.
func (p *Program) linearXY(x, y, feed float64) {
	m := Move{Op: OpLinear, X: x, Y: y, Set: AxisX | AxisY}
	if feed > 0 {
		m.Feed = feed
		m.Set |= AxisF
	}
	p.emit(m)
}
