// Package tool describes the cutters a toolpath is planned for.
//
// Tool is a tagged variant: Kind selects which of the variant fields
// (HeadDiameter for T-slot cutters, Angle for V-bits) apply. Everything else
// is shared.
package tool

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies the cutter geometry.
type Kind int

const (
	// FlatEnd is a square end mill; it cuts with its shaft diameter.
	FlatEnd Kind = iota
	// TSlot is a slotting cutter whose head is wider than its shaft.
	TSlot
	// VBit is an engraving cutter whose cutting width grows with depth.
	VBit
)

var kindNames = map[Kind]string{
	FlatEnd: "flat",
	TSlot:   "tslot",
	VBit:    "vbit",
}

// String returns the kind's short name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name. It accepts the short names and a few common
// spellings.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s)) {
	case "flat", "flatend", "endmill":
		return FlatEnd, nil
	case "tslot", "t":
		return TSlot, nil
	case "vbit", "v", "vee":
		return VBit, nil
	}
	return 0, fmt.Errorf("tool: unknown kind %q (want flat, tslot or vbit)", s)
}

// Tool is a cutter and how it is driven.
type Tool struct {
	Kind   Kind
	Number int // tool changer slot; 0 means no tool change

	// Diameter is the shaft (cutting) diameter.
	Diameter float64
	// HeadDiameter is the cutting head width of a TSlot cutter.
	HeadDiameter float64
	// Angle is the included angle of a VBit in degrees.
	Angle float64

	DepthPerPass float64
	TotalDepth   float64

	Feed   float64 // lateral cutting feed, mm/min
	Plunge float64 // vertical engagement feed, mm/min
	SafeZ  float64 // traverse height
}

// Default returns the 6 mm flat end mill the command line tools start from.
func Default() Tool {
	return Tool{
		Kind:         FlatEnd,
		Number:       1,
		Diameter:     6,
		DepthPerPass: 1,
		TotalDepth:   5,
		Feed:         500,
		Plunge:       200,
		SafeZ:        5,
	}
}

// CuttingRadius returns the radius of material the tool removes at the given
// depth below the surface (depth >= 0).
func (t Tool) CuttingRadius(depth float64) float64 {
	switch t.Kind {
	case TSlot:
		if t.HeadDiameter > 0 {
			return t.HeadDiameter / 2
		}
	case VBit:
		if t.Angle > 0 && t.Angle < 180 {
			r := math.Abs(depth) * math.Tan(t.Angle*math.Pi/360)
			if t.Diameter > 0 {
				r = math.Min(r, t.Diameter/2)
			}
			return r
		}
	}
	return t.Diameter / 2
}

// PlungeFeed returns the feed for vertical moves. V-bits enter at half the
// plunge rate since their point carries the whole load.
func (t Tool) PlungeFeed() float64 {
	if t.Kind == VBit {
		return t.Plunge / 2
	}
	return t.Plunge
}

// Passes returns the number of depth passes needed to reach TotalDepth. It
// is only meaningful for a tool with positive DepthPerPass.
func (t Tool) Passes() int {
	if t.DepthPerPass <= 0 || t.TotalDepth <= 0 {
		return 0
	}
	return int(math.Ceil(t.TotalDepth/t.DepthPerPass - 1e-9))
}

// PassDepth returns the Z of pass p (1-based), never below -TotalDepth.
func (t Tool) PassDepth(p int) float64 {
	return math.Max(-t.DepthPerPass*float64(p), -t.TotalDepth)
}

// String describes the tool for logs.
func (t Tool) String() string {
	switch t.Kind {
	case TSlot:
		return fmt.Sprintf("T%d tslot d=%g head=%g", t.Number, t.Diameter, t.HeadDiameter)
	case VBit:
		return fmt.Sprintf("T%d vbit d=%g angle=%g", t.Number, t.Diameter, t.Angle)
	}
	return fmt.Sprintf("T%d flat d=%g", t.Number, t.Diameter)
}
