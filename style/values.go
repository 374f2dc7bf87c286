package style

import (
	"fmt"
	"strconv"
)

// DisplayOutside is the outer display type of a box.
type DisplayOutside uint8

const (
	OutsideInline DisplayOutside = iota
	OutsideBlock
)

func (o DisplayOutside) String() string {
	switch o {
	case OutsideInline:
		return "inline"
	case OutsideBlock:
		return "block"
	}
	return "outside(" + strconv.Itoa(int(o)) + ")"
}

// DisplayInside is the inner display type of a box. Only flow layout exists.
type DisplayInside uint8

const (
	InsideFlow DisplayInside = iota
)

func (i DisplayInside) String() string {
	if i == InsideFlow {
		return "flow"
	}
	return "inside(" + strconv.Itoa(int(i)) + ")"
}

// Display is the computed value of the display property.
// When None is set, Outside and Inside are meaningless.
type Display struct {
	None    bool
	Outside DisplayOutside
	Inside  DisplayInside
}

var (
	DisplayNone   = Display{None: true}
	DisplayBlock  = Display{Outside: OutsideBlock, Inside: InsideFlow}
	DisplayInline = Display{Outside: OutsideInline, Inside: InsideFlow}
)

func (d Display) String() string {
	if d.None {
		return "none"
	}
	return d.Outside.String() + " " + d.Inside.String()
}

// Unit is the unit of a Length.
type Unit uint8

const (
	Px Unit = iota
	Percent
	Auto
	Normal
	// Number is a unitless factor, only used by line-height.
	Number
	// Em and Rem only appear in declared values; computed values never
	// carry them.
	Em
	Rem
)

// Length is a dimension with its unit. For Auto and Normal the value is 0.
type Length struct {
	Value float64
	Unit  Unit
}

// PxLength returns a length in pixels.
func PxLength(v float64) Length { return Length{Value: v, Unit: Px} }

var (
	AutoLength   = Length{Unit: Auto}
	NormalLength = Length{Unit: Normal}
)

func (l Length) String() string {
	v := strconv.FormatFloat(l.Value, 'f', -1, 64)
	switch l.Unit {
	case Px:
		return v + "px"
	case Percent:
		return v + "%"
	case Auto:
		return "auto"
	case Normal:
		return "normal"
	case Number:
		return v
	case Em:
		return v + "em"
	case Rem:
		return v + "rem"
	}
	return fmt.Sprintf("%s(unit %d)", v, l.Unit)
}

// Side indexes the four-sided properties.
type Side int

const (
	Top Side = iota
	Right
	Bottom
	Left
)

var sideNames = [4]string{"top", "right", "bottom", "left"}

func (s Side) String() string { return sideNames[s] }

// Border width keywords, in px.
const (
	borderThin   = 1
	borderMedium = 3
	borderThick  = 5
)

// Font size of the initial "medium" keyword, in px.
const initialFontSize = 16

var fontSizeKeywords = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    initialFontSize,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
}

// Absolute units, in px per unit.
var absoluteUnits = map[string]float64{
	"px": 1,
	"pt": 96. / 72.,
	"pc": 16,
	"in": 96,
	"cm": 96. / 2.54,
	"mm": 96. / 25.4,
	"q":  96. / 101.6,
}
