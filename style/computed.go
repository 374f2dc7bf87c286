package style

// ComputedValues holds the resolved value of every supported property for
// one element or anonymous box. Values are shared by pointer between boxes
// and must not be modified once returned by Cascade.
type ComputedValues struct {
	Display         Display
	Color           Color
	BackgroundColor Color

	FontSize   float64 // px
	FontWeight int
	FontStyle  string
	FontFamily string
	LineHeight Length
	TextAlign  string
	WhiteSpace string

	// Four-sided properties are indexed by Side.
	Margin      [4]Length
	Padding     [4]Length
	BorderWidth [4]Length
	BorderStyle [4]string
	BorderColor [4]Color

	Width  Length
	Height Length
}

var initial = ComputedValues{
	Display:         DisplayInline,
	Color:           Black,
	BackgroundColor: Transparent,
	FontSize:        initialFontSize,
	FontWeight:      400,
	FontStyle:       "normal",
	FontFamily:      "serif",
	LineHeight:      NormalLength,
	TextAlign:       "start",
	WhiteSpace:      "normal",
	Margin:          [4]Length{PxLength(0), PxLength(0), PxLength(0), PxLength(0)},
	Padding:         [4]Length{PxLength(0), PxLength(0), PxLength(0), PxLength(0)},
	BorderWidth:     [4]Length{PxLength(borderMedium), PxLength(borderMedium), PxLength(borderMedium), PxLength(borderMedium)},
	BorderStyle:     [4]string{"none", "none", "none", "none"},
	BorderColor:     [4]Color{currentColor, currentColor, currentColor, currentColor},
	Width:           AutoLength,
	Height:          AutoLength,
}

// InitialValues returns a fresh record holding every property's initial
// value, as used for the root element before any rule applies.
func InitialValues() *ComputedValues {
	c := initial
	c.resolve()
	return &c
}

// InheritingFrom returns the style of an anonymous box whose parent has
// the given style: inherited properties are copied, all others are initial.
// A nil parent gives the initial values.
func InheritingFrom(parent *ComputedValues) *ComputedValues {
	c := newInheriting(parent)
	c.resolve()
	return c
}

func newInheriting(parent *ComputedValues) *ComputedValues {
	c := initial
	if parent != nil {
		for _, p := range inheritedLonghands {
			p.copy(&c, parent)
		}
	}
	return &c
}

// resolve turns declared values into computed ones once the cascade is
// done: relative lengths become pixels and currentColor becomes Color.
func (c *ComputedValues) resolve() {
	abs := func(l *Length) {
		switch l.Unit {
		case Em:
			*l = PxLength(l.Value * c.FontSize)
		case Rem:
			*l = PxLength(l.Value * initialFontSize)
		}
	}
	for i := range 4 {
		abs(&c.Margin[i])
		abs(&c.Padding[i])
		abs(&c.BorderWidth[i])
		if s := c.BorderStyle[i]; s == "none" || s == "hidden" {
			c.BorderWidth[i] = PxLength(0)
		}
		if c.BorderColor[i].Current {
			c.BorderColor[i] = c.Color
		}
	}
	abs(&c.Width)
	abs(&c.Height)
	switch c.LineHeight.Unit {
	case Em, Rem:
		abs(&c.LineHeight)
	case Percent:
		c.LineHeight = PxLength(c.FontSize * c.LineHeight.Value / 100)
	}
	if c.BackgroundColor.Current {
		c.BackgroundColor = c.Color
	}
}
