package style

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

var (
	// ErrUnknownProperty marks a declaration for a property this engine
	// does not support.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrInvalidValue marks a declaration whose value does not parse.
	ErrInvalidValue = errors.New("invalid value")
)

type cssWideKeyword uint8

const (
	noKeyword cssWideKeyword = iota
	keywordInherit
	keywordInitial
	keywordUnset
)

var cssWideKeywords = map[string]cssWideKeyword{
	"inherit": keywordInherit,
	"initial": keywordInitial,
	"unset":   keywordUnset,
}

// Declaration is one parsed longhand declaration.
type Declaration struct {
	property *longhand
	keyword  cssWideKeyword
	value    any
}

// Property returns the longhand property name.
func (d Declaration) Property() string { return d.property.name }

func (d Declaration) String() string {
	switch d.keyword {
	case keywordInherit:
		return d.property.name + ": inherit"
	case keywordInitial:
		return d.property.name + ": initial"
	case keywordUnset:
		return d.property.name + ": unset"
	}
	return fmt.Sprintf("%s: %v", d.property.name, d.value)
}

// cascadeInto applies the declaration to computed. inherited is the parent
// style (or the initial values at the root).
func (d Declaration) cascadeInto(computed, inherited *ComputedValues) {
	p := d.property
	switch d.keyword {
	case keywordInherit:
		p.copy(computed, inherited)
	case keywordInitial:
		p.copy(computed, &initial)
	case keywordUnset:
		if p.inherited {
			p.copy(computed, inherited)
		} else {
			p.copy(computed, &initial)
		}
	default:
		p.apply(computed, inherited, d.value)
	}
}

type longhand struct {
	name      string
	inherited bool
	parse     func([]component) (any, error)
	apply     func(c, parent *ComputedValues, v any)
	copy      func(dst, src *ComputedValues)
}

type shorthand struct {
	longhands []string
	expand    func([]component) ([]Declaration, error)
}

var (
	longhands          = map[string]*longhand{}
	shorthands         = map[string]*shorthand{}
	inheritedLonghands []*longhand
)

func register(p *longhand) {
	longhands[p.name] = p
	if p.inherited {
		inheritedLonghands = append(inheritedLonghands, p)
	}
}

func init() {
	register(&longhand{
		name:  "display",
		parse: parseDisplay,
		apply: func(c, _ *ComputedValues, v any) { c.Display = v.(Display) },
		copy:  func(dst, src *ComputedValues) { dst.Display = src.Display },
	})
	register(&longhand{
		name:      "color",
		inherited: true,
		parse:     parseColorValue,
		apply: func(c, parent *ComputedValues, v any) {
			col := v.(Color)
			if col.Current {
				col = parent.Color
			}
			c.Color = col
		},
		copy: func(dst, src *ComputedValues) { dst.Color = src.Color },
	})
	register(colorLonghand("background-color", func(c *ComputedValues) *Color { return &c.BackgroundColor }))
	register(&longhand{
		name:      "font-size",
		inherited: true,
		parse:     parseFontSize,
		apply:     applyFontSize,
		copy:      func(dst, src *ComputedValues) { dst.FontSize = src.FontSize },
	})
	register(&longhand{
		name:      "font-weight",
		inherited: true,
		parse:     parseFontWeight,
		apply:     applyFontWeight,
		copy:      func(dst, src *ComputedValues) { dst.FontWeight = src.FontWeight },
	})
	register(keywordLonghand("font-style", true, func(c *ComputedValues) *string { return &c.FontStyle },
		"normal", "italic", "oblique"))
	register(&longhand{
		name:      "font-family",
		inherited: true,
		parse:     parseFontFamily,
		apply:     func(c, _ *ComputedValues, v any) { c.FontFamily = v.(string) },
		copy:      func(dst, src *ComputedValues) { dst.FontFamily = src.FontFamily },
	})
	register(&longhand{
		name:      "line-height",
		inherited: true,
		parse:     parseLineHeight,
		apply:     func(c, _ *ComputedValues, v any) { c.LineHeight = v.(Length) },
		copy:      func(dst, src *ComputedValues) { dst.LineHeight = src.LineHeight },
	})
	register(keywordLonghand("text-align", true, func(c *ComputedValues) *string { return &c.TextAlign },
		"start", "end", "left", "right", "center", "justify"))
	register(keywordLonghand("white-space", true, func(c *ComputedValues) *string { return &c.WhiteSpace },
		"normal", "pre", "nowrap", "pre-wrap", "pre-line", "break-spaces"))

	for side := Top; side <= Left; side++ {
		side := side
		register(lengthLonghand("margin-"+side.String(), lengthOpts{auto: true, percent: true, negative: true},
			func(c *ComputedValues) *Length { return &c.Margin[side] }))
		register(lengthLonghand("padding-"+side.String(), lengthOpts{percent: true},
			func(c *ComputedValues) *Length { return &c.Padding[side] }))
		register(lengthLonghand("border-"+side.String()+"-width", lengthOpts{borderKeywords: true},
			func(c *ComputedValues) *Length { return &c.BorderWidth[side] }))
		register(keywordLonghand("border-"+side.String()+"-style", false,
			func(c *ComputedValues) *string { return &c.BorderStyle[side] }, borderStyles...))
		register(colorLonghand("border-"+side.String()+"-color",
			func(c *ComputedValues) *Color { return &c.BorderColor[side] }))
	}
	register(lengthLonghand("width", lengthOpts{auto: true, percent: true},
		func(c *ComputedValues) *Length { return &c.Width }))
	register(lengthLonghand("height", lengthOpts{auto: true, percent: true},
		func(c *ComputedValues) *Length { return &c.Height }))

	registerSides("margin", "margin-%s")
	registerSides("padding", "padding-%s")
	registerSides("border-width", "border-%s-width")
	registerSides("border-style", "border-%s-style")
	registerSides("border-color", "border-%s-color")
	for side := Top; side <= Left; side++ {
		registerBorder("border-"+side.String(), side)
	}
	registerBorder("border", Top, Right, Bottom, Left)
}

var borderStyles = []string{"none", "hidden", "dotted", "dashed", "solid", "double", "groove", "ridge", "inset", "outset"}

func invalid(name string, comps []component) error {
	raws := make([]string, len(comps))
	for i, c := range comps {
		raws[i] = c.raw
	}
	return fmt.Errorf("%w for %s: %q", ErrInvalidValue, name, strings.Join(raws, " "))
}

func keywordLonghand(name string, inherited bool, field func(*ComputedValues) *string, allowed ...string) *longhand {
	return &longhand{
		name:      name,
		inherited: inherited,
		parse: func(comps []component) (any, error) {
			if len(comps) == 1 {
				if id, ok := comps[0].ident(); ok {
					for _, a := range allowed {
						if id == a {
							return id, nil
						}
					}
				}
			}
			return nil, invalid(name, comps)
		},
		apply: func(c, _ *ComputedValues, v any) { *field(c) = v.(string) },
		copy:  func(dst, src *ComputedValues) { *field(dst) = *field(src) },
	}
}

func colorLonghand(name string, field func(*ComputedValues) *Color) *longhand {
	return &longhand{
		name:  name,
		parse: parseColorValue,
		apply: func(c, _ *ComputedValues, v any) { *field(c) = v.(Color) },
		copy:  func(dst, src *ComputedValues) { *field(dst) = *field(src) },
	}
}

type lengthOpts struct {
	auto, percent, negative, borderKeywords bool
}

func lengthLonghand(name string, opts lengthOpts, field func(*ComputedValues) *Length) *longhand {
	return &longhand{
		name: name,
		parse: func(comps []component) (any, error) {
			if len(comps) == 1 {
				if l, ok := parseLength(comps[0], opts); ok {
					return l, nil
				}
			}
			return nil, invalid(name, comps)
		},
		apply: func(c, _ *ComputedValues, v any) { *field(c) = v.(Length) },
		copy:  func(dst, src *ComputedValues) { *field(dst) = *field(src) },
	}
}

func parseLength(c component, opts lengthOpts) (Length, bool) {
	switch c.tt {
	case css.IdentToken:
		id, _ := c.ident()
		if opts.auto && id == "auto" {
			return AutoLength, true
		}
		if opts.borderKeywords {
			switch id {
			case "thin":
				return PxLength(borderThin), true
			case "medium":
				return PxLength(borderMedium), true
			case "thick":
				return PxLength(borderThick), true
			}
		}
	case css.NumberToken:
		v, unit, ok := splitDimension(c.raw)
		if ok && unit == "" && v == 0 {
			return PxLength(0), true
		}
	case css.PercentageToken:
		v, _, ok := splitDimension(c.raw)
		if ok && opts.percent && (v >= 0 || opts.negative) {
			return Length{Value: v, Unit: Percent}, true
		}
	case css.DimensionToken:
		v, unit, ok := splitDimension(c.raw)
		if !ok || (v < 0 && !opts.negative) {
			return Length{}, false
		}
		switch unit {
		case "em":
			return Length{Value: v, Unit: Em}, true
		case "rem":
			return Length{Value: v, Unit: Rem}, true
		}
		if factor, known := absoluteUnits[unit]; known {
			return PxLength(v * factor), true
		}
	}
	return Length{}, false
}

func parseDisplay(comps []component) (any, error) {
	var outside, inside string
	for _, c := range comps {
		id, ok := c.ident()
		if !ok {
			return nil, invalid("display", comps)
		}
		switch id {
		case "none":
			if len(comps) == 1 {
				return DisplayNone, nil
			}
			return nil, invalid("display", comps)
		case "block", "inline":
			if outside != "" {
				return nil, invalid("display", comps)
			}
			outside = id
		case "flow":
			if inside != "" {
				return nil, invalid("display", comps)
			}
			inside = id
		default:
			return nil, invalid("display", comps)
		}
	}
	if outside == "block" {
		return DisplayBlock, nil
	}
	return DisplayInline, nil
}

func parseColorValue(comps []component) (any, error) {
	if len(comps) == 1 {
		if col, ok := parseColor(comps[0].raw); ok {
			return col, nil
		}
	}
	return nil, invalid("color", comps)
}

func parseFontSize(comps []component) (any, error) {
	if len(comps) == 1 {
		if id, ok := comps[0].ident(); ok {
			if _, known := fontSizeKeywords[id]; known || id == "smaller" || id == "larger" {
				return id, nil
			}
		}
		if l, ok := parseLength(comps[0], lengthOpts{percent: true}); ok {
			return l, nil
		}
	}
	return nil, invalid("font-size", comps)
}

func applyFontSize(c, parent *ComputedValues, v any) {
	switch v := v.(type) {
	case string:
		switch v {
		case "smaller":
			c.FontSize = parent.FontSize / 1.2
		case "larger":
			c.FontSize = parent.FontSize * 1.2
		default:
			c.FontSize = fontSizeKeywords[v]
		}
	case Length:
		switch v.Unit {
		case Px:
			c.FontSize = v.Value
		case Em:
			c.FontSize = v.Value * parent.FontSize
		case Rem:
			c.FontSize = v.Value * initialFontSize
		case Percent:
			c.FontSize = parent.FontSize * v.Value / 100
		}
	}
}

func parseFontWeight(comps []component) (any, error) {
	if len(comps) == 1 {
		c := comps[0]
		switch id, _ := c.ident(); id {
		case "normal":
			return 400, nil
		case "bold":
			return 700, nil
		case "bolder", "lighter":
			return id, nil
		}
		if c.tt == css.NumberToken {
			v, unit, ok := splitDimension(c.raw)
			if ok && unit == "" && v >= 1 && v <= 1000 {
				return int(v), nil
			}
		}
	}
	return nil, invalid("font-weight", comps)
}

func applyFontWeight(c, parent *ComputedValues, v any) {
	switch v := v.(type) {
	case int:
		c.FontWeight = v
	case string:
		w := parent.FontWeight
		if v == "bolder" {
			switch {
			case w < 350:
				c.FontWeight = 400
			case w < 550:
				c.FontWeight = 700
			default:
				c.FontWeight = 900
			}
			return
		}
		switch {
		case w < 550:
			c.FontWeight = 100
		case w < 750:
			c.FontWeight = 400
		default:
			c.FontWeight = 700
		}
	}
}

func parseFontFamily(comps []component) (any, error) {
	var (
		families []string
		words    []string
	)
	flush := func() bool {
		if len(words) == 0 {
			return false
		}
		families = append(families, strings.Join(words, " "))
		words = words[:0]
		return true
	}
	for _, c := range comps {
		switch c.tt {
		case css.IdentToken:
			words = append(words, c.raw)
		case css.StringToken:
			if len(words) > 0 {
				return nil, invalid("font-family", comps)
			}
			words = append(words, unquote(c.raw))
		case css.CommaToken:
			if !flush() {
				return nil, invalid("font-family", comps)
			}
		default:
			return nil, invalid("font-family", comps)
		}
	}
	if !flush() {
		return nil, invalid("font-family", comps)
	}
	return strings.Join(families, ", "), nil
}

func parseLineHeight(comps []component) (any, error) {
	if len(comps) == 1 {
		c := comps[0]
		if id, _ := c.ident(); id == "normal" {
			return NormalLength, nil
		}
		if c.tt == css.NumberToken {
			if v, unit, ok := splitDimension(c.raw); ok && unit == "" && v >= 0 {
				return Length{Value: v, Unit: Number}, nil
			}
		}
		if l, ok := parseLength(c, lengthOpts{percent: true}); ok {
			return l, nil
		}
	}
	return nil, invalid("line-height", comps)
}

// registerSides registers a 1-to-4 value shorthand such as margin.
func registerSides(name, pattern string) {
	var names [4]string
	for side := Top; side <= Left; side++ {
		names[side] = fmt.Sprintf(pattern, side)
	}
	shorthands[name] = &shorthand{
		longhands: names[:],
		expand: func(comps []component) ([]Declaration, error) {
			if len(comps) == 0 || len(comps) > 4 {
				return nil, invalid(name, comps)
			}
			values := make([]any, len(comps))
			for i, c := range comps {
				v, err := longhands[names[0]].parse([]component{c})
				if err != nil {
					return nil, invalid(name, comps)
				}
				values[i] = v
			}
			var idx [4]int
			switch len(values) {
			case 1:
				idx = [4]int{0, 0, 0, 0}
			case 2:
				idx = [4]int{0, 1, 0, 1}
			case 3:
				idx = [4]int{0, 1, 2, 1}
			case 4:
				idx = [4]int{0, 1, 2, 3}
			}
			out := make([]Declaration, 4)
			for side := range out {
				out[side] = Declaration{property: longhands[names[side]], value: values[idx[side]]}
			}
			return out, nil
		},
	}
}

// registerBorder registers border and border-<side>: width, style and color
// in any order, each at most once, missing ones reset to their initial value.
func registerBorder(name string, sides ...Side) {
	var names []string
	for _, side := range sides {
		names = append(names,
			"border-"+side.String()+"-width",
			"border-"+side.String()+"-style",
			"border-"+side.String()+"-color")
	}
	shorthands[name] = &shorthand{
		longhands: names,
		expand: func(comps []component) ([]Declaration, error) {
			if len(comps) == 0 || len(comps) > 3 {
				return nil, invalid(name, comps)
			}
			var width, style, color any
			for _, c := range comps {
				single := []component{c}
				if v, err := longhands["border-top-width"].parse(single); err == nil && width == nil {
					width = v
				} else if v, err := longhands["border-top-style"].parse(single); err == nil && style == nil {
					style = v
				} else if v, err := parseColorValue(single); err == nil && color == nil {
					color = v
				} else {
					return nil, invalid(name, comps)
				}
			}
			if width == nil {
				width = PxLength(borderMedium)
			}
			if style == nil {
				style = "none"
			}
			if color == nil {
				color = currentColor
			}
			out := make([]Declaration, 0, len(names))
			for i := 0; i < len(names); i += 3 {
				out = append(out,
					Declaration{property: longhands[names[i]], value: width},
					Declaration{property: longhands[names[i+1]], value: style},
					Declaration{property: longhands[names[i+2]], value: color})
			}
			return out, nil
		},
	}
}

// ParseDeclaration parses one declaration into longhand declarations.
// Shorthands expand to all of their longhands.
func ParseDeclaration(name, value string) ([]Declaration, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	comps := components(value)
	if len(comps) == 0 {
		return nil, fmt.Errorf("%w for %s: empty", ErrInvalidValue, name)
	}
	lh, isLonghand := longhands[name]
	sh, isShorthand := shorthands[name]
	if !isLonghand && !isShorthand {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if len(comps) == 1 {
		if id, ok := comps[0].ident(); ok {
			if kw, ok := cssWideKeywords[id]; ok {
				if isLonghand {
					return []Declaration{{property: lh, keyword: kw}}, nil
				}
				out := make([]Declaration, len(sh.longhands))
				for i, n := range sh.longhands {
					out[i] = Declaration{property: longhands[n], keyword: kw}
				}
				return out, nil
			}
		}
	}
	if isLonghand {
		v, err := lh.parse(comps)
		if err != nil {
			return nil, err
		}
		return []Declaration{{property: lh, value: v}}, nil
	}
	return sh.expand(comps)
}
