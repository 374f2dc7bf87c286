package style

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an sRGB color with alpha. Current marks a declared currentColor;
// computed values never carry it.
type Color struct {
	R, G, B, A uint8
	Current    bool
}

var (
	Black        = Color{A: 255}
	Transparent  = Color{}
	currentColor = Color{Current: true}
)

// Hex renders the color as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.Current {
		return "currentcolor"
	}
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

func parseHexColor(value string) (Color, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, false
	}
	channel := func(s string) (uint8, bool) {
		v, err := strconv.ParseUint(s, 16, 8)
		return uint8(v), err == nil
	}
	r, okR := channel(hex[0:2])
	g, okG := channel(hex[2:4])
	b, okB := channel(hex[4:6])
	if !okR || !okG || !okB {
		return Color{}, false
	}
	a := uint8(255)
	if len(hex) == 8 {
		v, ok := channel(hex[6:8])
		if !ok {
			return Color{}, false
		}
		a = v
	}
	return Color{R: r, G: g, B: b, A: a}, true
}

func parseShorthandHex(value string) (Color, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(hex) {
	case 3, 4:
		exp := make([]byte, 0, 8)
		for i := 0; i < len(hex); i++ {
			exp = append(exp, hex[i], hex[i])
		}
		return parseHexColor(string(exp))
	case 6, 8:
		return parseHexColor(hex)
	default:
		return Color{}, false
	}
}

// parseColor parses a CSS color value. ok is false for anything that is not
// a color.
func parseColor(input string) (Color, bool) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "":
		return Color{}, false
	case "transparent":
		return Transparent, true
	case "currentcolor":
		return currentColor, true
	}
	if strings.HasPrefix(s, "#") {
		return parseShorthandHex(s)
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunctional(s)
	}
	if col, ok := namedColors[s]; ok {
		return col, true
	}
	return Color{}, false
}

func parseRGBFunctional(expr string) (Color, bool) {
	open := strings.IndexByte(expr, '(')
	close := strings.LastIndexByte(expr, ')')
	if open < 0 || close <= open+1 {
		return Color{}, false
	}
	inner := expr[open+1 : close]
	var parts []string
	if strings.Contains(inner, ",") {
		parts = strings.Split(inner, ",")
	} else {
		// space separated syntax: rgb(1 2 3 / 50%)
		inner = strings.Replace(inner, "/", " ", 1)
		parts = strings.Fields(inner)
	}
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, false
	}
	toByte := func(component string, limit float64) (uint8, bool) {
		component = strings.TrimSpace(component)
		scale := 255 / limit
		if strings.HasSuffix(component, "%") {
			component = strings.TrimSuffix(component, "%")
			scale = 255. / 100.
		}
		value, err := strconv.ParseFloat(component, 64)
		if err != nil {
			return 0, false
		}
		value *= scale
		if value < 0 {
			value = 0
		} else if value > 255 {
			value = 255
		}
		return uint8(value + 0.5), true
	}
	var out Color
	var ok [4]bool
	out.R, ok[0] = toByte(parts[0], 255)
	out.G, ok[1] = toByte(parts[1], 255)
	out.B, ok[2] = toByte(parts[2], 255)
	out.A, ok[3] = 255, true
	if len(parts) == 4 {
		out.A, ok[3] = toByte(parts[3], 1)
	}
	for _, v := range ok {
		if !v {
			return Color{}, false
		}
	}
	return out, true
}

var namedColors = map[string]Color{
	"black":   {0, 0, 0, 255, false},
	"silver":  {192, 192, 192, 255, false},
	"gray":    {128, 128, 128, 255, false},
	"grey":    {128, 128, 128, 255, false},
	"white":   {255, 255, 255, 255, false},
	"maroon":  {128, 0, 0, 255, false},
	"red":     {255, 0, 0, 255, false},
	"purple":  {128, 0, 128, 255, false},
	"fuchsia": {255, 0, 255, 255, false},
	"magenta": {255, 0, 255, 255, false},
	"green":   {0, 128, 0, 255, false},
	"lime":    {0, 255, 0, 255, false},
	"olive":   {128, 128, 0, 255, false},
	"yellow":  {255, 255, 0, 255, false},
	"navy":    {0, 0, 128, 255, false},
	"blue":    {0, 0, 255, 255, false},
	"teal":    {0, 128, 128, 255, false},
	"aqua":    {0, 255, 255, 255, false},
	"cyan":    {0, 255, 255, 255, false},
	"orange":  {255, 165, 0, 255, false},
	"pink":    {255, 192, 203, 255, false},
	"brown":   {165, 42, 42, 255, false},
	"gold":    {255, 215, 0, 255, false},
	"indigo":  {75, 0, 130, 255, false},
	"violet":  {238, 130, 238, 255, false},
	"crimson": {220, 20, 60, 255, false},
	"coral":   {255, 127, 80, 255, false},
	"salmon":  {250, 128, 114, 255, false},
	"khaki":   {240, 230, 140, 255, false},
	"beige":   {245, 245, 220, 255, false},
	"ivory":   {255, 255, 240, 255, false},
	"tomato":  {255, 99, 71, 255, false},
	"orchid":  {218, 112, 214, 255, false},
	"plum":    {221, 160, 221, 255, false},
	"tan":     {210, 180, 140, 255, false},
	"wheat":   {245, 222, 179, 255, false},

	"darkgray":   {169, 169, 169, 255, false},
	"darkgrey":   {169, 169, 169, 255, false},
	"lightgray":  {211, 211, 211, 255, false},
	"lightgrey":  {211, 211, 211, 255, false},
	"dimgray":    {105, 105, 105, 255, false},
	"dimgrey":    {105, 105, 105, 255, false},
	"darkred":    {139, 0, 0, 255, false},
	"darkblue":   {0, 0, 139, 255, false},
	"darkgreen":  {0, 100, 0, 255, false},
	"lightblue":  {173, 216, 230, 255, false},
	"lightgreen": {144, 238, 144, 255, false},
	"skyblue":    {135, 206, 235, 255, false},
	"steelblue":  {70, 130, 180, 255, false},
	"royalblue":  {65, 105, 225, 255, false},
	"whitesmoke": {245, 245, 245, 255, false},
	"gainsboro":  {220, 220, 220, 255, false},
}
