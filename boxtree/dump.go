package boxtree

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"flowbox/style"
)

// Dump writes an indented outline of the tree, one box per line.
func Dump(w io.Writer, root *BoxTreeRoot) error {
	d := &dumper{w: w}
	d.line(0, "BlockFormattingContext")
	if root != nil {
		d.container(1, root.Contents)
	}
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) line(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *dumper) container(depth int, c BlockContainer) {
	switch c := c.(type) {
	case BlockLevels:
		for _, b := range c {
			d.block(depth, b)
		}
	case InlineFormattingContext:
		d.line(depth, "InlineFormattingContext")
		for _, in := range c {
			d.inline(depth+1, in)
		}
	}
}

func (d *dumper) block(depth int, b BlockLevel) {
	switch b := b.(type) {
	case *BlockBox:
		if b.Anonymous {
			d.line(depth, "BlockBox (anonymous)")
		} else {
			d.line(depth, "BlockBox <%s>", b.Tag)
		}
		d.container(depth+1, b.Contents)
	}
}

func (d *dumper) inline(depth int, in InlineLevel) {
	switch in := in.(type) {
	case *TextRun:
		d.line(depth, "Text %s", strconv.Quote(in.Text))
	case *InlineBox:
		d.line(depth, "InlineBox <%s>", in.Tag)
		for _, c := range in.Children {
			d.inline(depth+1, c)
		}
	}
}

type jsonContainer struct {
	Blocks  []jsonBox `json:"blocks,omitempty"`
	Inlines []jsonBox `json:"inlines,omitempty"`
}

type jsonBox struct {
	Type      string         `json:"type"`
	Tag       string         `json:"tag,omitempty"`
	Anonymous bool           `json:"anonymous,omitempty"`
	Text      string         `json:"text,omitempty"`
	Style     *jsonStyle     `json:"style,omitempty"`
	Contents  *jsonContainer `json:"contents,omitempty"`
	Children  []jsonBox      `json:"children,omitempty"`
}

type jsonStyle struct {
	Display         string    `json:"display"`
	Color           string    `json:"color"`
	BackgroundColor string    `json:"background-color"`
	FontSize        float64   `json:"font-size"`
	FontWeight      int       `json:"font-weight"`
	FontStyle       string    `json:"font-style"`
	FontFamily      string    `json:"font-family"`
	LineHeight      string    `json:"line-height"`
	TextAlign       string    `json:"text-align"`
	WhiteSpace      string    `json:"white-space"`
	Margin          [4]string `json:"margin"`
	Padding         [4]string `json:"padding"`
	BorderWidth     [4]string `json:"border-width"`
	BorderStyle     [4]string `json:"border-style"`
	BorderColor     [4]string `json:"border-color"`
	Width           string    `json:"width"`
	Height          string    `json:"height"`
}

// MarshalJSON encodes the tree with every box's computed style.
func (r *BlockFormattingContext) MarshalJSON() ([]byte, error) {
	out := struct {
		Type     string         `json:"type"`
		Contents *jsonContainer `json:"contents"`
	}{Type: "block-formatting-context", Contents: encodeContainer(r.Contents)}
	return json.Marshal(out)
}

func encodeContainer(c BlockContainer) *jsonContainer {
	out := &jsonContainer{}
	switch c := c.(type) {
	case BlockLevels:
		out.Blocks = make([]jsonBox, 0, len(c))
		for _, b := range c {
			if bb, ok := b.(*BlockBox); ok {
				out.Blocks = append(out.Blocks, jsonBox{
					Type:      "block",
					Tag:       bb.Tag,
					Anonymous: bb.Anonymous,
					Style:     encodeStyle(bb.Style),
					Contents:  encodeContainer(bb.Contents),
				})
			}
		}
	case InlineFormattingContext:
		out.Inlines = encodeInlines(c)
	}
	return out
}

func encodeInlines(list []InlineLevel) []jsonBox {
	out := make([]jsonBox, 0, len(list))
	for _, in := range list {
		switch in := in.(type) {
		case *TextRun:
			out = append(out, jsonBox{Type: "text", Text: in.Text})
		case *InlineBox:
			out = append(out, jsonBox{
				Type:     "inline",
				Tag:      in.Tag,
				Style:    encodeStyle(in.Style),
				Children: encodeInlines(in.Children),
			})
		}
	}
	return out
}

func encodeStyle(cv *style.ComputedValues) *jsonStyle {
	if cv == nil {
		return nil
	}
	s := &jsonStyle{
		Display:         cv.Display.String(),
		Color:           cv.Color.Hex(),
		BackgroundColor: cv.BackgroundColor.Hex(),
		FontSize:        cv.FontSize,
		FontWeight:      cv.FontWeight,
		FontStyle:       cv.FontStyle,
		FontFamily:      cv.FontFamily,
		LineHeight:      cv.LineHeight.String(),
		TextAlign:       cv.TextAlign,
		WhiteSpace:      cv.WhiteSpace,
		BorderStyle:     cv.BorderStyle,
		Width:           cv.Width.String(),
		Height:          cv.Height.String(),
	}
	for i := range 4 {
		s.Margin[i] = cv.Margin[i].String()
		s.Padding[i] = cv.Padding[i].String()
		s.BorderWidth[i] = cv.BorderWidth[i].String()
		s.BorderColor[i] = cv.BorderColor[i].Hex()
	}
	return s
}
