package boxtree

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"flowbox/dom"
	"flowbox/style"
)

// builder walks the children of one element. The walk is the same for every
// container; what happens when a child block completes is left to accept.
type builder struct {
	*config
	// style of the element owning the container; children cascade from it
	// and anonymous blocks inherit from it
	style   *style.ComputedValues
	inlines []InlineLevel
	accept  blockAcceptor
}

type blockAcceptor interface {
	acceptBlock(b *builder, block BlockLevel)
}

// blockMode collects the boxes of a block container, wrapping pending
// inline content in an anonymous block before each new block.
type blockMode struct {
	blocks []BlockLevel
}

func (m *blockMode) acceptBlock(b *builder, block BlockLevel) {
	if len(b.inlines) > 0 {
		m.blocks = append(m.blocks, anonymousBlock(b.style, b.takeInlines()))
	}
	m.blocks = append(m.blocks, block)
}

func (m *blockMode) finish(b *builder) BlockContainer {
	if len(b.inlines) > 0 {
		if len(m.blocks) == 0 {
			return InlineFormattingContext(b.takeInlines())
		}
		m.blocks = append(m.blocks, anonymousBlock(b.style, b.takeInlines()))
	}
	return BlockLevels(m.blocks)
}

// fragment is the inline content of an inline element seen before one of
// its block descendants.
type fragment struct {
	inlines []InlineLevel
	block   BlockLevel
}

// inlineMode gathers an inline element's content, splitting it at every
// block descendant. The enclosing builder turns the fragments into boxes.
type inlineMode struct {
	fragments []fragment
}

func (m *inlineMode) acceptBlock(b *builder, block BlockLevel) {
	m.fragments = append(m.fragments, fragment{inlines: b.takeInlines(), block: block})
}

func (b *builder) nested(s *style.ComputedValues, accept blockAcceptor) *builder {
	return &builder{config: b.config, style: s, accept: accept}
}

func (b *builder) takeInlines() []InlineLevel {
	out := b.inlines
	b.inlines = nil
	return out
}

func (b *builder) pushChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch dom.KindOf(c) {
		case dom.Element:
			b.pushElement(c, b.cascade(b.author, c, b.style))
		case dom.Text:
			b.pushText(c.Data)
		}
	}
}

func (b *builder) pushText(text string) {
	if last := len(b.inlines) - 1; last >= 0 {
		if run, ok := b.inlines[last].(*TextRun); ok {
			run.Text += text
			return
		}
	}
	b.inlines = append(b.inlines, &TextRun{Text: text})
}

func (b *builder) pushElement(n *html.Node, s *style.ComputedValues) {
	d := s.Display
	switch {
	case d.None:
		b.log.Debug("skipping subtree", zap.String("element", n.Data))
	case d.Outside == style.OutsideBlock && d.Inside == style.InsideFlow:
		mode := &blockMode{}
		child := b.nested(s, mode)
		child.pushChildren(n)
		b.accept.acceptBlock(b, &BlockBox{Tag: n.Data, Style: s, Contents: mode.finish(child)})
	case d.Outside == style.OutsideInline && d.Inside == style.InsideFlow:
		mode := &inlineMode{}
		child := b.nested(s, mode)
		child.pushChildren(n)
		for _, f := range mode.fragments {
			b.pushInlineBox(n, s, f.inlines)
			b.accept.acceptBlock(b, f.block)
		}
		b.pushInlineBox(n, s, child.takeInlines())
	default:
		panic(fmt.Sprintf("boxtree: unsupported display %q on <%s>", d, n.Data))
	}
}

func (b *builder) pushInlineBox(n *html.Node, s *style.ComputedValues, children []InlineLevel) {
	if len(children) == 0 {
		return
	}
	b.inlines = append(b.inlines, &InlineBox{Tag: n.Data, Style: s, Children: children})
}
