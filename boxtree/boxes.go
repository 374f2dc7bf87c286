// Package boxtree turns a styled DOM into a tree of block and inline boxes.
//
// The tree only has two kinds of containers: a list of block-level boxes or
// a single inline formatting context, never a mix of both. Inline content
// that ends up next to blocks is wrapped in anonymous block boxes, and
// inline elements that contain blocks are split into fragments around them.
package boxtree

import (
	"flowbox/style"
)

// BoxTreeRoot is the result of a build.
type BoxTreeRoot = BlockFormattingContext

// BlockFormattingContext is the formatting context established by the root.
type BlockFormattingContext struct {
	Contents BlockContainer
}

// BlockContainer is either BlockLevels or InlineFormattingContext.
type BlockContainer interface {
	isBlockContainer()
}

// BlockLevels is a container holding block-level boxes only.
type BlockLevels []BlockLevel

// InlineFormattingContext is a container holding inline-level boxes only.
type InlineFormattingContext []InlineLevel

func (BlockLevels) isBlockContainer()             {}
func (InlineFormattingContext) isBlockContainer() {}

// BlockLevel is a box taking part in a block formatting context. *BlockBox
// is the only implementation.
type BlockLevel interface {
	isBlockLevel()
}

// BlockBox is a block-level box. Anonymous boxes have no element and an
// empty Tag; their style inherits from the enclosing container.
type BlockBox struct {
	Tag       string
	Style     *style.ComputedValues
	Anonymous bool
	Contents  BlockContainer
}

func (*BlockBox) isBlockLevel() {}

// InlineLevel is *TextRun or *InlineBox.
type InlineLevel interface {
	isInlineLevel()
}

// TextRun is a piece of text. Adjacent runs are always merged.
type TextRun struct {
	Text string
}

// InlineBox is an inline element, or one fragment of it when the element
// contains blocks.
type InlineBox struct {
	Tag      string
	Style    *style.ComputedValues
	Children []InlineLevel
}

func (*TextRun) isInlineLevel()   {}
func (*InlineBox) isInlineLevel() {}

func anonymousBlock(parent *style.ComputedValues, inlines []InlineLevel) *BlockBox {
	return &BlockBox{
		Style:     style.InheritingFrom(parent),
		Anonymous: true,
		Contents:  InlineFormattingContext(inlines),
	}
}
