// Package dom is the read-only node view the style and box packages work on.
// Documents come from golang.org/x/net/html; nothing here mutates a tree.
package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Kind classifies a node for the box generation walk.
type Kind int

const (
	Document Kind = iota
	Doctype
	Comment
	ProcessingInstruction
	Text
	Element
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document"
	case Doctype:
		return "doctype"
	case Comment:
		return "comment"
	case ProcessingInstruction:
		return "processing-instruction"
	case Text:
		return "text"
	case Element:
		return "element"
	}
	return "unknown"
}

// KindOf maps an html.Node type onto a Kind. Raw nodes (which the parser
// never produces) are treated like processing instructions: skipped.
func KindOf(n *html.Node) Kind {
	switch n.Type {
	case html.DocumentNode:
		return Document
	case html.DoctypeNode:
		return Doctype
	case html.CommentNode:
		return Comment
	case html.TextNode:
		return Text
	case html.ElementNode:
		return Element
	}
	return ProcessingInstruction
}

// Parse reads an HTML document. contentType is the optional Content-Type
// header value used to pick a decoder for legacy encodings.
func Parse(r io.Reader, contentType string) (*html.Node, error) {
	if strings.TrimSpace(contentType) != "" {
		if cr, err := charset.NewReader(r, contentType); err == nil {
			r = cr
		}
	}
	return html.Parse(r)
}

// ParseString parses an UTF-8 document held in memory.
func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// RootElement returns the document element, or nil when there is none.
func RootElement(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == html.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// GetAttr returns the value of the named attribute, or "".
func GetAttr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// TextContent concatenates the text children of n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
