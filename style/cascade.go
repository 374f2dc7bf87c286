package style

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"flowbox/dom"
)

//go:embed user_agent.css
var userAgentCSS string

var userAgent = sync.OnceValue(func() *StyleSet {
	return BuildStyleSet([]string{userAgentCSS})
})

// UserAgent returns the built-in style set applied before author rules.
func UserAgent() *StyleSet { return userAgent() }

// Cascade computes the style of element n. parent is the computed style of
// the parent element, or nil at the root. author may be nil.
//
// Declarations apply in this order, later ones winning: built-in rules,
// author rules, then the element's style attribute.
func Cascade(author *StyleSet, n *html.Node, parent *ComputedValues) *ComputedValues {
	if n == nil {
		panic("style: cascade on a nil node")
	}
	if n.Type != html.ElementNode {
		panic(fmt.Sprintf("style: cascade on a %s node", dom.KindOf(n)))
	}
	inherited := parent
	if inherited == nil {
		inherited = &initial
	}
	computed := newInheriting(parent)
	userAgent().cascadeInto(n, computed, inherited)
	author.cascadeInto(n, computed, inherited)
	for _, d := range styleAttribute(n) {
		d.cascadeInto(computed, inherited)
	}
	computed.resolve()
	return computed
}

// styleAttribute parses the declarations of the style attribute. Invalid
// declarations are skipped silently.
func styleAttribute(n *html.Node) []Declaration {
	inline := strings.TrimSpace(dom.GetAttr(n, "style"))
	if inline == "" {
		return nil
	}
	var out []Declaration
	add := func(name, value string) {
		if decls, err := ParseDeclaration(name, value); err == nil {
			out = append(out, decls...)
		}
	}
	if !strings.HasSuffix(inline, ";") {
		// the last declaration needs a terminator to keep its value
		inline += ";"
	}
	if decls, err := parser.ParseDeclarations(inline); err == nil {
		for _, d := range decls {
			if d != nil {
				add(d.Property, d.Value)
			}
		}
		return out
	}
	for _, part := range strings.Split(inline, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		if strings.HasSuffix(strings.ToLower(value), "!important") {
			value = strings.TrimSpace(value[:len(value)-len("!important")])
		}
		add(kv[0], value)
	}
	return out
}
