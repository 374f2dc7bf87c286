package style

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is one compiled complex selector with its specificity.
type Selector struct {
	sel         cascadia.Sel
	specificity cascadia.Specificity
}

// CompileSelectors compiles a comma separated selector group. Selectors with
// a pseudo-element are left out since they never match an element.
func CompileSelectors(group string) ([]Selector, error) {
	parsed, err := cascadia.ParseGroupWithPseudoElements(group)
	if err != nil {
		return nil, err
	}
	out := make([]Selector, 0, len(parsed))
	for _, sel := range parsed {
		if sel == nil || sel.PseudoElement() != "" {
			continue
		}
		out = append(out, Selector{sel: sel, specificity: sel.Specificity()})
	}
	return out, nil
}

// Matches reports whether n matches the selector.
func (s Selector) Matches(n *html.Node) bool {
	return s.sel != nil && s.sel.Match(n)
}

// Specificity returns the (id, class, type) specificity of the selector.
func (s Selector) Specificity() cascadia.Specificity { return s.specificity }

// String returns the selector in CSS syntax.
func (s Selector) String() string {
	if s.sel == nil {
		return ""
	}
	return s.sel.String()
}
