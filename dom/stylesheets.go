package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StyleSources returns the text of every <style> element that applies to a
// screen rendering, in document order.
func StyleSources(doc *html.Node) []string {
	var out []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Style || strings.EqualFold(n.Data, "style")) {
			typ := strings.ToLower(strings.TrimSpace(GetAttr(n, "type")))
			if (typ == "" || typ == "text/css") && MediaMatches(GetAttr(n, "media")) {
				if css := TextContent(n); strings.TrimSpace(css) != "" {
					out = append(out, css)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	if doc != nil {
		collect(doc)
	}
	return out
}

// MediaMatches reports whether a media query list applies to screen output.
// Media features are not evaluated: no viewport exists at this stage, so a
// query is kept when its media type fits.
func MediaMatches(prelude string) bool {
	if strings.TrimSpace(prelude) == "" {
		return true
	}
	for _, raw := range strings.Split(prelude, ",") {
		query := strings.ToLower(strings.TrimSpace(raw))
		if query == "" {
			continue
		}
		negated := false
		parts := strings.Fields(query)
		switch parts[0] {
		case "not":
			negated = true
			parts = parts[1:]
		case "only":
			parts = parts[1:]
		}
		mediaType := "all"
		if len(parts) > 0 && !strings.HasPrefix(parts[0], "(") {
			mediaType = parts[0]
		}
		screen := false
		switch mediaType {
		case "all", "screen":
			screen = true
		}
		if screen != negated {
			return true
		}
	}
	return false
}
