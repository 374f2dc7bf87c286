package style

import (
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// component is one top-level component value of a declaration. Functions
// are kept whole, arguments included.
type component struct {
	tt  css.TokenType
	raw string
}

func (c component) ident() (string, bool) {
	if c.tt != css.IdentToken {
		return "", false
	}
	return strings.ToLower(c.raw), true
}

// components splits a declaration value into its component values,
// dropping whitespace and comments.
func components(value string) []component {
	l := css.NewLexer(parse.NewInputString(value))
	var (
		out   []component
		fn    strings.Builder
		depth int
	)
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		if depth > 0 {
			fn.Write(data)
			switch tt {
			case css.FunctionToken, css.LeftParenthesisToken:
				depth++
			case css.RightParenthesisToken:
				depth--
				if depth == 0 {
					out = append(out, component{tt: css.FunctionToken, raw: fn.String()})
					fn.Reset()
				}
			}
			continue
		}
		switch tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		case css.FunctionToken:
			depth = 1
			fn.Write(data)
			continue
		}
		out = append(out, component{tt: tt, raw: string(data)})
	}
	if depth > 0 {
		// unclosed functions are closed at the end of the value
		out = append(out, component{tt: css.FunctionToken, raw: fn.String() + ")"})
	}
	return out
}

// splitDimension splits "12.5px" into 12.5 and "px".
func splitDimension(s string) (float64, string, bool) {
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c == '.', c == '+', c == '-':
			i++
			continue
		case (c == 'e' || c == 'E') && i > 0 && i+1 < len(s):
			next := s[i+1]
			if next >= '0' && next <= '9' {
				i++
				continue
			}
			if (next == '+' || next == '-') && i+2 < len(s) && s[i+2] >= '0' && s[i+2] <= '9' {
				i += 2
				continue
			}
		}
		break
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", false
	}
	return v, strings.ToLower(s[i:]), true
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
