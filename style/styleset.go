package style

import (
	"fmt"
	"sort"
	"strings"

	cssast "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"flowbox/dom"
)

// rule is one selector with its declarations. Rules that come from the same
// selector group share the declaration slice.
type rule struct {
	selector     Selector
	declarations []Declaration
}

// StyleSet is an ordered list of rules, sorted by ascending specificity with
// source order kept among equal specificities. It is read-only once built.
type StyleSet struct {
	rules []rule
}

// Len returns the number of rules in the set.
func (s *StyleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// cascadeInto applies the declarations of every rule matching n, in order.
func (s *StyleSet) cascadeInto(n *html.Node, computed, inherited *ComputedValues) {
	if s == nil {
		return
	}
	for _, r := range s.rules {
		if !r.selector.Matches(n) {
			continue
		}
		for _, d := range r.declarations {
			d.cascadeInto(computed, inherited)
		}
	}
}

type options struct {
	log *zap.Logger
}

// Option configures a StyleSetBuilder.
type Option func(*options)

// WithLogger sets the logger used to report dropped rules and declarations.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// StyleSetBuilder accumulates rules from stylesheet sources.
type StyleSetBuilder struct {
	log   *zap.Logger
	rules []rule
	errs  error
}

// NewStyleSetBuilder returns an empty builder.
func NewStyleSetBuilder(opts ...Option) *StyleSetBuilder {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return &StyleSetBuilder{log: o.log.Named("styleset")}
}

// AddStylesheet parses css and appends its rules. Rules with an invalid
// selector and declarations with an unknown property or invalid value are
// dropped; the rest of the sheet still applies.
func (b *StyleSetBuilder) AddStylesheet(src string) {
	if strings.TrimSpace(src) == "" {
		return
	}
	b.addStatements(splitStatements(lexTokens(src)))
}

func (b *StyleSetBuilder) addStatements(list []statement) {
	for _, st := range list {
		switch {
		case st.atKeyword() != "":
			b.addAtRule(st)
		case st.stray:
			b.drop(fmt.Errorf("unexpected } in %q", abbreviate(st.String())))
		case !st.hasBlock:
			b.drop(fmt.Errorf("statement %q has no block", abbreviate(st.String())))
		default:
			b.addRule(st)
		}
	}
}

func (b *StyleSetBuilder) addAtRule(st statement) {
	switch name := st.atKeyword(); name {
	case "@media":
		if dom.MediaMatches(text(st.prelude[1:])) {
			b.addStatements(splitStatements(st.block))
		}
	case "@supports":
		b.addStatements(splitStatements(st.block))
	default:
		b.log.Debug("skipping at-rule", zap.String("name", name))
	}
}

func (b *StyleSetBuilder) addRule(st statement) {
	group := strings.TrimSpace(text(st.prelude))
	if group == "" {
		b.drop(fmt.Errorf("rule %q has no selector", abbreviate(st.String())))
		return
	}
	selectors, err := CompileSelectors(group)
	if err != nil {
		b.drop(fmt.Errorf("selector %q: %w", group, err))
		return
	}
	parsed, err := parser.ParseDeclarations(declarationBlock(st.block))
	if err != nil {
		b.drop(fmt.Errorf("rule %q: %w", abbreviate(st.String()), err))
		return
	}
	decls := b.declarations(parsed)
	if len(selectors) == 0 || len(decls) == 0 {
		return
	}
	for _, sel := range selectors {
		b.rules = append(b.rules, rule{selector: sel, declarations: decls})
	}
}

func (b *StyleSetBuilder) declarations(list []*cssast.Declaration) []Declaration {
	var out []Declaration
	for _, d := range list {
		if d == nil {
			continue
		}
		parsed, err := ParseDeclaration(d.Property, d.Value)
		if err != nil {
			b.drop(err)
			continue
		}
		out = append(out, parsed...)
	}
	return out
}

func (b *StyleSetBuilder) drop(err error, fields ...zap.Field) {
	b.log.Debug("dropped", append(fields, zap.Error(err))...)
	b.errs = multierr.Append(b.errs, err)
}

// Err returns every problem found so far, combined. Problems never stop the
// build.
func (b *StyleSetBuilder) Err() error { return b.errs }

// Finish sorts the rules by specificity, keeping source order among equal
// ones, and returns the finished set.
func (b *StyleSetBuilder) Finish() *StyleSet {
	rules := b.rules
	b.rules = nil
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].selector.specificity.Less(rules[j].selector.specificity)
	})
	return &StyleSet{rules: rules}
}

// BuildStyleSet builds a set from sources in order.
func BuildStyleSet(sources []string, opts ...Option) *StyleSet {
	b := NewStyleSetBuilder(opts...)
	for _, src := range sources {
		b.AddStylesheet(src)
	}
	return b.Finish()
}

type token struct {
	tt   css.TokenType
	data string
}

// lexTokens tokenizes src, dropping comments.
func lexTokens(src string) []token {
	l := css.NewLexer(parse.NewInputString(src))
	var out []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return out
		case css.CommentToken:
			continue
		}
		out = append(out, token{tt: tt, data: string(data)})
	}
}

func text(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.data)
	}
	return b.String()
}

// statement is one entry of a rule list: a block rule, a statement ended by
// a semicolon, or a closing brace with no opening one.
type statement struct {
	prelude  []token
	block    []token // between the braces, without them
	hasBlock bool
	stray    bool
}

// atKeyword returns the lowercased at-keyword starting the statement, or ""
// when it is not an at-rule.
func (s statement) atKeyword() string {
	if len(s.prelude) == 0 || s.prelude[0].tt != css.AtKeywordToken {
		return ""
	}
	return strings.ToLower(s.prelude[0].data)
}

func (s statement) String() string {
	head := strings.TrimSpace(text(s.prelude))
	switch {
	case s.hasBlock:
		return strings.TrimSpace(head + " {" + text(s.block) + "}")
	case s.stray:
		return strings.TrimSpace(head + " }")
	default:
		return head + ";"
	}
}

// splitStatements cuts a rule list into statements. The douceur parser
// never returns on a semicolon where it expects a rule, so only whole block
// rules are ever handed to it.
func splitStatements(toks []token) []statement {
	var (
		out   []statement
		cur   statement
		depth int
		open  int
	)
	flush := func() {
		out = append(out, cur)
		cur = statement{}
	}
	for i, t := range toks {
		if depth > 0 {
			switch t.tt {
			case css.LeftBraceToken:
				depth++
			case css.RightBraceToken:
				depth--
				if depth == 0 {
					cur.block = toks[open:i]
					flush()
				}
			}
			continue
		}
		switch t.tt {
		case css.LeftBraceToken:
			depth, open, cur.hasBlock = 1, i+1, true
		case css.SemicolonToken:
			flush()
		case css.RightBraceToken:
			cur.stray = true
			flush()
		case css.WhitespaceToken:
			if len(cur.prelude) > 0 {
				cur.prelude = append(cur.prelude, t)
			}
		default:
			cur.prelude = append(cur.prelude, t)
		}
	}
	switch {
	case depth > 0:
		// unclosed blocks are closed at the end of the sheet
		cur.block = toks[open:]
		flush()
	case len(cur.prelude) > 0:
		flush()
	}
	return out
}

// declarationBlock renders the body of a rule for the declaration parser,
// leaving out empty declarations, which it rejects.
func declarationBlock(block []token) string {
	var b strings.Builder
	b.WriteByte('{')
	empty := true
	for _, t := range block {
		switch t.tt {
		case css.WhitespaceToken:
		case css.SemicolonToken:
			if empty {
				continue
			}
			empty = true
		default:
			empty = false
		}
		b.WriteString(t.data)
	}
	b.WriteByte('}')
	return b.String()
}

func abbreviate(s string) string {
	const limit = 40
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
