package boxtree

import (
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"flowbox/dom"
	"flowbox/style"
)

// ErrNoRootElement is returned when a document has no element to build from.
var ErrNoRootElement = errors.New("document has no root element")

// Cascader computes the style of an element from its parent's style.
type Cascader func(author *style.StyleSet, n *html.Node, parent *style.ComputedValues) *style.ComputedValues

type config struct {
	log      *zap.Logger
	author   *style.StyleSet
	cascade  Cascader
	extraCSS []string
	warn     func(error)
}

// Option configures Build and FromDocument.
type Option func(*config)

// WithLogger sets the logger. Stylesheet problems are logged at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithCascader replaces style.Cascade, for instance to observe which
// elements get styled.
func WithCascader(fn Cascader) Option {
	return func(c *config) { c.cascade = fn }
}

// WithExtraCSS adds author stylesheets applied after the ones found in the
// document. Only FromDocument uses it.
func WithExtraCSS(sources ...string) Option {
	return func(c *config) { c.extraCSS = append(c.extraCSS, sources...) }
}

// WithWarnings registers a function called once for every stylesheet
// problem FromDocument runs into.
func WithWarnings(fn func(error)) Option {
	return func(c *config) { c.warn = fn }
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("boxtree")
	if c.cascade == nil {
		c.cascade = style.Cascade
	}
	return c
}

// Build generates the box tree of root styled with author, which may be nil.
// It panics if an element resolves to a display value other than none,
// block flow or inline flow.
func Build(author *style.StyleSet, root *html.Node, opts ...Option) *BoxTreeRoot {
	c := newConfig(opts)
	c.author = author
	return build(c, root)
}

func build(c *config, root *html.Node) *BoxTreeRoot {
	rootStyle := c.cascade(c.author, root, nil)
	// the root container has no element: its anonymous blocks get initial
	// values
	mode := &blockMode{}
	b := &builder{config: c, style: style.InitialValues(), accept: mode}
	b.pushElement(root, rootStyle)
	return &BoxTreeRoot{Contents: mode.finish(b)}
}

// FromDocument builds the box tree of a parsed document, using the <style>
// elements it contains as author stylesheets.
func FromDocument(doc *html.Node, opts ...Option) (*BoxTreeRoot, error) {
	c := newConfig(opts)
	root := dom.RootElement(doc)
	if root == nil {
		return nil, ErrNoRootElement
	}
	sb := style.NewStyleSetBuilder(style.WithLogger(c.log))
	sources := append(dom.StyleSources(doc), c.extraCSS...)
	for _, src := range sources {
		sb.AddStylesheet(src)
	}
	if err := sb.Err(); err != nil {
		c.log.Debug("stylesheet problems", zap.Int("sources", len(sources)), zap.Error(err))
		if c.warn != nil {
			for _, e := range multierr.Errors(err) {
				c.warn(e)
			}
		}
	}
	c.author = sb.Finish()
	return build(c, root), nil
}
