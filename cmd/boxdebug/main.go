// Command boxdebug prints the box tree of a document, and optionally the
// computed style of every element, to help track down stylesheet issues.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/html"

	"flowbox/boxtree"
	"flowbox/dom"
	"flowbox/internal/config"
	"flowbox/internal/observability"
	"flowbox/internal/server"
	"flowbox/style"
)

type options struct {
	css      []string
	styles   bool
	json     bool
	logLevel string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "boxdebug <file-or-url>",
		Short:         "Print the box tree of an HTML document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := observability.NewLogger(config.LoggerConfig{Level: o.logLevel, Format: "console"}, zapcore.AddSync(cmd.ErrOrStderr()))
			defer log.Sync()
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], o, log)
		},
	}
	cmd.Flags().StringArrayVar(&o.css, "css", nil, "extra author CSS, or @file to read it from a file (repeatable)")
	cmd.Flags().BoolVar(&o.styles, "styles", false, "print the computed style of every element reached by the build")
	cmd.Flags().BoolVar(&o.json, "json", false, "print the box tree as JSON")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "warn", "log level")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 8*time.Second, "timeout when fetching a URL")
	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, src string, o options, log *zap.Logger) error {
	doc, err := load(ctx, src, o.timeout)
	if err != nil {
		return err
	}
	extra, err := readCSS(o.css)
	if err != nil {
		return err
	}

	var elements []styledElement
	opts := []boxtree.Option{
		boxtree.WithLogger(log),
		boxtree.WithExtraCSS(extra...),
		boxtree.WithWarnings(func(err error) {
			fmt.Fprintln(stderr, "warning:", err)
		}),
	}
	if o.styles {
		opts = append(opts, boxtree.WithCascader(func(author *style.StyleSet, n *html.Node, parent *style.ComputedValues) *style.ComputedValues {
			cv := style.Cascade(author, n, parent)
			elements = append(elements, styledElement{node: n, style: cv})
			return cv
		}))
	}
	root, err := boxtree.FromDocument(doc, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	if o.json {
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(stdout, "%s\n", data); err != nil {
			return err
		}
	} else if err := boxtree.Dump(stdout, root); err != nil {
		return err
	}
	if o.styles {
		fmt.Fprintln(stdout)
		for _, e := range elements {
			if _, err := fmt.Fprintln(stdout, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// load reads src from disk, or over HTTP when it looks like a URL.
func load(ctx context.Context, src string, timeout time.Duration) (*html.Node, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		f := server.NewHTTPFetcher(config.FetchConfig{Timeout: timeout, UserAgent: "boxdebug/1.0", MaxBytes: 16 << 20})
		defer f.Close()
		page, err := f.Fetch(ctx, src, nil)
		if err != nil {
			return nil, err
		}
		return dom.Parse(bytes.NewReader(page.Body), page.Header.Get("Content-Type"))
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return dom.Parse(file, "")
}

func readCSS(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if name, ok := strings.CutPrefix(a, "@"); ok {
			data, err := os.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("reading css: %w", err)
			}
			a = string(data)
		}
		out = append(out, a)
	}
	return out, nil
}

type styledElement struct {
	node  *html.Node
	style *style.ComputedValues
}

func (e styledElement) String() string {
	var b strings.Builder
	b.WriteString(e.node.Data)
	if id := dom.GetAttr(e.node, "id"); id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range strings.Fields(dom.GetAttr(e.node, "class")) {
		b.WriteString("." + c)
	}
	s := e.style
	fmt.Fprintf(&b, ": display=%s color=%s background=%s font=%s/%g/%d/%s margin=%s,%s,%s,%s",
		s.Display, s.Color, s.BackgroundColor, s.FontStyle, s.FontSize, s.FontWeight, s.FontFamily,
		s.Margin[0], s.Margin[1], s.Margin[2], s.Margin[3])
	return b.String()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "boxdebug:", err)
		os.Exit(1)
	}
}
