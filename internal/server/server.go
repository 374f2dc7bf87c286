// Package server exposes the box tree pipeline over HTTP: documents are
// posted or fetched upstream, styled and answered as a JSON box tree.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flowbox/internal/config"
)

const defaultIndexHTML = `<!DOCTYPE html>
<html><body>
<h1>flowbox</h1>
<form action="/fetch" method="get">
<h3>Fetch URL as a box tree</h3>
URL: <input name="url" size="60"><br>
Action: <input name="action"><br>
Get: <input name="get"><br>
<label><input type="checkbox" name="js" value="1"> run scripts</label><br>
<button type="submit">Fetch</button>
</form>
<p>POST an HTML document to /boxes to get its box tree.</p>
</body></html>`

// Document is an upstream page ready to be parsed.
type Document struct {
	URL    string
	Body   []byte
	Header http.Header
}

// Fetcher loads the document at target.
type Fetcher interface {
	Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error)
}

// Config describes server wiring and runtime behaviour.
type Config struct {
	IndexHTML string
	Settings  *config.Config
	Logger    *zap.Logger
	Clock     func() time.Time
	// Fetcher loads pages over plain HTTP. Nil builds one from Settings.Fetch.
	Fetcher Fetcher
	// Browser renders pages with scripts enabled. Nil starts headless
	// Chrome when Settings.JS.Enabled is set; js requests fail otherwise.
	Browser Fetcher
}

// Server exposes the HTTP handlers.
type Server struct {
	cfg      Config
	settings *config.Config
	mux      *http.ServeMux
	handler  http.Handler
	logger   *zap.Logger
	fetcher  Fetcher
	browser  Fetcher
	closers  []func()
	cache    *resultCache
	sites    *siteConfigs
	clock    func() time.Time
}

// New wires a new server with the provided configuration.
func New(cfg Config) *Server {
	if cfg.IndexHTML == "" {
		cfg.IndexHTML = defaultIndexHTML
	}
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger := cfg.Logger.Named("server")
	s := &Server{
		cfg:      cfg,
		settings: cfg.Settings,
		mux:      http.NewServeMux(),
		logger:   logger,
		fetcher:  cfg.Fetcher,
		browser:  cfg.Browser,
		cache:    newResultCache(cfg.Clock, cfg.Settings.Cache.TTL),
		sites:    newSiteConfigs(cfg.Settings.SitesDir, logger),
		clock:    cfg.Clock,
	}
	if s.fetcher == nil {
		hf := NewHTTPFetcher(cfg.Settings.Fetch)
		s.fetcher = hf
		s.closers = append(s.closers, hf.Close)
	}
	if s.browser == nil && cfg.Settings.JS.Enabled {
		b := newJSBaker(cfg.Settings.JS, logger)
		s.browser = b
		s.closers = append(s.closers, b.Close)
	}
	s.registerRoutes()
	s.handler = withLogging(logger, s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases idle upstream connections and stops the browser, if any.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/boxes", s.handleBoxes)
	s.mux.HandleFunc("/fetch", s.handleFetch)
	s.mux.HandleFunc("/ping", s.handlePing)
}
