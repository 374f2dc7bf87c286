package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"flowbox/style"
)

// Site modes.
const (
	siteModeHTTP = "http"
	siteModeJS   = "js"
)

// SiteConfig tunes how pages of one host are loaded and styled. It is read
// from <sites_dir>/<host>.json.
type SiteConfig struct {
	// Mode is "js" to render pages in the headless browser, "http" or empty
	// for plain fetches.
	Mode string `json:"mode"`
	// Headers are sent upstream, replacing the caller's.
	Headers map[string]string `json:"headers,omitempty"`
	// CSS is appended after the document's own stylesheets.
	CSS string `json:"css,omitempty"`
}

func (c *SiteConfig) wantsJS() bool { return c != nil && c.Mode == siteModeJS }

// siteConfigs looks up site configs by host. Results, misses included, are
// remembered per host for the life of the server.
type siteConfigs struct {
	dir string
	log *zap.Logger

	mu     sync.RWMutex
	byHost map[string]*SiteConfig
}

func newSiteConfigs(dir string, log *zap.Logger) *siteConfigs {
	if log == nil {
		log = zap.NewNop()
	}
	return &siteConfigs{
		dir:    dir,
		log:    log.Named("sites"),
		byHost: make(map[string]*SiteConfig),
	}
}

// Find returns the config for the host of target. "a.b.example.com" is
// looked up as a.b.example.com, b.example.com, example.com and com, and the
// first file found wins.
func (s *siteConfigs) Find(target string) *SiteConfig {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	s.mu.RLock()
	cfg, seen := s.byHost[host]
	s.mu.RUnlock()
	if seen {
		return cfg
	}

	for suffix := host; suffix != "" && cfg == nil; {
		cfg = s.read(suffix)
		_, suffix, _ = strings.Cut(suffix, ".")
	}
	s.mu.Lock()
	s.byHost[host] = cfg
	s.mu.Unlock()
	return cfg
}

// read loads and checks the file of one host. Unknown fields, an unknown
// mode and CSS problems are logged; only unreadable files are ignored.
func (s *siteConfigs) read(host string) *SiteConfig {
	if s.dir == "" {
		return nil
	}
	path := filepath.Join(s.dir, host+".json")
	log := s.log.With(zap.String("path", path))
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		log.Warn("reading site config", zap.Error(err))
		return nil
	}

	var cfg SiteConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		if !strings.HasPrefix(err.Error(), "json: unknown field") {
			log.Warn("decoding site config", zap.Error(err))
			return nil
		}
		log.Warn("site config has unknown fields", zap.Error(err))
		if err := json.Unmarshal(data, &cfg); err != nil {
			log.Warn("decoding site config", zap.Error(err))
			return nil
		}
	}

	switch cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode)); cfg.Mode {
	case "", siteModeHTTP, siteModeJS:
	default:
		log.Warn("unknown site mode", zap.String("mode", cfg.Mode))
		cfg.Mode = ""
	}
	if len(cfg.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
		}
		cfg.Headers = headers
	}
	if cfg.CSS != "" {
		b := style.NewStyleSetBuilder(style.WithLogger(s.log))
		b.AddStylesheet(cfg.CSS)
		if err := b.Err(); err != nil {
			log.Warn("site css has problems", zap.Error(err))
		}
	}
	log.Debug("site config loaded", zap.String("host", host), zap.String("mode", cfg.Mode))
	return &cfg
}
