package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"flowbox/boxtree"
	"flowbox/dom"
)

// boxesResponse is the body answered by /boxes and /fetch.
type boxesResponse struct {
	URL      string               `json:"url,omitempty"`
	Boxes    *boxtree.BoxTreeRoot `json:"boxes"`
	Warnings []string             `json:"warnings"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.cfg.IndexHTML)))
	io.WriteString(w, s.cfg.IndexHTML)
}

func (s *Server) handleBoxes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body := http.MaxBytesReader(w, r.Body, s.settings.Server.MaxBodyBytes)
	doc, err := dom.Parse(body, r.Header.Get("Content-Type"))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("parsing document: %v", err), http.StatusBadRequest)
		return
	}
	var extra []string
	if css := r.URL.Query().Get("css"); css != "" {
		extra = append(extra, css)
	}
	data, err := s.render(r, "", doc, extra)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, data)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("parsing form: %v", err), http.StatusBadRequest)
		return
	}
	target, err := resolveTarget(r.FormValue("url"), r.FormValue("action"), r.FormValue("get"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log := s.requestLogger(r)
	site := s.sites.Find(target)
	js := parseBool(r.FormValue("js")) || site.wantsJS()
	log.Debug("fetch", zap.String("target", target), zap.Bool("js", js))

	hdr := headersFromQuery(r)
	var extra []string
	if site != nil {
		for k, v := range site.Headers {
			hdr.Set(k, v)
		}
		if site.CSS != "" {
			extra = append(extra, site.CSS)
		}
	}
	css := r.FormValue("css")
	if css != "" {
		extra = append(extra, css)
	}

	// pages fetched with the caller's cookies or styled with its CSS are
	// never shared with other callers
	key := cacheKey(target, js, hdr)
	shared := r.Header.Get("Cookie") == "" && css == ""
	if shared {
		if data, ok := s.cache.Select(key); ok {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, data)
			return
		}
	}

	fetcher := s.fetcher
	if js {
		if s.browser == nil {
			http.Error(w, "script rendering is disabled", http.StatusBadRequest)
			return
		}
		fetcher = s.browser
	}
	page, err := fetcher.Fetch(r.Context(), target, hdr)
	if err != nil {
		log.Warn("upstream failed", zap.String("target", target), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	doc, err := dom.Parse(bytes.NewReader(page.Body), page.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, fmt.Sprintf("parsing %s: %v", page.URL, err), http.StatusBadGateway)
		return
	}
	data, err := s.render(r, page.URL, doc, extra)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if shared {
		s.cache.Store(key, data)
		w.Header().Set("X-Cache", "miss")
	} else {
		w.Header().Set("X-Cache", "bypass")
	}
	writeJSON(w, data)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "pong\n")
}

// render builds the box tree of doc and encodes the response body.
func (s *Server) render(r *http.Request, url string, doc *html.Node, extraCSS []string) ([]byte, error) {
	log := s.requestLogger(r)
	resp := boxesResponse{URL: url, Warnings: []string{}}
	root, err := boxtree.FromDocument(doc,
		boxtree.WithLogger(log),
		boxtree.WithExtraCSS(extraCSS...),
		boxtree.WithWarnings(func(err error) {
			resp.Warnings = append(resp.Warnings, err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("building box tree: %w", err)
	}
	resp.Boxes = root
	if n := len(resp.Warnings); n > 0 {
		log.Debug("stylesheet warnings", zap.Int("count", n))
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding box tree: %w", err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
