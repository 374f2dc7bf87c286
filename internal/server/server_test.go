package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"flowbox/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	headers []http.Header
	body    string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, target string, hdr http.Header) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
	f.headers = append(f.headers, hdr.Clone())
	if f.err != nil {
		return nil, f.err
	}
	return &Document{
		URL:    target,
		Body:   []byte(f.body),
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
	}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
		cfg.Settings.SitesDir = t.TempDir()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = &fakeFetcher{body: "<p>upstream</p>"}
	}
	s := New(cfg)
	t.Cleanup(s.Close)
	return s
}

func serve(s http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "text/html; charset=utf-8")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

type response struct {
	URL      string         `json:"url"`
	Boxes    map[string]any `json:"boxes"`
	Warnings []string       `json:"warnings"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// texts returns the text of every text run under node, in tree order.
func texts(node any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if v["type"] == "text" {
				out = append(out, v["text"].(string))
				return
			}
			for _, key := range []string{"contents", "blocks", "inlines", "children"} {
				if child, ok := v[key]; ok {
					walk(child)
				}
			}
		case []any:
			for _, c := range v {
				walk(c)
			}
		}
	}
	walk(node)
	return out
}

// findTag returns the first box with the given tag, depth first.
func findTag(node any, tag string) map[string]any {
	switch v := node.(type) {
	case map[string]any:
		if v["tag"] == tag {
			return v
		}
		for _, key := range []string{"contents", "blocks", "inlines", "children"} {
			if found := findTag(v[key], tag); found != nil {
				return found
			}
		}
	case []any:
		for _, c := range v {
			if found := findTag(c, tag); found != nil {
				return found
			}
		}
	}
	return nil
}

func TestPing(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong\n", rec.Body.String())
}

func TestRootServesIndex(t *testing.T) {
	s := newTestServer(t, Config{IndexHTML: "<h1>hi</h1>"})
	rec := serve(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>hi</h1>", rec.Body.String())

	rec = serve(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoxesReturnsTree(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s, http.MethodPost, "/boxes", `<p>Hello <b>world</b></p>`)
	resp := decode(t, rec)

	assert.Equal(t, "block-formatting-context", resp.Boxes["type"])
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, []string{"Hello ", "world"}, texts(resp.Boxes))
	b := findTag(resp.Boxes, "b")
	require.NotNil(t, b)
	assert.Equal(t, "inline", b["type"])
	assert.Nil(t, findTag(resp.Boxes, "head"), "display: none elements get no box")
}

func TestBoxesExtraCSSAndWarnings(t *testing.T) {
	s := newTestServer(t, Config{})
	css := url.QueryEscape(`p { colour: red } p { color: #ff0000 }`)
	rec := serve(s, http.MethodPost, "/boxes?css="+css, `<p>x</p>`)
	resp := decode(t, rec)

	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "colour")
	p := findTag(resp.Boxes, "p")
	require.NotNil(t, p)
	assert.Equal(t, "#ff0000", p["style"].(map[string]any)["color"])
}

func TestBoxesStraySemicolonInStyle(t *testing.T) {
	s := newTestServer(t, Config{})
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- serve(s, http.MethodPost, "/boxes", "<style>p { color: red };</style><p>x</p>")
	}()
	var rec *httptest.ResponseRecorder
	select {
	case rec = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("POST /boxes did not return")
	}
	resp := decode(t, rec)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "no block")
	p := findTag(resp.Boxes, "p")
	require.NotNil(t, p)
	assert.Equal(t, "#ff0000", p["style"].(map[string]any)["color"])
}

func TestBoxesRejectsGet(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s, http.MethodGet, "/boxes", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestBoxesTooLarge(t *testing.T) {
	settings := config.Default()
	settings.Server.MaxBodyBytes = 16
	s := newTestServer(t, Config{Settings: settings})
	rec := serve(s, http.MethodPost, "/boxes", "<p>"+strings.Repeat("x", 64)+"</p>")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFetchUsesCache(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	upstream := &fakeFetcher{body: "<p>cached</p>"}
	s := newTestServer(t, Config{Fetcher: upstream, Clock: clock.Now})

	rec := serve(s, http.MethodGet, "/fetch?url=example.com/page", "")
	resp := decode(t, rec)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Equal(t, "http://example.com/page", resp.URL)
	assert.Equal(t, []string{"cached"}, texts(resp.Boxes))

	rec = serve(s, http.MethodGet, "/fetch?url=example.com/page", "")
	decode(t, rec)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, upstream.count())

	clock.Advance(s.settings.Cache.TTL)
	rec = serve(s, http.MethodGet, "/fetch?url=example.com/page", "")
	decode(t, rec)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, upstream.count())
}

func TestFetchDoesNotShareCookiePages(t *testing.T) {
	upstream := &fakeFetcher{body: "<p>private</p>"}
	s := newTestServer(t, Config{Fetcher: upstream})

	req := httptest.NewRequest(http.MethodGet, "/fetch?url=example.com/account", nil)
	req.Header.Set("Cookie", "session=alice")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	decode(t, rec)
	assert.Equal(t, "bypass", rec.Header().Get("X-Cache"))
	assert.Equal(t, 0, s.cache.Len())

	rec = serve(s, http.MethodGet, "/fetch?url=example.com/account", "")
	decode(t, rec)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, upstream.count())
	assert.Empty(t, upstream.headers[1].Get("Cookie"))

	// a cached page is not served to a caller sending cookies either
	req = httptest.NewRequest(http.MethodGet, "/fetch?url=example.com/account", nil)
	req.Header.Set("Cookie", "session=bob")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	decode(t, rec)
	assert.Equal(t, "bypass", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, upstream.count())
}

func TestFetchCacheVariesOnHeaders(t *testing.T) {
	upstream := &fakeFetcher{body: "<p>x</p>"}
	s := newTestServer(t, Config{Fetcher: upstream})

	rec := serve(s, http.MethodGet, "/fetch?url=example.com/&lang=de", "")
	decode(t, rec)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	rec = serve(s, http.MethodGet, "/fetch?url=example.com/&lang=fr", "")
	decode(t, rec)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	rec = serve(s, http.MethodGet, "/fetch?url=example.com/&lang=de", "")
	decode(t, rec)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, upstream.count())
}

func TestFetchRejectsMalformedForm(t *testing.T) {
	upstream := &fakeFetcher{body: "<p>x</p>"}
	s := newTestServer(t, Config{Fetcher: upstream})
	req := httptest.NewRequest(http.MethodPost, "/fetch", strings.NewReader("url=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "parsing form")
	assert.Equal(t, 0, upstream.count())
}

func TestFetchForwardsHeaders(t *testing.T) {
	upstream := &fakeFetcher{body: "<p>x</p>"}
	s := newTestServer(t, Config{Fetcher: upstream})
	req := httptest.NewRequest(http.MethodGet, "/fetch?url=http://example.com/&ua=flowbox-test&lang=fr", nil)
	req.Header.Set("Cookie", "a=b")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, upstream.headers, 1)
	hdr := upstream.headers[0]
	assert.Equal(t, "flowbox-test", hdr.Get("User-Agent"))
	assert.Equal(t, "fr", hdr.Get("Accept-Language"))
	assert.Equal(t, "a=b", hdr.Get("Cookie"))
}

func TestFetchErrors(t *testing.T) {
	upstream := &fakeFetcher{err: errors.New("connection refused")}
	s := newTestServer(t, Config{Fetcher: upstream})

	rec := serve(s, http.MethodGet, "/fetch", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodGet, "/fetch?url=ftp://example.com/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodGet, "/fetch?url=http://example.com/", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = serve(s, http.MethodGet, "/fetch?url=http://example.com/&js=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "script rendering is off by default")
}

func TestFetchSiteConfig(t *testing.T) {
	settings := config.Default()
	settings.SitesDir = t.TempDir()
	site := `{"mode": "JS", "headers": {"X-Token": "secret"}, "css": "p { color: #00ff00 }"}`
	require.NoError(t, os.WriteFile(filepath.Join(settings.SitesDir, "example.com.json"), []byte(site), 0o644))

	upstream := &fakeFetcher{body: "<p>plain</p>"}
	browser := &fakeFetcher{body: "<p>baked</p>"}
	s := newTestServer(t, Config{Settings: settings, Fetcher: upstream, Browser: browser})

	rec := serve(s, http.MethodGet, "/fetch?url=http://www.example.com/", "")
	resp := decode(t, rec)
	assert.Equal(t, 0, upstream.count())
	require.Equal(t, 1, browser.count())
	assert.Equal(t, "secret", browser.headers[0].Get("X-Token"))
	assert.Equal(t, []string{"baked"}, texts(resp.Boxes))
	p := findTag(resp.Boxes, "p")
	require.NotNil(t, p)
	assert.Equal(t, "#00ff00", p["style"].(map[string]any)["color"])
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newTestServer(t, Config{Logger: zap.New(core)})

	rec := serve(s, http.MethodGet, "/ping", "")
	id := rec.Header().Get(requestIDHeader)
	assert.Len(t, id, 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get(requestIDHeader))

	served := logs.FilterMessage("served").All()
	require.Len(t, served, 2)
	fields := served[1].ContextMap()
	assert.Equal(t, "given-id", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, "server", served[1].LoggerName)
}
