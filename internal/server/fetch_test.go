package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbox/internal/config"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Seen-UA", r.UserAgent())
		io.WriteString(w, "<p>from upstream</p>")
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, strings.Repeat("x", 256))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, maxBytes int64) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "flowbox-test", MaxBytes: maxBytes})
	t.Cleanup(f.Close)
	return f
}

func TestHTTPFetcher(t *testing.T) {
	up := newUpstream(t)
	f := newTestFetcher(t, 1024)

	doc, err := f.Fetch(context.Background(), up.URL+"/moved", nil)
	require.NoError(t, err)
	assert.Equal(t, up.URL+"/page", doc.URL)
	assert.Equal(t, "<p>from upstream</p>", string(doc.Body))
	assert.Equal(t, "flowbox-test", doc.Header.Get("X-Seen-UA"))
	assert.Equal(t, "text/html; charset=utf-8", doc.Header.Get("Content-Type"))

	doc, err = f.Fetch(context.Background(), up.URL+"/page", http.Header{"User-Agent": {"caller"}})
	require.NoError(t, err)
	assert.Equal(t, "caller", doc.Header.Get("X-Seen-UA"))
}

func TestHTTPFetcherErrors(t *testing.T) {
	up := newUpstream(t)
	f := newTestFetcher(t, 64)

	_, err := f.Fetch(context.Background(), up.URL+"/big", nil)
	assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)

	_, err = f.Fetch(context.Background(), up.URL+"/gone", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")

	_, err = f.Fetch(context.Background(), "  ", nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, up.URL+"/page", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServerFetchesThroughHTTP(t *testing.T) {
	up := newUpstream(t)
	settings := config.Default()
	settings.SitesDir = t.TempDir()
	s := New(Config{Settings: settings})
	t.Cleanup(s.Close)

	rec := serve(s, http.MethodGet, "/fetch?url="+up.URL+"/page", "")
	resp := decode(t, rec)
	assert.Equal(t, up.URL+"/page", resp.URL)
	assert.Equal(t, []string{"from upstream"}, texts(resp.Boxes))
}
