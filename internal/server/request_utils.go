package server

import (
	"net/http"
	"strings"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	out := http.Header{}
	copyHeader(out, h)
	return out
}

// headersFromQuery collects the upstream request headers a client may set
// through the query string, plus its cookies.
func headersFromQuery(r *http.Request) http.Header {
	q := r.URL.Query()
	hdr := http.Header{}
	if ua := strings.TrimSpace(q.Get("ua")); ua != "" {
		hdr.Set("User-Agent", ua)
	}
	if lang := strings.TrimSpace(q.Get("lang")); lang != "" {
		hdr.Set("Accept-Language", lang)
	}
	if ref := strings.TrimSpace(q.Get("ref")); ref != "" {
		hdr.Set("Referer", ref)
	}
	if ck := r.Header.Get("Cookie"); ck != "" {
		hdr.Set("Cookie", ck)
	}
	return hdr
}

// parseBool accepts the usual spellings of a checkbox or flag value.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
