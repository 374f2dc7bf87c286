package server

import (
	"errors"
	"fmt"
	neturl "net/url"
	"strings"
)

var errMissingURL = errors.New("missing url")

// resolveTarget builds the page to fetch from the url, action and get form
// fields: action is resolved against url and get is appended to the query.
// A url that arrives percent-encoded, possibly twice, is decoded first and
// a missing scheme defaults to http.
func resolveTarget(base, action, get string) (string, error) {
	base = strings.TrimSpace(base)
	for range 2 {
		if strings.Contains(base, "://") {
			break
		}
		dec, err := neturl.PathUnescape(base)
		if err != nil || dec == base {
			break
		}
		base = dec
	}
	if base == "" {
		return "", errMissingURL
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := neturl.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", base)
	}
	if action = strings.TrimSpace(action); action != "" {
		ref, err := neturl.Parse(action)
		if err != nil {
			return "", fmt.Errorf("parsing action %q: %w", action, err)
		}
		u = u.ResolveReference(ref)
	}
	if get != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + get
		} else {
			u.RawQuery = get
		}
	}
	return u.String(), nil
}
