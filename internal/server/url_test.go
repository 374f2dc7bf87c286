package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		base   string
		action string
		get    string
		want   string
	}{
		{
			name:   "percent encoded path kept",
			base:   "https://ru.wikipedia.org/wiki/%D0%97%D0%B0%D0%B3",
			action: "/wiki/%D0%A1%D0%BB",
			want:   "https://ru.wikipedia.org/wiki/%D0%A1%D0%BB",
		},
		{
			name:   "relative same dir",
			base:   "https://example.com/path/dir/page.html",
			action: "next.html",
			want:   "https://example.com/path/dir/next.html",
		},
		{
			name:   "root relative",
			base:   "https://example.com/path/index.html",
			action: "/other/page",
			want:   "https://example.com/other/page",
		},
		{
			name: "append get",
			base: "https://example.com/path",
			get:  "a=b",
			want: "https://example.com/path?a=b",
		},
		{
			name: "append get to existing query",
			base: "https://example.com/path?x=1",
			get:  "y=2",
			want: "https://example.com/path?x=1&y=2",
		},
		{
			name:   "action with query and get",
			base:   "https://example.com/start",
			action: "/foo?x=1",
			get:    "y=2",
			want:   "https://example.com/foo?x=1&y=2",
		},
		{
			name:   "absolute action",
			base:   "https://example.com/path",
			action: "http://other.com/page",
			want:   "http://other.com/page",
		},
		{
			name:   "encoded base",
			base:   "https%3A%2F%2Fexample.com%2Fdir%2Fpage.html",
			action: "next.html",
			want:   "https://example.com/dir/next.html",
		},
		{
			name: "double encoded base",
			base: "https%253A%252F%252Fexample.com%252Fa",
			want: "https://example.com/a",
		},
		{
			name: "missing scheme",
			base: "example.com/path",
			want: "http://example.com/path",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveTarget(tc.base, tc.action, tc.get)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveTargetRejects(t *testing.T) {
	t.Parallel()
	for _, base := range []string{"", "   ", "ftp://example.com/", "http://"} {
		_, err := resolveTarget(base, "", "")
		assert.Error(t, err, "base %q", base)
	}
	_, err := resolveTarget("", "", "")
	assert.ErrorIs(t, err, errMissingURL)
}
