package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/middleware"
)

func TestCacheHeadersDirectives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		args   []string
		want   string
	}{
		{name: "max age and public", method: http.MethodGet, args: []string{"60", "public"}, want: "max-age=60, public"},
		{name: "named max age", method: http.MethodGet, args: []string{"max_age=120", "private"}, want: "max-age=120, private"},
		{name: "shared max age", method: http.MethodHead, args: []string{"s_maxage=300", "immutable"}, want: "s-maxage=300, immutable"},
		{name: "post untouched", method: http.MethodPost, args: []string{"60"}, want: ""},
		{name: "no args untouched", method: http.MethodGet, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handler.Chain(okHandler, handler.WithArgs(middleware.CacheHeaders{}, tt.args...))
			resp, err := h(httptest.NewRequest(tt.method, "/feed", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.HeaderValue("Cache-Control"))
		})
	}
}

func TestCacheHeadersSkipsErrorResponses(t *testing.T) {
	t.Parallel()

	h := handler.Chain(func(r *http.Request) (*response.Response, error) {
		return response.StringWithStatus("missing", http.StatusNotFound), nil
	}, handler.WithArgs(middleware.CacheHeaders{}, "60"))

	resp, err := h(httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.HeaderValue("Cache-Control"))
}

func TestCacheHeadersETag(t *testing.T) {
	t.Parallel()

	h := handler.Chain(okHandler, handler.WithArgs(middleware.CacheHeaders{}, "60", "etag"))

	first, err := h(httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.NoError(t, err)
	tag := first.HeaderValue("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, http.StatusOK, first.Status())
	assert.Equal(t, "max-age=60", first.HeaderValue("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("If-None-Match", "W/"+tag)
	second, err := h(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, second.Status())
	assert.Empty(t, second.Body())
	assert.Equal(t, tag, second.HeaderValue("ETag"))

	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	third, err := h(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, third.Status())
}
