package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
)

// CacheHeaders sets Cache-Control (and optionally ETag) on successful GET
// and HEAD responses. It is parameterized through its identifier, e.g.
// "cache:60,public,etag":
//
//	60 or max_age=60     Cache-Control max-age
//	s_maxage=300         Cache-Control s-maxage
//	public, private, no-cache, no-store, must-revalidate, immutable
//	etag                 hash the body and answer matching If-None-Match with 304
//
// Without arguments it passes responses through untouched.
type CacheHeaders struct{}

var _ handler.ParameterizedMiddleware = CacheHeaders{}

// Handle implements handler.Middleware.
func (c CacheHeaders) Handle(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
	return c.HandleWith(r, next)
}

// HandleWith implements handler.ParameterizedMiddleware.
func (CacheHeaders) HandleWith(r *http.Request, next handler.HandlerFunc, args ...string) (*response.Response, error) {
	resp, err := next(r)
	if err != nil || resp == nil || len(args) == 0 {
		return resp, err
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return resp, nil
	}
	if resp.Status() < 200 || resp.Status() >= 300 {
		return resp, nil
	}

	directives, etag := parseCacheArgs(args)
	if len(directives) > 0 {
		resp = resp.WithHeader("Cache-Control", strings.Join(directives, ", "))
	}

	if etag {
		sum := sha256.Sum256(resp.Body())
		tag := `"` + hex.EncodeToString(sum[:16]) + `"`
		resp = resp.WithHeader("ETag", tag)
		if etagMatches(r.Header.Get("If-None-Match"), tag) {
			return resp.WithStatus(http.StatusNotModified).WithoutBody(), nil
		}
	}

	return resp, nil
}

func parseCacheArgs(args []string) ([]string, bool) {
	var directives []string
	etag := false
	for _, arg := range args {
		arg = strings.ToLower(strings.TrimSpace(arg))
		if arg == "" {
			continue
		}
		if _, err := strconv.Atoi(arg); err == nil {
			directives = append(directives, "max-age="+arg)
			continue
		}
		key, value, hasValue := strings.Cut(arg, "=")
		key = strings.ReplaceAll(key, "_", "-")
		switch {
		case key == "etag":
			etag = true
		case hasValue:
			directives = append(directives, key+"="+value)
		default:
			directives = append(directives, key)
		}
	}
	return directives, etag
}

func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == tag {
			return true
		}
	}
	return false
}
