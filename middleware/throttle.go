package middleware

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/router"
	"github.com/dmitrymomot/waypoint/pkg/ratelimiter"
)

// ErrInvalidThrottle is returned for malformed throttle arguments.
var ErrInvalidThrottle = errors.New("invalid throttle arguments")

// Throttle limits requests per client and route. It is parameterized as
// "throttle:<max attempts>,<decay minutes>" and defaults to 60 per minute.
//
// The bucket refills completely every decay period, so a client gets
// max attempts per period. Responses carry X-RateLimit-Limit and
// X-RateLimit-Remaining; denied requests fail with 429 and Retry-After.
type Throttle struct {
	Store ratelimiter.Store
	// Key identifies the client (default: client IP and route template).
	Key func(r *http.Request) string
}

// NewThrottle returns a Throttle backed by store.
func NewThrottle(store ratelimiter.Store) *Throttle {
	return &Throttle{Store: store}
}

func (t *Throttle) Handle(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
	return t.HandleWith(r, next)
}

// HandleWith implements handler.ParameterizedMiddleware.
func (t *Throttle) HandleWith(r *http.Request, next handler.HandlerFunc, args ...string) (*response.Response, error) {
	cfg, err := throttleConfig(args)
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimiter.NewBucket(t.Store, cfg)
	if err != nil {
		return nil, err
	}

	key := throttleKey(r)
	if t.Key != nil {
		key = t.Key(r)
	}
	result, err := limiter.Allow(r.Context(), key)
	if err != nil {
		return nil, exception.ErrInternalServerError.WithError(err)
	}

	limit := strconv.Itoa(result.Limit)
	if !result.Allowed() {
		retry := strconv.Itoa(int(math.Ceil(result.RetryAfter().Seconds())))
		return nil, exception.ErrTooManyRequests.
			WithHeader("Retry-After", retry).
			WithHeader("X-RateLimit-Limit", limit).
			WithHeader("X-RateLimit-Remaining", "0")
	}

	resp, err := next(r)
	if err != nil || resp == nil {
		return resp, err
	}
	return resp.
		WithHeader("X-RateLimit-Limit", limit).
		WithHeader("X-RateLimit-Remaining", strconv.Itoa(result.Remaining)), nil
}

func throttleConfig(args []string) (ratelimiter.Config, error) {
	attempts, minutes := 60, 1
	parse := func(s string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidThrottle, s)
		}
		return n, nil
	}

	var err error
	if len(args) > 0 {
		if attempts, err = parse(args[0]); err != nil {
			return ratelimiter.Config{}, err
		}
	}
	if len(args) > 1 {
		if minutes, err = parse(args[1]); err != nil {
			return ratelimiter.Config{}, err
		}
	}

	return ratelimiter.Config{
		Capacity:       attempts,
		RefillRate:     attempts,
		RefillInterval: time.Duration(minutes) * time.Minute,
	}, nil
}

func throttleKey(r *http.Request) string {
	key := RequestClientIP(r)
	if rt, ok := router.CurrentRoute(r.Context()); ok {
		key += "|" + strings.Join(rt.Methods(), ",") + "|" + rt.URI()
	}
	return key
}
