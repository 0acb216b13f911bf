package container_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/route"
)

type greeter struct{ prefix string }

func (g *greeter) Greet(name string) string { return g.prefix + name }

func TestBindAndSingleton(t *testing.T) {
	t.Parallel()

	c := container.New()
	var built atomic.Int32

	c.Bind("fresh", func(*container.Container) (any, error) {
		built.Add(1)
		return &greeter{}, nil
	})
	c.Singleton("shared", func(*container.Container) (any, error) {
		built.Add(1)
		return &greeter{}, nil
	})

	a, err := c.Make("fresh")
	require.NoError(t, err)
	b, err := c.Make("fresh")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Make("shared")
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}

	assert.True(t, c.Bound("fresh"))
	assert.False(t, c.Bound("ghost"))
}

func TestMakeErrors(t *testing.T) {
	t.Parallel()

	c := container.New()
	boom := errors.New("boom")
	c.Bind("broken", func(*container.Container) (any, error) { return nil, boom })

	_, err := c.Make("ghost")
	assert.ErrorIs(t, err, container.ErrUnresolvable)

	_, err = c.Make("broken")
	assert.ErrorIs(t, err, boom)
}

func TestInstanceAndResolve(t *testing.T) {
	t.Parallel()

	c := container.New()
	g := &greeter{prefix: "hi "}
	c.Instance("greeter", g)
	c.Singleton("nested", func(c *container.Container) (any, error) {
		inner, err := container.Resolve[*greeter](c, "greeter")
		if err != nil {
			return nil, err
		}
		return inner.Greet("nested"), nil
	})

	got, err := container.Resolve[*greeter](c, "greeter")
	require.NoError(t, err)
	assert.Same(t, g, got)

	assert.Equal(t, "hi nested", container.MustResolve[string](c, "nested"))

	_, err = container.Resolve[int](c, "greeter")
	assert.ErrorIs(t, err, container.ErrTypeMismatch)
	assert.Panics(t, func() { container.MustResolve[int](c, "ghost") })
}

type postQuery struct {
	User int    `param:"user"`
	Slug string `param:"slug"`
}

func TestCallInjectsArguments(t *testing.T) {
	t.Parallel()

	c := container.New()
	container.Provide(c, func(*container.Container) (*greeter, error) {
		return &greeter{prefix: "hello "}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/users/7/posts/intro", nil)
	params := route.Params{{Name: "user", Value: "7"}, {Name: "slug", Value: "intro"}}

	tests := []struct {
		name   string
		target any
		want   any
	}{
		{
			name:   "positional_scalars",
			target: func(user int, slug string) string { return slug + "#" + string(rune('0'+user)) },
			want:   "intro#7",
		},
		{
			name: "request_context_params",
			target: func(ctx context.Context, r *http.Request, p route.Params) (string, error) {
				if ctx == nil {
					return "", errors.New("nil ctx")
				}
				return r.URL.Path + "|" + p.Get("slug"), nil
			},
			want: "/users/7/posts/intro|intro",
		},
		{
			name:   "struct_params",
			target: func(q postQuery) postQuery { return q },
			want:   postQuery{User: 7, Slug: "intro"},
		},
		{
			name:   "pointer_struct_params",
			target: func(q *postQuery) int { return q.User * 2 },
			want:   14,
		},
		{
			name:   "service",
			target: func(g *greeter, user uint, slug string) string { return g.Greet(slug) },
			want:   "hello intro",
		},
		{
			name:   "known_signature",
			target: func(r *http.Request, p route.Params) (any, error) { return p.Get("user"), nil },
			want:   "7",
		},
		{
			name:   "no_results",
			target: func() {},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := c.Call(req, tt.target, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCallErrors(t *testing.T) {
	t.Parallel()

	c := container.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	params := route.Params{{Name: "id", Value: "abc"}}
	boom := errors.New("boom")

	_, err := c.Call(req, "not a func", params)
	assert.ErrorIs(t, err, container.ErrInvalidTarget)

	_, err = c.Call(req, func(id int) int { return id }, params)
	assert.ErrorIs(t, err, container.ErrBadParameter)

	_, err = c.Call(req, func(g *greeter) string { return "" }, params)
	assert.ErrorIs(t, err, container.ErrUnresolvable)

	_, err = c.Call(req, func() error { return boom }, params)
	assert.ErrorIs(t, err, boom)

	_, err = c.Call(req, func() (string, string) { return "", "" }, params)
	assert.ErrorIs(t, err, route.ErrUnsupportedCall)

	_, err = c.Call(req, func(...string) string { return "" }, params)
	assert.ErrorIs(t, err, route.ErrUnsupportedCall)
}

func TestContainerAsRouteResolver(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Instance("users", route.Actions{
		"show": func(id int) (string, error) {
			if id == 0 {
				return "", errors.New("zero")
			}
			return "user", nil
		},
	})

	rt, err := route.New([]string{http.MethodGet}, "/users/{id}", route.Controller("users", "show"))
	require.NoError(t, err)
	rt.SetResolver(c)

	req := httptest.NewRequest(http.MethodGet, "/users/5", nil)
	require.True(t, rt.Matches(req))

	out, err := rt.Run(req)
	require.NoError(t, err)
	assert.Equal(t, "user", out)
}

func TestCallSkipsUnmatchedOptionalParameter(t *testing.T) {
	t.Parallel()

	c := container.New()
	rt, err := route.New([]string{http.MethodGet}, "/posts/{year?}/{id}", route.Func(func(year, id string) string {
		return "year=" + year + " id=" + id
	}))
	require.NoError(t, err)
	rt.SetResolver(c)

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "optional_absent", path: "/posts/42", want: "year= id=42"},
		{name: "optional_present", path: "/posts/2024/42", want: "year=2024 id=42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			bound, ok := rt.Match(req)
			require.True(t, ok)

			out, err := bound.Run(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
