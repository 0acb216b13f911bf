package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/kernel"
)

// Tests here read APP_* variables through the kernel and cannot run in parallel.
func testEnv(t *testing.T) *globalFlags {
	t.Helper()
	t.Setenv("APP_NAME", "waypoint-test")
	t.Setenv("APP_ENV", "testing")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MIDDLEWARE_DISABLE", "false")
	return &globalFlags{basePath: t.TempDir(), envFile: ".env"}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRoutesCommand(t *testing.T) {
	flags := testEnv(t)

	out := execute(t, "--base-path", flags.basePath, "routes")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "METHOD")
	assert.Contains(t, out, "api/users/{id}")
	assert.Contains(t, out, "api.users.show")
	assert.Contains(t, out, "users@show")
	assert.Contains(t, out, "Closure")
}

func TestRoutesCommandJSON(t *testing.T) {
	flags := testEnv(t)

	out := execute(t, "--base-path", flags.basePath, "routes", "--json")

	var infos []routeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 6)

	byName := make(map[string]routeInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	show := byName["api.users.show"]
	assert.Equal(t, []string{http.MethodGet}, show.Methods)
	assert.Equal(t, "users@show", show.Action)
	assert.Equal(t, []string{
		kernel.ValidatePostSizeMiddleware,
		kernel.HandleCorsMiddleware,
		kernel.RequestIDMiddleware,
		kernel.LogMiddleware,
		kernel.ClientIPMiddleware,
		kernel.MetricsMiddleware,
		kernel.CacheMiddleware + ":max_age=60,public,etag",
	}, show.Middleware)

	live := byName["health.live"]
	assert.Equal(t, "health/live", live.URI)
	assert.Len(t, live.Middleware, 4, "global middleware only")
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version", "--short")
	assert.Equal(t, "dev\n", out)
}

func TestDemoApplication(t *testing.T) {
	flags := testEnv(t)

	k, err := newKernel(flags, prometheus.NewRegistry())
	require.NoError(t, err)

	t.Run("home", func(t *testing.T) {
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"waypoint-test"`)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("health", func(t *testing.T) {
		for _, path := range []string{"/health/live", "/health/ready"} {
			rec := httptest.NewRecorder()
			k.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("list users", func(t *testing.T) {
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []user `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 2)
		assert.Equal(t, "Ada Lovelace", body.Data[0].Name)
	})

	t.Run("show user with cache headers", func(t *testing.T) {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("grace"))
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/"+id.String(), nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Grace Hopper")
		assert.Equal(t, "max-age=60, public", rec.Header().Get("Cache-Control"))
		etag := rec.Header().Get("ETag")
		require.NotEmpty(t, etag)

		req := httptest.NewRequest(http.MethodGet, "/api/users/"+id.String(), nil)
		req.Header.Set("If-None-Match", etag)
		rec = httptest.NewRecorder()
		k.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotModified, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Alan Turing","email":"alan@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		var created user
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "Alan Turing", created.Name)
	})

	t.Run("store user rejects invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		k.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
