package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/health"
	"github.com/dmitrymomot/waypoint/core/kernel"
	"github.com/dmitrymomot/waypoint/core/route"
	"github.com/dmitrymomot/waypoint/core/router"
)

var errNotBooted = errors.New("application not booted")

// newKernel builds the demo application and its kernel.
func newKernel(flags *globalFlags, reg prometheus.Registerer) (*kernel.Kernel, error) {
	app, err := kernel.NewApplication(
		kernel.WithBasePath(flags.basePath),
		kernel.WithEnvFile(flags.envFile),
		kernel.WithProviders(&usersProvider{}, &routesProvider{}),
	)
	if err != nil {
		return nil, err
	}

	k := kernel.New(app, kernel.WithMetricsRegisterer(reg))
	k.WithMiddleware(func(m *kernel.Middleware) {
		m.Use("request_id", "log")
		m.Group("web", "secure_headers")
		m.Group("api", "client_ip", "metrics")
	})
	return k, nil
}

type user struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type userStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user
}

func newUserStore(seed ...user) *userStore {
	s := &userStore{users: make(map[uuid.UUID]user, len(seed))}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) all() []user {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b user) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (s *userStore) find(id uuid.UUID) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *userStore) add(u user) user {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = uuid.New()
	s.users[u.ID] = u
	return u
}

// usersProvider binds the user store and the "users" controller.
type usersProvider struct{}

func (usersProvider) Register(app *kernel.Application) error {
	container.Provide(app.Container(), func(*container.Container) (*userStore, error) {
		return newUserStore(
			user{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("ada")), Name: "Ada Lovelace", Email: "ada@example.com"},
			user{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("grace")), Name: "Grace Hopper", Email: "grace@example.com"},
		), nil
	})

	app.Container().Singleton("users", func(*container.Container) (any, error) {
		return route.Actions{
			"index": listUsers,
			"show":  showUser,
			"store": storeUser,
		}, nil
	})
	return nil
}

func listUsers(store *userStore) (any, error) {
	return map[string]any{"data": store.all()}, nil
}

func showUser(params route.Params, store *userStore) (any, error) {
	id, err := uuid.Parse(params.Get("id"))
	if err != nil {
		return nil, exception.ErrNotFound.WithMessage("User not found")
	}
	u, ok := store.find(id)
	if !ok {
		return nil, exception.ErrNotFound.WithMessage("User not found")
	}
	return u, nil
}

func storeUser(r *http.Request, store *userStore) (any, error) {
	var in user
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, exception.ErrBadRequest.WithMessage("Invalid JSON body").WithError(err)
	}
	if in.Name == "" || in.Email == "" {
		return nil, exception.ErrBadRequest.WithMessage("Name and email are required")
	}
	return store.add(in), nil
}

// routesProvider registers the demo routes once the users controller is bound.
type routesProvider struct{}

func (routesProvider) Register(*kernel.Application) error { return nil }

func (routesProvider) Boot(app *kernel.Application) error {
	r := app.Router()

	r.Get("/", func() (any, error) {
		return map[string]any{
			"name": app.Config().Name,
			"env":  app.Environment(),
			"time": app.Now(),
		}, nil
	}).As("home").Middleware("web")

	r.Get("/health/live", health.Liveness).As("health.live")
	r.Get("/health/ready", health.Readiness(app.Logger(), func(context.Context) error {
		if !app.Booted() {
			return errNotBooted
		}
		return nil
	})).As("health.ready")

	r.Group(router.GroupAttributes{Prefix: "/api", Middleware: []string{"api"}, Name: "api."}, func(r *router.Router) {
		r.Get("/users", route.Controller("users", "index")).As("users.index")
		r.Post("/users", route.Controller("users", "store")).
			As("users.store").
			Middleware("throttle:10,1")
		r.Get("/users/{id}", route.Controller("users", "show")).
			As("users.show").
			Middleware("cache:max_age=60,public,etag")
	})
	return nil
}
