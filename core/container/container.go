package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrUnresolvable  = errors.New("unresolvable dependency")
	ErrTypeMismatch  = errors.New("resolved value has unexpected type")
	ErrInvalidTarget = errors.New("call target is not a function")
	ErrBadParameter  = errors.New("invalid route parameter value")
)

// Factory builds a service.
type Factory func(c *Container) (any, error)

type binding struct {
	factory Factory
	shared  bool
}

// Container holds service bindings. Safe for concurrent use.
type Container struct {
	mu        sync.RWMutex
	bindings  map[string]binding
	instances map[string]any
}

// New creates an empty container.
func New() *Container {
	return &Container{
		bindings:  make(map[string]binding),
		instances: make(map[string]any),
	}
}

// Bind registers a factory that runs on every Make.
func (c *Container) Bind(id string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, id)
	c.bindings[id] = binding{factory: f}
}

// Singleton registers a factory whose result is cached after the first Make.
func (c *Container) Singleton(id string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, id)
	c.bindings[id] = binding{factory: f, shared: true}
}

// Instance registers an already built service.
func (c *Container) Instance(id string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, id)
	c.instances[id] = v
}

// Bound reports whether id can be made.
func (c *Container) Bound(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, inst := c.instances[id]
	_, bound := c.bindings[id]
	return inst || bound
}

// Make builds or returns the service registered under id.
func (c *Container) Make(id string) (any, error) {
	c.mu.RLock()
	if v, ok := c.instances[id]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	b, ok := c.bindings[id]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvable, id)
	}

	// Factories may call Make, so they run without the lock held.
	v, err := b.factory(c)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}
	if !b.shared {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[id]; ok {
		return existing, nil
	}
	c.instances[id] = v
	return v, nil
}

// Resolve makes id and asserts its type.
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	v, err := c.Make(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, id, v)
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, id string) T {
	v, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return v
}

// Provide registers a singleton keyed by T so Call can inject it.
func Provide[T any](c *Container, f func(c *Container) (T, error)) {
	c.Singleton(TypeKey[T](), func(c *Container) (any, error) {
		return f(c)
	})
}

// TypeKey returns the identifier used for services registered with Provide.
func TypeKey[T any]() string {
	return typeKey(reflect.TypeFor[T]())
}

func typeKey(t reflect.Type) string {
	return "type:" + t.String()
}
