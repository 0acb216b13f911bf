package event

import (
	"context"
	"fmt"
)

// HandlerFunc processes a payload of type T.
type HandlerFunc[T any] func(ctx context.Context, payload T) error

// Handler processes events with a given name.
type Handler interface {
	EventName() string
	Handle(ctx context.Context, payload any) error
}

// NewHandler creates a handler with an explicit event name.
func NewHandler[T any](name string, fn HandlerFunc[T]) Handler {
	return &handlerFunc[T]{name: name, fn: fn}
}

// NewHandlerFunc creates a handler named after T.
func NewHandlerFunc[T any](fn HandlerFunc[T]) Handler {
	var zero T
	name := Name(zero)
	if name == "" {
		name = Name(new(T))
	}
	return &handlerFunc[T]{name: name, fn: fn}
}

type handlerFunc[T any] struct {
	name string
	fn   HandlerFunc[T]
}

func (h *handlerFunc[T]) EventName() string {
	return h.name
}

func (h *handlerFunc[T]) Handle(ctx context.Context, payload any) error {
	if e, ok := payload.(Event); ok {
		payload = e.Payload
	}
	v, ok := payload.(T)
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, payload, h.name)
	}
	return h.fn(ctx, v)
}
