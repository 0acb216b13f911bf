package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/waypoint/core/logger"
)

// Dispatcher publishes payloads to listeners.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload any) error
}

// Nop is a Dispatcher that drops every payload.
var Nop Dispatcher = nopDispatcher{}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, any) error { return nil }

// Bus runs listeners synchronously in registration order.
// Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for listener failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Listen registers handlers.
func (b *Bus) Listen(handlers ...Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range handlers {
		if h == nil {
			return ErrNilHandler
		}
		b.handlers[h.EventName()] = append(b.handlers[h.EventName()], h)
	}
	return nil
}

// HasListeners reports whether any handler listens for the named event.
func (b *Bus) HasListeners(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}

// Dispatch runs every handler for the payload's event name. All handlers run
// even when some fail; failures are joined.
func (b *Bus) Dispatch(ctx context.Context, payload any) error {
	evt, ok := payload.(Event)
	if !ok {
		evt = NewEvent(payload)
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[evt.Name]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := b.safeHandle(ctx, h, evt); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				logger.Component("event"),
				logger.Event(evt.Name),
				logger.ID("event_id", evt.ID),
				logger.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) safeHandle(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, evt.Name, p)
		}
	}()
	return h.Handle(ctx, evt)
}
