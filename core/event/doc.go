// Package event provides a small synchronous event bus used for framework
// hook points such as route matching and request completion.
//
// Listeners are typed by payload and keyed by the payload's type name:
//
//	bus := event.NewBus(event.WithLogger(log))
//	bus.Listen(event.NewHandlerFunc(func(ctx context.Context, e router.RouteMatched) error {
//		log.Info("matched", "uri", e.Route.URI())
//		return nil
//	}))
//
//	err := bus.Dispatch(ctx, router.RouteMatched{...})
//
// Nop is a Dispatcher that ignores everything and is the default for
// components that accept an optional dispatcher.
package event
