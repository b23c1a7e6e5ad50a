package bus

import "context"

// Handler receives the positional and keyword payload of a published event.
// Handlers run on the driver's receive goroutine and must not block.
type Handler func(args []any, kwargs map[string]any)

// Subscription is a live topic registration. The owner is responsible for
// releasing it when the player or session it belongs to goes away.
type Subscription interface {
	Topic() string
	Unsubscribe(ctx context.Context) error
}

// Bus is the realtime message transport the game rides on. Two drivers
// exist: a WAMP client speaking to the badge router, and a redis pub/sub
// driver for local deployments.
type Bus interface {
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
	Publish(ctx context.Context, topic string, args []any, kwargs map[string]any) error

	// Call invokes a remote procedure and returns its keyword results.
	Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (map[string]any, error)

	Close() error
}
