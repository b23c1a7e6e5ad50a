package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	rpcChannelPrefix   = "rpc."
	replyChannelPrefix = "rpc.reply."
)

// envelope is the wire form of a published event on the redis driver.
type envelope struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// callEnvelope adds the reply channel used to emulate procedure calls
// over pub/sub.
type callEnvelope struct {
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	ReplyTo string         `json:"reply_to"`
}

// RedisBus is a Bus driver over redis pub/sub channels, for running the
// whole system locally without a badge router. Topics map 1:1 onto
// channels; procedure calls ride a request channel with a per-call
// reply channel.
type RedisBus struct {
	rdb    *redis.Client
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]context.CancelFunc
	wg   sync.WaitGroup
}

func NewRedisBus(rdb *redis.Client, logger *slog.Logger) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		rdb:    rdb,
		logger: logger.With("component", "redisbus"),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]context.CancelFunc),
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(b.ctx)
	pubsub := b.rdb.Subscribe(subCtx, topic)

	// Force the subscription onto the wire before returning, so events
	// published right after Subscribe are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	token := uuid.NewString()
	b.mu.Lock()
	b.subs[token] = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go b.receiveLoop(subCtx, pubsub, topic, h)

	return &redisSubscription{bus: b, topic: topic, token: token, pubsub: pubsub}, nil
}

func (b *RedisBus) receiveLoop(ctx context.Context, pubsub *redis.PubSub, topic string, h Handler) {
	defer b.wg.Done()
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("receive", "topic", topic, "error", err)
			return
		}

		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			b.logger.Error("unmarshal event", "topic", topic, "error", err)
			continue
		}
		h(env.Args, env.Kwargs)
	}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, args []any, kwargs map[string]any) error {
	data, err := json.Marshal(envelope{Args: args, Kwargs: kwargs})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Call publishes the request on rpc.<procedure> and blocks for a single
// reply on a throwaway channel. The caller bounds the wait with ctx.
func (b *RedisBus) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (map[string]any, error) {
	replyTo := replyChannelPrefix + uuid.NewString()

	pubsub := b.rdb.Subscribe(ctx, replyTo)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}

	data, err := json.Marshal(callEnvelope{Args: args, Kwargs: kwargs, ReplyTo: replyTo})
	if err != nil {
		return nil, fmt.Errorf("marshal call: %w", err)
	}
	if err := b.rdb.Publish(ctx, rpcChannelPrefix+procedure, data).Err(); err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return env.Kwargs, nil
}

// Respond registers a procedure responder, used by tests and local tools
// standing in for the badge router. The responder's keyword results are
// published back on the caller's reply channel.
func (b *RedisBus) Respond(procedure string, fn func(args []any, kwargs map[string]any) map[string]any) (Subscription, error) {
	subCtx, cancel := context.WithCancel(b.ctx)
	channel := rpcChannelPrefix + procedure
	pubsub := b.rdb.Subscribe(subCtx, channel)

	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("respond %s: %w", procedure, err)
	}

	token := uuid.NewString()
	b.mu.Lock()
	b.subs[token] = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		for {
			msg, err := pubsub.ReceiveMessage(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				b.logger.Error("receive call", "procedure", procedure, "error", err)
				return
			}

			var call callEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &call); err != nil {
				b.logger.Error("unmarshal call", "procedure", procedure, "error", err)
				continue
			}

			result := fn(call.Args, call.Kwargs)
			if call.ReplyTo == "" {
				continue
			}
			data, err := json.Marshal(envelope{Kwargs: result})
			if err != nil {
				b.logger.Error("marshal result", "procedure", procedure, "error", err)
				continue
			}
			if err := b.rdb.Publish(subCtx, call.ReplyTo, data).Err(); err != nil {
				b.logger.Error("publish result", "procedure", procedure, "error", err)
			}
		}
	}()

	return &redisSubscription{bus: b, topic: channel, token: token, pubsub: pubsub}, nil
}

func (b *RedisBus) Close() error {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	for token, cancel := range b.subs {
		cancel()
		delete(b.subs, token)
	}
	b.mu.Unlock()
	return nil
}

type redisSubscription struct {
	bus    *RedisBus
	topic  string
	token  string
	pubsub *redis.PubSub
}

func (s *redisSubscription) Topic() string {
	return s.topic
}

func (s *redisSubscription) Unsubscribe(ctx context.Context) error {
	s.bus.mu.Lock()
	cancel, ok := s.bus.subs[s.token]
	if ok {
		delete(s.bus.subs, s.token)
	}
	s.bus.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}
