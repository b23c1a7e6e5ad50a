package bus

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WAMP basic-profile message codes, JSON serialization.
const (
	wampHello        = 1
	wampWelcome      = 2
	wampAbort        = 3
	wampChallenge    = 4
	wampAuthenticate = 5
	wampGoodbye      = 6
	wampError        = 8
	wampPublish      = 16
	wampSubscribe    = 32
	wampSubscribed   = 33
	wampUnsubscribe  = 34
	wampUnsubscribed = 35
	wampEvent        = 36
	wampCall         = 48
	wampResult       = 50
)

const (
	wampWriteWait  = 10 * time.Second
	wampPongWait   = 60 * time.Second
	wampPingPeriod = (wampPongWait * 9) / 10
)

// ErrAuthFailed means the router rejected the credential handshake. This
// is the one unrecoverable startup failure; callers should treat it as
// fatal.
var ErrAuthFailed = errors.New("bus authentication failed")

// WAMPConfig holds the router endpoint and wampcra credentials.
type WAMPConfig struct {
	URL    string
	Realm  string
	AuthID string
	Secret string
}

type wampReply struct {
	subID  uint64
	args   []any
	kwargs map[string]any
	err    error
}

// WAMPClient is a minimal WAMP caller/subscriber/publisher over a single
// websocket. One goroutine reads frames and routes them to per-request
// reply channels or subscription handlers.
type WAMPClient struct {
	cfg    WAMPConfig
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	reqID uint64

	mu       sync.Mutex
	pending  map[uint64]chan wampReply
	handlers map[uint64]Handler

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewWAMPClient(cfg WAMPConfig, logger *slog.Logger) *WAMPClient {
	return &WAMPClient{
		cfg:      cfg,
		logger:   logger.With("component", "wamp"),
		pending:  make(map[uint64]chan wampReply),
		handlers: make(map[uint64]Handler),
		done:     make(chan struct{}),
	}
}

// Connect dials the router, performs the wampcra handshake and starts the
// read and ping loops. An ABORT during the handshake surfaces as
// ErrAuthFailed.
func (c *WAMPClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		Subprotocols:     []string{"wamp.2.json"},
		HandshakeTimeout: 30 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	c.conn = conn

	hello := []any{wampHello, c.cfg.Realm, map[string]any{
		"roles": map[string]any{
			"subscriber": map[string]any{},
			"publisher":  map[string]any{},
			"caller":     map[string]any{},
		},
		"authmethods": []string{"wampcra"},
		"authid":      c.cfg.AuthID,
	}}
	if err := c.write(hello); err != nil {
		conn.Close()
		return fmt.Errorf("send hello: %w", err)
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return err
	}

	c.wg.Add(2)
	go c.readPump()
	go c.pingLoop()

	c.logger.Info("connected", "realm", c.cfg.Realm, "authid", c.cfg.AuthID)
	return nil
}

func (c *WAMPClient) handshake() error {
	for {
		msg, err := c.read()
		if err != nil {
			return fmt.Errorf("handshake read: %w", err)
		}
		switch code(msg) {
		case wampChallenge:
			method, _ := msg[1].(string)
			if method != "wampcra" {
				return fmt.Errorf("%w: unsupported auth method %q", ErrAuthFailed, method)
			}
			extra, _ := msg[2].(map[string]any)
			challenge, _ := extra["challenge"].(string)
			sig := computeWCS(c.cfg.Secret, challenge)
			if err := c.write([]any{wampAuthenticate, sig, map[string]any{}}); err != nil {
				return fmt.Errorf("send authenticate: %w", err)
			}
		case wampWelcome:
			return nil
		case wampAbort:
			return fmt.Errorf("%w: router aborted session", ErrAuthFailed)
		default:
			return fmt.Errorf("unexpected handshake message %v", code(msg))
		}
	}
}

// computeWCS is the wampcra response: base64 of an HMAC-SHA256 over the
// challenge string, keyed by the shared secret.
func computeWCS(secret, challenge string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(challenge))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *WAMPClient) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	id, ch := c.newRequest()
	if err := c.write([]any{wampSubscribe, id, map[string]any{}, topic}); err != nil {
		c.dropRequest(id)
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	reply, err := c.await(ctx, id, ch)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	c.mu.Lock()
	c.handlers[reply.subID] = h
	c.mu.Unlock()

	return &wampSubscription{client: c, topic: topic, subID: reply.subID}, nil
}

func (c *WAMPClient) Publish(ctx context.Context, topic string, args []any, kwargs map[string]any) error {
	id := atomic.AddUint64(&c.reqID, 1)
	msg := []any{wampPublish, id, map[string]any{}, topic}
	msg = appendPayload(msg, args, kwargs)
	if err := c.write(msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *WAMPClient) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (map[string]any, error) {
	id, ch := c.newRequest()
	msg := []any{wampCall, id, map[string]any{}, procedure}
	msg = appendPayload(msg, args, kwargs)
	if err := c.write(msg); err != nil {
		c.dropRequest(id)
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}

	reply, err := c.await(ctx, id, ch)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}
	return reply.kwargs, nil
}

func (c *WAMPClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.conn != nil {
		_ = c.write([]any{wampGoodbye, map[string]any{}, "wamp.close.normal"})
		_ = c.conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *WAMPClient) unsubscribe(ctx context.Context, subID uint64) error {
	c.mu.Lock()
	delete(c.handlers, subID)
	c.mu.Unlock()

	id, ch := c.newRequest()
	if err := c.write([]any{wampUnsubscribe, id, subID}); err != nil {
		c.dropRequest(id)
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if _, err := c.await(ctx, id, ch); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (c *WAMPClient) newRequest() (uint64, chan wampReply) {
	id := atomic.AddUint64(&c.reqID, 1)
	ch := make(chan wampReply, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return id, ch
}

func (c *WAMPClient) dropRequest(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WAMPClient) await(ctx context.Context, id uint64, ch chan wampReply) (wampReply, error) {
	select {
	case <-ctx.Done():
		c.dropRequest(id)
		return wampReply{}, ctx.Err()
	case <-c.done:
		c.dropRequest(id)
		return wampReply{}, errors.New("connection closed")
	case reply := <-ch:
		return reply, reply.err
	}
}

func (c *WAMPClient) write(msg []any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wampWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *WAMPClient) read() ([]any, error) {
	var msg []any
	if err := c.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	if len(msg) == 0 {
		return nil, errors.New("empty frame")
	}
	return msg, nil
}

func (c *WAMPClient) readPump() {
	defer c.wg.Done()

	_ = c.conn.SetReadDeadline(time.Now().Add(wampPongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(wampPongWait))
		return nil
	})

	for {
		msg, err := c.read()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("read failed", "error", err)
			}
			c.failPending(err)
			return
		}
		c.route(msg)
	}
}

func (c *WAMPClient) route(msg []any) {
	switch code(msg) {
	case wampSubscribed:
		// [SUBSCRIBED, request, subscription]
		c.resolve(num(msg, 1), wampReply{subID: num(msg, 2)})
	case wampUnsubscribed:
		c.resolve(num(msg, 1), wampReply{})
	case wampResult:
		// [RESULT, request, details, args?, kwargs?]
		reply := wampReply{}
		if len(msg) > 3 {
			reply.args, _ = msg[3].([]any)
		}
		if len(msg) > 4 {
			reply.kwargs, _ = msg[4].(map[string]any)
		}
		c.resolve(num(msg, 1), reply)
	case wampError:
		// [ERROR, request-type, request, details, uri, args?, kwargs?]
		uri := ""
		if len(msg) > 4 {
			uri, _ = msg[4].(string)
		}
		c.resolve(num(msg, 2), wampReply{err: fmt.Errorf("router error: %s", uri)})
	case wampEvent:
		// [EVENT, subscription, publication, details, args?, kwargs?]
		var args []any
		var kwargs map[string]any
		if len(msg) > 4 {
			args, _ = msg[4].([]any)
		}
		if len(msg) > 5 {
			kwargs, _ = msg[5].(map[string]any)
		}
		c.mu.Lock()
		h := c.handlers[num(msg, 1)]
		c.mu.Unlock()
		if h != nil {
			h(args, kwargs)
		}
	case wampGoodbye:
		c.logger.Info("router said goodbye")
	default:
		c.logger.Debug("ignoring frame", "code", code(msg))
	}
}

func (c *WAMPClient) resolve(id uint64, reply wampReply) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- reply
	}
}

func (c *WAMPClient) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- wampReply{err: err}
		delete(c.pending, id)
	}
}

func (c *WAMPClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(wampPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(wampWriteWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

type wampSubscription struct {
	client *WAMPClient
	topic  string
	subID  uint64
}

func (s *wampSubscription) Topic() string {
	return s.topic
}

func (s *wampSubscription) Unsubscribe(ctx context.Context) error {
	return s.client.unsubscribe(ctx, s.subID)
}

// appendPayload adds args/kwargs to a frame, keeping the WAMP rule that
// kwargs require an args list before them.
func appendPayload(msg []any, args []any, kwargs map[string]any) []any {
	if args == nil && kwargs == nil {
		return msg
	}
	if args == nil {
		args = []any{}
	}
	msg = append(msg, args)
	if kwargs != nil {
		msg = append(msg, kwargs)
	}
	return msg
}

func code(msg []any) int {
	n, _ := msg[0].(float64)
	return int(n)
}

func num(msg []any, i int) uint64 {
	if i >= len(msg) {
		return 0
	}
	n, _ := msg[i].(float64)
	return uint64(n)
}
