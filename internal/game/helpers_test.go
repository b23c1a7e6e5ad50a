package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/magworks/crowdpad/internal/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type lightsCall struct {
	badgeID string
	lights  LightState
}

type fakeLights struct {
	calls []lightsCall
	err   error
}

func (f *fakeLights) SetLights(_ context.Context, badgeID string, lights LightState) error {
	f.calls = append(f.calls, lightsCall{badgeID: badgeID, lights: lights})
	return f.err
}

func (f *fakeLights) last(badgeID string) (LightState, bool) {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].badgeID == badgeID {
			return f.calls[i].lights, true
		}
	}
	return LightState{}, false
}

type fakeSub struct {
	topic        string
	unsubscribed bool
}

func (s *fakeSub) Topic() string { return s.topic }

func (s *fakeSub) Unsubscribe(context.Context) error {
	s.unsubscribed = true
	return nil
}

type fakeStreams struct {
	calls int
	subs  map[string][]*fakeSub
	err   error
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{subs: make(map[string][]*fakeSub)}
}

func (f *fakeStreams) SubscribePlayer(_ context.Context, badgeID string) ([]bus.Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pair := []*fakeSub{
		{topic: bus.ButtonPressTopic(badgeID)},
		{topic: bus.ButtonReleaseTopic(badgeID)},
	}
	f.subs[badgeID] = pair
	return []bus.Subscription{pair[0], pair[1]}, nil
}

type fakeKicker struct {
	kicked []string
}

func (f *fakeKicker) Kick(_ context.Context, badgeID string) error {
	f.kicked = append(f.kicked, badgeID)
	return nil
}

type fakeInjector struct {
	held      []Button
	saves     int
	backups   int
	refreshes int
}

func (f *fakeInjector) HoldOnly(_ context.Context, b Button) error {
	f.held = append(f.held, b)
	return nil
}

func (f *fakeInjector) SaveState(context.Context) error {
	f.saves++
	return nil
}

func (f *fakeInjector) RotateBackup(context.Context) error {
	f.backups++
	return nil
}

func (f *fakeInjector) RefreshWindow(context.Context) error {
	f.refreshes++
	return nil
}

// core wires a registry, arbiter and lifecycle against fakes for direct
// synchronous testing of the arbitration rules.
type core struct {
	registry  *Registry
	arbiter   *Arbiter
	lifecycle *Lifecycle
	lights    *fakeLights
	streams   *fakeStreams
	kicker    *fakeKicker
	decisions []Button
}

func newCore() *core {
	c := &core{
		registry: NewRegistry(),
		lights:   &fakeLights{},
		streams:  newFakeStreams(),
		kicker:   &fakeKicker{},
	}
	c.arbiter = NewArbiter(c.registry, c.lights, DefaultPalette(), testLogger())
	c.arbiter.OnDecision(func(_ context.Context, b Button) {
		c.decisions = append(c.decisions, b)
	})
	c.lifecycle = NewLifecycle(c.registry, c.arbiter, c.streams, c.lights, c.kicker, 1500*time.Millisecond, testLogger())
	return c
}

func (c *core) join(badgeIDs ...string) {
	for _, id := range badgeIDs {
		if err := c.lifecycle.Join(context.Background(), id); err != nil {
			panic(err)
		}
	}
}

func (c *core) press(badgeID string, b Button, ts int64) {
	c.lifecycle.Press(context.Background(), badgeID, b, ts)
}

func (c *core) release(badgeID string, b Button, ts int64) {
	c.lifecycle.Release(context.Background(), badgeID, b, ts)
}

// publishedMsg and fakeBus back the session-level tests.
type publishedMsg struct {
	topic  string
	args   []any
	kwargs map[string]any
}

type fakeBus struct {
	mu         sync.Mutex
	handlers   map[string]bus.Handler
	published  []publishedMsg
	callResult map[string]any
	callErr    error
	calls      []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]bus.Handler)}
}

func (f *fakeBus) Subscribe(_ context.Context, topic string, h bus.Handler) (bus.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = h
	return &fakeSub{topic: topic}, nil
}

func (f *fakeBus) Publish(_ context.Context, topic string, args []any, kwargs map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMsg{topic: topic, args: args, kwargs: kwargs})
	return nil
}

func (f *fakeBus) Call(_ context.Context, procedure string, _ []any, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, procedure)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResult, nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[topic]
	return ok
}

// emit feeds an event into the handler registered for topic, as the bus
// driver would.
func (f *fakeBus) emit(topic string, args []any, kwargs map[string]any) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(args, kwargs)
	return true
}

func (f *fakeBus) publishedTo(topic string) []publishedMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedMsg
	for _, m := range f.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}
