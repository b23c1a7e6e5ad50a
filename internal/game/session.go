package game

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/magworks/crowdpad/internal/bus"
	"github.com/magworks/crowdpad/internal/shared"
)

// Config carries the per-game settings for a session.
type Config struct {
	GameID       string
	JoinSequence string
	JoinLocation string

	// QuitHold is how long the quit button must be held, strictly, before
	// release triggers a kick.
	QuitHold time.Duration

	// CheckpointEvery is the number of decision changes per save state;
	// BackupEvery the number of save states per backup rotation.
	CheckpointEvery int
	BackupEvery     int

	// Lights overrides the feedback colors. The zero value selects the
	// default palette.
	Lights Palette

	// WindowRefresh is the cadence of periodic window re-resolution.
	WindowRefresh time.Duration
}

// Session owns one game: the registry, arbiter, lifecycle and dispatcher,
// plus the bus subscriptions feeding them. All inbound events funnel into
// a single channel drained by one goroutine, so no two handlers' mutations
// of shared state ever interleave. Nothing here is process-global; several
// sessions can coexist in one process.
type Session struct {
	cfg    Config
	bus    bus.Bus
	logger *slog.Logger

	registry   *Registry
	arbiter    *Arbiter
	lifecycle  *Lifecycle
	dispatcher *Dispatcher

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	// mu guards core state against read-only snapshots taken outside the
	// event loop; the loop itself is the only writer.
	mu sync.RWMutex

	registered bool
}

func NewSession(cfg Config, b bus.Bus, injector KeyInjector, logger *slog.Logger) *Session {
	s := &Session{
		cfg:    cfg,
		bus:    b,
		logger: logger.With("component", "session", "game_id", cfg.GameID),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}

	palette := cfg.Lights
	if palette == (Palette{}) {
		palette = DefaultPalette()
	}

	s.registry = NewRegistry()
	s.arbiter = NewArbiter(s.registry, s, palette, logger)
	s.lifecycle = NewLifecycle(s.registry, s.arbiter, s, s, s, cfg.QuitHold, logger)
	s.dispatcher = NewDispatcher(injector, cfg.CheckpointEvery, cfg.BackupEvery, logger)
	s.arbiter.OnDecision(s.dispatcher.DecisionChanged)

	return s
}

// Start subscribes the game-wide topics, registers the game with the bus
// and launches the event loop. A rejected registration is not fatal: the
// session stays idle until the bus requests re-registration.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.bus.Subscribe(ctx, bus.PlayerJoinTopic(s.cfg.GameID), s.onJoin); err != nil {
		return fmt.Errorf("subscribe joins: %w", err)
	}
	if _, err := s.bus.Subscribe(ctx, bus.PlayerLeaveTopic(s.cfg.GameID), s.onLeave); err != nil {
		return fmt.Errorf("subscribe leaves: %w", err)
	}
	if _, err := s.bus.Subscribe(ctx, bus.RegisterRequestTopic, s.onRegisterRequest); err != nil {
		return fmt.Errorf("subscribe register requests: %w", err)
	}

	s.wg.Add(1)
	go s.loop()

	s.push(Event{Kind: EventRegisterRequest})
	s.logger.Info("session started")
	return nil
}

// Close stops the event loop. Bus subscriptions die with the bus itself.
func (s *Session) Close() error {
	close(s.done)
	s.wg.Wait()
	return nil
}

func (s *Session) loop() {
	defer s.wg.Done()

	ctx := context.Background()

	var tick <-chan time.Time
	if s.cfg.WindowRefresh > 0 {
		ticker := time.NewTicker(s.cfg.WindowRefresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.done:
			return
		case <-tick:
			s.handle(ctx, Event{Kind: EventTick})
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

// handle applies one event to the core. It is the single entry point for
// all state mutation.
func (s *Session) handle(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventJoin:
		if err := s.lifecycle.Join(ctx, ev.BadgeID); err != nil {
			s.logger.Warn("join rejected", "badge_id", ev.BadgeID, "error", err)
		}
	case EventLeave:
		if err := s.lifecycle.Leave(ctx, ev.BadgeID); err != nil {
			s.logger.Warn("leave dropped", "badge_id", ev.BadgeID, "error", err)
		}
	case EventPress:
		s.lifecycle.Press(ctx, ev.BadgeID, ev.Button, ev.Timestamp)
	case EventRelease:
		s.lifecycle.Release(ctx, ev.BadgeID, ev.Button, ev.Timestamp)
	case EventRegisterRequest:
		s.register(ctx)
	case EventTick:
		s.dispatcher.Tick(ctx)
	}
}

// push queues an event for the loop; events arriving after shutdown or
// past a full buffer are dropped rather than blocking a bus goroutine.
func (s *Session) push(ev Event) {
	select {
	case <-s.done:
	case s.events <- ev:
	default:
		s.logger.Warn("event buffer full, dropping event", "kind", ev.Kind.String())
	}
}

// register calls game.register on the bus. The result either carries an
// error string or the badges already joined, which are replayed through
// the normal join path to survive restarts.
func (s *Session) register(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.bus.Call(ctx, bus.RegisterProcedure,
		[]any{s.cfg.GameID},
		map[string]any{
			"sequence": s.cfg.JoinSequence,
			"location": s.cfg.JoinLocation,
		})
	if err != nil {
		s.registered = false
		s.logger.Error("game registration call failed", "error", err)
		return
	}

	if msg, ok := res["error"].(string); ok && msg != "" {
		s.registered = false
		s.logger.Error("could not register", "error",
			fmt.Errorf("%w: %s", shared.ErrRegistrationRejected, msg))
		return
	}

	s.registered = true
	s.logger.Info("game registered")

	players, _ := res["players"].([]any)
	for _, raw := range players {
		badgeID, ok := coerceString(raw)
		if !ok {
			continue
		}
		if err := s.lifecycle.Join(ctx, badgeID); err != nil {
			s.logger.Warn("replay join rejected", "badge_id", badgeID, "error", err)
		}
	}
}

// Bus handlers. These run on the driver's receive goroutine and only
// convert payloads into events.

func (s *Session) onJoin(args []any, _ map[string]any) {
	badgeID, ok := firstString(args)
	if !ok {
		s.logger.Warn("join event without badge id")
		return
	}
	s.push(Event{Kind: EventJoin, BadgeID: badgeID})
}

func (s *Session) onLeave(args []any, _ map[string]any) {
	badgeID, ok := firstString(args)
	if !ok {
		s.logger.Warn("leave event without badge id")
		return
	}
	s.push(Event{Kind: EventLeave, BadgeID: badgeID})
}

func (s *Session) onRegisterRequest(_ []any, _ map[string]any) {
	s.push(Event{Kind: EventRegisterRequest})
}

func (s *Session) onButton(kind EventKind, badgeID string) bus.Handler {
	return func(args []any, kwargs map[string]any) {
		name, ok := firstString(args)
		if !ok {
			s.logger.Warn("button event without button name", "badge_id", badgeID)
			return
		}
		b, ok := ParseButton(name)
		if !ok {
			s.logger.Warn("unknown button", "badge_id", badgeID, "button", name)
			return
		}
		ts, _ := coerceInt64(kwargs["timestamp"])
		s.push(Event{Kind: kind, BadgeID: badgeID, Button: b, Timestamp: ts})
	}
}

// SubscribePlayer implements PlayerStreams: it attaches the badge's press
// and release topics. If the second subscription fails, the first is
// released so nothing leaks.
func (s *Session) SubscribePlayer(ctx context.Context, badgeID string) ([]bus.Subscription, error) {
	press, err := s.bus.Subscribe(ctx, bus.ButtonPressTopic(badgeID), s.onButton(EventPress, badgeID))
	if err != nil {
		return nil, err
	}
	release, err := s.bus.Subscribe(ctx, bus.ButtonReleaseTopic(badgeID), s.onButton(EventRelease, badgeID))
	if err != nil {
		_ = press.Unsubscribe(ctx)
		return nil, err
	}
	return []bus.Subscription{press, release}, nil
}

// SetLights implements LightSink by publishing the four colors for a badge.
func (s *Session) SetLights(ctx context.Context, badgeID string, lights LightState) error {
	args := make([]any, len(lights))
	for i, c := range lights {
		args[i] = uint32(c)
	}
	return s.bus.Publish(ctx, bus.LightsTopic(badgeID), args, nil)
}

// Kick implements Kicker by asking the bus to remove the badge. The local
// player stays until the resulting leave event arrives.
func (s *Session) Kick(ctx context.Context, badgeID string) error {
	s.logger.Info("kicking player", "badge_id", badgeID)
	return s.bus.Publish(ctx, bus.KickTopic, nil, map[string]any{
		"game_id":  s.cfg.GameID,
		"badge_id": badgeID,
	})
}

// PlayerView is a read-only projection of one player for the ops API.
type PlayerView struct {
	BadgeID string `json:"badge_id"`
	Button  string `json:"button,omitempty"`
}

// Snapshot is a read-only projection of session state for the ops API.
type Snapshot struct {
	GameID     string       `json:"game_id"`
	Registered bool         `json:"registered"`
	Decided    string       `json:"decided,omitempty"`
	LastInput  string       `json:"last_input,omitempty"`
	Players    []PlayerView `json:"players"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		GameID:     s.cfg.GameID,
		Registered: s.registered,
		Decided:    string(s.arbiter.Decided()),
		LastInput:  string(s.arbiter.LastInput()),
		Players:    make([]PlayerView, 0, s.registry.Len()),
	}
	for _, p := range s.registry.All() {
		snap.Players = append(snap.Players, PlayerView{
			BadgeID: p.BadgeID,
			Button:  string(p.Current),
		})
	}
	return snap
}

// PlayerCount reports the number of joined players.
func (s *Session) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Len()
}

// Payload coercion: bus payloads arrive as generic JSON values, badge IDs
// sometimes as numbers, timestamps as floats.

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	return coerceString(args[0])
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

func coerceInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
