package game

import (
	"testing"
	"time"

	"github.com/magworks/crowdpad/internal/bus"
)

func newTestSession(b *fakeBus, inj *fakeInjector) *Session {
	return NewSession(Config{
		GameID:          "testgame",
		JoinSequence:    "abab",
		QuitHold:        1500 * time.Millisecond,
		CheckpointEvery: 100,
		BackupEvery:     100,
	}, b, inj, testLogger())
}

// drain processes queued events synchronously, standing in for the loop.
func drain(t *testing.T, s *Session) {
	t.Helper()
	for {
		select {
		case ev := <-s.events:
			s.handle(t.Context(), ev)
		default:
			return
		}
	}
}

func TestSession_RegisterReplaysExistingPlayers(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{"players": []any{"100", float64(101)}}
	s := newTestSession(b, &fakeInjector{})

	s.handle(t.Context(), Event{Kind: EventRegisterRequest})

	snap := s.Snapshot()
	if !snap.Registered {
		t.Fatal("session not registered")
	}
	if len(snap.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(snap.Players))
	}
	// Numeric badge IDs are coerced to strings.
	if snap.Players[1].BadgeID != "101" {
		t.Errorf("replayed badge = %q, want %q", snap.Players[1].BadgeID, "101")
	}
	if !b.subscribed(bus.ButtonPressTopic("100")) {
		t.Error("press topic for replayed player not subscribed")
	}
}

func TestSession_RegistrationRejected(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{"error": "name taken"}
	s := newTestSession(b, &fakeInjector{})

	s.handle(t.Context(), Event{Kind: EventRegisterRequest})

	snap := s.Snapshot()
	if snap.Registered {
		t.Fatal("session registered despite rejection")
	}
	if len(snap.Players) != 0 {
		t.Fatalf("players = %d after rejection, want 0", len(snap.Players))
	}
}

func TestSession_PressFlowEndToEnd(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{"players": []any{"100"}}
	inj := &fakeInjector{}
	s := newTestSession(b, inj)

	s.handle(t.Context(), Event{Kind: EventRegisterRequest})

	// The badge presses "a"; the driver delivers it on the press topic.
	if !b.emit(bus.ButtonPressTopic("100"), []any{"a"}, map[string]any{"timestamp": float64(1000), "badge_id": "100"}) {
		t.Fatal("press topic has no handler")
	}
	drain(t, s)

	snap := s.Snapshot()
	if snap.Decided != "a" {
		t.Fatalf("decided = %q, want %q", snap.Decided, "a")
	}
	if len(inj.held) != 1 || inj.held[0] != ButtonA {
		t.Fatalf("held = %v, want [a]", inj.held)
	}
	lights := b.publishedTo(bus.LightsTopic("100"))
	if len(lights) == 0 {
		t.Fatal("no lights published")
	}
	last := lights[len(lights)-1]
	if len(last.args) != 4 {
		t.Fatalf("lights args = %d values, want 4", len(last.args))
	}
	if last.args[0] != uint32(ColorGreen) {
		t.Errorf("lights[0] = %v, want green", last.args[0])
	}
}

func TestSession_QuitHoldPublishesKick(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{"players": []any{"100"}}
	s := newTestSession(b, &fakeInjector{})

	s.handle(t.Context(), Event{Kind: EventRegisterRequest})

	b.emit(bus.ButtonPressTopic("100"), []any{"start"}, map[string]any{"timestamp": float64(0)})
	b.emit(bus.ButtonReleaseTopic("100"), []any{"start"}, map[string]any{"timestamp": float64(2000)})
	drain(t, s)

	kicks := b.publishedTo(bus.KickTopic)
	if len(kicks) != 1 {
		t.Fatalf("kick publishes = %d, want 1", len(kicks))
	}
	if kicks[0].kwargs["badge_id"] != "100" || kicks[0].kwargs["game_id"] != "testgame" {
		t.Errorf("kick kwargs = %v", kicks[0].kwargs)
	}

	// The player is only removed once the router confirms with a leave.
	if s.PlayerCount() != 1 {
		t.Fatalf("players = %d before leave event, want 1", s.PlayerCount())
	}
	s.handle(t.Context(), Event{Kind: EventLeave, BadgeID: "100"})
	if s.PlayerCount() != 0 {
		t.Fatalf("players = %d after leave event, want 0", s.PlayerCount())
	}
}

func TestSession_UnknownButtonIgnored(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{"players": []any{"100"}}
	s := newTestSession(b, &fakeInjector{})

	s.handle(t.Context(), Event{Kind: EventRegisterRequest})

	b.emit(bus.ButtonPressTopic("100"), []any{"konami"}, nil)
	drain(t, s)

	if snap := s.Snapshot(); snap.Decided != "" {
		t.Fatalf("decided = %q after bogus button, want none", snap.Decided)
	}
}

func TestSession_StartAndClose(t *testing.T) {
	b := newFakeBus()
	b.callResult = map[string]any{}
	s := newTestSession(b, &fakeInjector{})

	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer s.Close()

	for _, topic := range []string{
		bus.PlayerJoinTopic("testgame"),
		bus.PlayerLeaveTopic("testgame"),
		bus.RegisterRequestTopic,
	} {
		if !b.subscribed(topic) {
			t.Errorf("topic %s not subscribed", topic)
		}
	}

	// The loop picks up the initial registration request.
	deadline := time.Now().Add(2 * time.Second)
	for !s.Snapshot().Registered {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Joins delivered by the bus flow through the loop.
	b.emit(bus.PlayerJoinTopic("testgame"), []any{"42"}, nil)
	for s.PlayerCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("join never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
