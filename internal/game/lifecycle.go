package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magworks/crowdpad/internal/bus"
	"github.com/magworks/crowdpad/internal/shared"
)

// PlayerStreams attaches a badge's press/release event streams and returns
// the handles needed to detach them later.
type PlayerStreams interface {
	SubscribePlayer(ctx context.Context, badgeID string) ([]bus.Subscription, error)
}

// Kicker asks the bus to remove a player from the game. The actual removal
// arrives later as a normal leave event.
type Kicker interface {
	Kick(ctx context.Context, badgeID string) error
}

// Lifecycle handles join, leave and the quit-hold kick rule. Per player it
// is a two-state machine: active until removed, removal terminal.
type Lifecycle struct {
	registry *Registry
	arbiter  *Arbiter
	streams  PlayerStreams
	lights   LightSink
	kicker   Kicker
	quitHold time.Duration
	logger   *slog.Logger
}

func NewLifecycle(
	registry *Registry,
	arbiter *Arbiter,
	streams PlayerStreams,
	lights LightSink,
	kicker Kicker,
	quitHold time.Duration,
	logger *slog.Logger,
) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		arbiter:  arbiter,
		streams:  streams,
		lights:   lights,
		kicker:   kicker,
		quitHold: quitHold,
		logger:   logger.With("component", "lifecycle"),
	}
}

// Join registers badgeID, subscribes its button streams and emits the
// initial light feedback. A badge that is already active is rejected
// before any subscription is made, so no duplicates accumulate.
func (l *Lifecycle) Join(ctx context.Context, badgeID string) error {
	if _, err := l.registry.Get(badgeID); err == nil {
		return shared.ErrDuplicatePlayer
	}

	subs, err := l.streams.SubscribePlayer(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("subscribe player %s: %w", badgeID, err)
	}

	p, err := l.registry.Add(badgeID, subs)
	if err != nil {
		return err
	}

	l.logger.Info("player joined", "badge_id", badgeID, "players", l.registry.Len())

	if err := l.lights.SetLights(ctx, badgeID, p.Lights); err != nil {
		l.logger.Error("initial lights", "badge_id", badgeID, "error", err)
	}
	return nil
}

// Leave releases the player's subscriptions, clears its lights, removes it
// from the registry and recomputes the decision as if its button had been
// released.
func (l *Lifecycle) Leave(ctx context.Context, badgeID string) error {
	subs, err := l.registry.Remove(badgeID)
	if err != nil {
		return err
	}

	for _, s := range subs {
		if err := s.Unsubscribe(ctx); err != nil {
			l.logger.Error("unsubscribe", "badge_id", badgeID, "topic", s.Topic(), "error", err)
		}
	}

	if err := l.lights.SetLights(ctx, badgeID, lightsCleared); err != nil {
		l.logger.Error("clear lights", "badge_id", badgeID, "error", err)
	}

	l.logger.Info("player left", "badge_id", badgeID, "players", l.registry.Len())

	l.arbiter.Recompute(ctx)
	return nil
}

// Press records a button press for badgeID. Unknown players are dropped.
func (l *Lifecycle) Press(ctx context.Context, badgeID string, b Button, ts int64) {
	p, err := l.registry.Get(badgeID)
	if err != nil {
		l.logger.Warn("press for unknown player", "badge_id", badgeID)
		return
	}

	p.Current = b
	if b == QuitButton {
		p.pressQuit(ts)
	}
	l.arbiter.NotePress(b)
	l.arbiter.Recompute(ctx)
}

// Release records a button release for badgeID. A quit button held past
// the threshold requests a kick before normal release processing. The
// held button and the recency signal are cleared without checking that
// the released button matches them.
func (l *Lifecycle) Release(ctx context.Context, badgeID string, b Button, ts int64) {
	p, err := l.registry.Get(badgeID)
	if err != nil {
		l.logger.Warn("release for unknown player", "badge_id", badgeID)
		return
	}

	if b == QuitButton && p.quitHeld(ts, l.quitHold) {
		if err := l.kicker.Kick(ctx, badgeID); err != nil {
			l.logger.Error("kick", "badge_id", badgeID, "error", err)
		}
	}

	p.Current = ButtonNone
	l.arbiter.NoteRelease()
	l.arbiter.Recompute(ctx)
}
