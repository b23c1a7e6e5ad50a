package game

import (
	"context"
	"log/slog"
)

// LightSink publishes a badge's light configuration. Failures are logged
// and swallowed; light feedback is best effort.
type LightSink interface {
	SetLights(ctx context.Context, badgeID string, lights LightState) error
}

// Arbiter decides the single authoritative button across all players.
//
// The rule is majority with a recency tie-break: every held button gets
// one vote per holder, the first button in declaration order with the
// highest count wins provisionally, and the most recently pressed button
// steals any tie it is part of.
type Arbiter struct {
	registry *Registry
	lights   LightSink
	palette  Palette
	logger   *slog.Logger

	decided   Button
	lastInput Button

	onChange func(ctx context.Context, b Button)
}

func NewArbiter(registry *Registry, lights LightSink, palette Palette, logger *slog.Logger) *Arbiter {
	return &Arbiter{
		registry: registry,
		lights:   lights,
		palette:  palette,
		logger:   logger.With("component", "arbiter"),
	}
}

// OnDecision registers the callback fired when the decided button changes.
func (a *Arbiter) OnDecision(fn func(ctx context.Context, b Button)) {
	a.onChange = fn
}

// NotePress records b as the most recent input across all players.
func (a *Arbiter) NotePress(b Button) {
	a.lastInput = b
}

// NoteRelease clears the recency signal. Any release clears it, matching
// the press it follows or not.
func (a *Arbiter) NoteRelease() {
	a.lastInput = ButtonNone
}

func (a *Arbiter) Decided() Button {
	return a.decided
}

func (a *Arbiter) LastInput() Button {
	return a.lastInput
}

// Recompute tallies held buttons, re-derives the decided button, fires the
// decision callback if it changed, and refreshes every player's lights
// unconditionally. Returns whether the decision changed.
func (a *Arbiter) Recompute(ctx context.Context) bool {
	totals := make(map[Button]int, len(Buttons))
	players := a.registry.All()
	for _, p := range players {
		if p.Current != ButtonNone {
			totals[p.Current]++
		}
	}

	max := 0
	winner := ButtonNone
	for _, b := range Buttons {
		if totals[b] > max {
			winner = b
			max = totals[b]
		}
	}
	// The most recent press wins every tie it is part of, including a tie
	// with itself already winning. A zero count never steals the win: no
	// button wins only when every player is idle.
	if max > 0 && a.lastInput != ButtonNone && totals[a.lastInput] == max {
		winner = a.lastInput
	}

	changed := winner != a.decided
	if changed {
		a.decided = winner
		a.logger.Info("decision changed", "button", string(winner))
		if a.onChange != nil {
			a.onChange(ctx, winner)
		}
	}

	// Lights refresh even when the decision held steady: an individual
	// player's button may have changed without moving the decision.
	for _, p := range players {
		if p.Current == a.decided {
			p.Lights = a.palette.Matched
		} else {
			p.Lights = a.palette.Unmatched
		}
		if err := a.lights.SetLights(ctx, p.BadgeID, p.Lights); err != nil {
			a.logger.Error("set lights", "badge_id", p.BadgeID, "error", err)
		}
	}

	return changed
}
