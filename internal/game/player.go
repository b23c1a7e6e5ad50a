package game

import (
	"time"

	"github.com/magworks/crowdpad/internal/bus"
)

// Player is one joined badge and its transient game state. Players are
// owned by the Registry and only mutated from the session's event loop.
type Player struct {
	// BadgeID is the stable opaque identity of the device.
	BadgeID string

	// Current is the single button this player is holding, or ButtonNone.
	// A later press overwrites it; a release clears it unconditionally.
	Current Button

	// quitPressAt is the bus timestamp (ms) of the most recent press of
	// the quit button. Only meaningful for that button.
	quitPressAt int64

	// Lights is the last light configuration sent for this badge.
	Lights LightState

	// subs are the per-player press/release registrations, held so they
	// can be released when the player is removed.
	subs []bus.Subscription
}

func newPlayer(badgeID string, subs []bus.Subscription) *Player {
	return &Player{
		BadgeID: badgeID,
		Lights:  lightsInitial,
		subs:    subs,
	}
}

func (p *Player) pressQuit(ts int64) {
	p.quitPressAt = ts
}

// quitHeld reports whether ts is strictly more than threshold after the
// last quit-button press. Holding for exactly the threshold does not count.
func (p *Player) quitHeld(ts int64, threshold time.Duration) bool {
	return ts-p.quitPressAt > threshold.Milliseconds()
}
