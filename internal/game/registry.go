package game

import (
	"github.com/magworks/crowdpad/internal/bus"
	"github.com/magworks/crowdpad/internal/shared"
)

// Registry owns the set of currently joined players. Iteration follows
// join order, which keeps tie-breaking deterministic across recomputation
// passes with identical input.
type Registry struct {
	players map[string]*Player
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

// Add creates a player for badgeID holding the given subscription handles.
// Returns shared.ErrDuplicatePlayer if the badge already has a player.
func (r *Registry) Add(badgeID string, subs []bus.Subscription) (*Player, error) {
	if _, ok := r.players[badgeID]; ok {
		return nil, shared.ErrDuplicatePlayer
	}
	p := newPlayer(badgeID, subs)
	r.players[badgeID] = p
	r.order = append(r.order, badgeID)
	return p, nil
}

// Remove deletes the player and transfers ownership of its subscription
// handles to the caller, who must release them via the bus.
func (r *Registry) Remove(badgeID string) ([]bus.Subscription, error) {
	p, ok := r.players[badgeID]
	if !ok {
		return nil, shared.ErrUnknownPlayer
	}
	delete(r.players, badgeID)
	for i, id := range r.order {
		if id == badgeID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p.subs, nil
}

func (r *Registry) Get(badgeID string) (*Player, error) {
	p, ok := r.players[badgeID]
	if !ok {
		return nil, shared.ErrUnknownPlayer
	}
	return p, nil
}

// All returns the players in join order.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.players)
}
