package game

import (
	"context"
	"log/slog"
)

// KeyInjector drives the controlled emulator window.
type KeyInjector interface {
	// HoldOnly holds the key mapped to b and releases every other mapped
	// key. ButtonNone releases everything.
	HoldOnly(ctx context.Context, b Button) error

	// SaveState triggers the emulator's save-state checkpoint.
	SaveState(ctx context.Context) error

	// RotateBackup triggers the secondary checkpoint slot.
	RotateBackup(ctx context.Context) error

	// RefreshWindow re-resolves the target window handle.
	RefreshWindow(ctx context.Context) error
}

// Dispatcher translates decision changes into emulator effects. Two cyclic
// counters ride along: every checkpointEvery decision changes trigger a
// save state, and every backupEvery save states trigger a backup rotation.
// Both are best effort.
type Dispatcher struct {
	injector        KeyInjector
	checkpointEvery int
	backupEvery     int
	logger          *slog.Logger

	pressCount int
	saveCount  int
}

func NewDispatcher(injector KeyInjector, checkpointEvery, backupEvery int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		injector:        injector,
		checkpointEvery: checkpointEvery,
		backupEvery:     backupEvery,
		logger:          logger.With("component", "dispatcher"),
	}
}

// DecisionChanged reacts to a new decided button: advance the checkpoint
// counters, then swap the held key.
func (d *Dispatcher) DecisionChanged(ctx context.Context, b Button) {
	d.pressCount++
	if d.pressCount >= d.checkpointEvery {
		d.pressCount = 0
		d.checkpoint(ctx)
	}

	d.logger.Debug("pushing button", "button", string(b))
	if err := d.injector.HoldOnly(ctx, b); err != nil {
		d.logger.Error("hold button", "button", string(b), "error", err)
	}
}

func (d *Dispatcher) checkpoint(ctx context.Context) {
	// The window can move or restart between checkpoints; re-resolve it
	// before sending the save sequence.
	if err := d.injector.RefreshWindow(ctx); err != nil {
		d.logger.Error("refresh window", "error", err)
	}
	if err := d.injector.SaveState(ctx); err != nil {
		d.logger.Error("save state", "error", err)
		return
	}
	d.logger.Info("saved state")

	d.saveCount++
	if d.saveCount >= d.backupEvery {
		d.saveCount = 0
		if err := d.injector.RotateBackup(ctx); err != nil {
			d.logger.Error("rotate backup", "error", err)
		}
	}
}

// Tick is the periodic maintenance hook: keep the window handle fresh even
// during calm stretches with few decision changes.
func (d *Dispatcher) Tick(ctx context.Context) {
	if err := d.injector.RefreshWindow(ctx); err != nil {
		d.logger.Error("refresh window", "error", err)
	}
}
