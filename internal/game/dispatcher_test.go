package game

import "testing"

func TestDispatcher_HoldsDecidedButton(t *testing.T) {
	inj := &fakeInjector{}
	d := NewDispatcher(inj, 100, 100, testLogger())

	d.DecisionChanged(t.Context(), ButtonA)
	d.DecisionChanged(t.Context(), ButtonNone)

	if len(inj.held) != 2 || inj.held[0] != ButtonA || inj.held[1] != ButtonNone {
		t.Fatalf("held = %v, want [a, none]", inj.held)
	}
}

func TestDispatcher_CheckpointEveryHundredChanges(t *testing.T) {
	inj := &fakeInjector{}
	d := NewDispatcher(inj, 100, 100, testLogger())

	for i := 0; i < 99; i++ {
		d.DecisionChanged(t.Context(), ButtonA)
	}
	if inj.saves != 0 {
		t.Fatalf("saves = %d before interval, want 0", inj.saves)
	}

	d.DecisionChanged(t.Context(), ButtonB)
	if inj.saves != 1 {
		t.Fatalf("saves = %d at interval, want 1", inj.saves)
	}
	if inj.refreshes != 1 {
		t.Errorf("window refreshes = %d at checkpoint, want 1", inj.refreshes)
	}

	// Counter resets: the next save needs a full interval again.
	for i := 0; i < 100; i++ {
		d.DecisionChanged(t.Context(), ButtonA)
	}
	if inj.saves != 2 {
		t.Fatalf("saves = %d after second interval, want 2", inj.saves)
	}
}

func TestDispatcher_BackupRotatesEveryNSaves(t *testing.T) {
	inj := &fakeInjector{}
	d := NewDispatcher(inj, 1, 3, testLogger())

	for i := 0; i < 2; i++ {
		d.DecisionChanged(t.Context(), ButtonA)
	}
	if inj.backups != 0 {
		t.Fatalf("backups = %d after 2 saves, want 0", inj.backups)
	}

	d.DecisionChanged(t.Context(), ButtonB)
	if inj.saves != 3 {
		t.Fatalf("saves = %d, want 3", inj.saves)
	}
	if inj.backups != 1 {
		t.Fatalf("backups = %d after 3 saves, want 1", inj.backups)
	}

	// Backup counter resets too.
	for i := 0; i < 3; i++ {
		d.DecisionChanged(t.Context(), ButtonA)
	}
	if inj.backups != 2 {
		t.Fatalf("backups = %d after 6 saves, want 2", inj.backups)
	}
}

func TestDispatcher_TickRefreshesWindow(t *testing.T) {
	inj := &fakeInjector{}
	d := NewDispatcher(inj, 100, 100, testLogger())

	d.Tick(t.Context())
	d.Tick(t.Context())

	if inj.refreshes != 2 {
		t.Fatalf("refreshes = %d, want 2", inj.refreshes)
	}
}
