package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/magworks/crowdpad/internal/game"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// XdoInjector drives keystrokes into the emulator window through xdotool.
// It caches the resolved window id; RefreshWindow re-resolves it, since
// the emulator can restart between checkpoints.
type XdoInjector struct {
	windowClass string
	runner      CommandRunner
	logger      *slog.Logger

	mu     sync.Mutex
	window string
}

func NewXdoInjector(windowClass string, logger *slog.Logger) *XdoInjector {
	return &XdoInjector{
		windowClass: windowClass,
		runner:      execRunner{},
		logger:      logger.With("component", "injector", "window_class", windowClass),
	}
}

// NewXdoInjectorWithRunner is the test seam for the command runner.
func NewXdoInjectorWithRunner(windowClass string, runner CommandRunner, logger *slog.Logger) *XdoInjector {
	inj := NewXdoInjector(windowClass, logger)
	inj.runner = runner
	return inj
}

// RefreshWindow resolves the first window matching the configured class.
func (inj *XdoInjector) RefreshWindow(ctx context.Context) error {
	out, err := inj.runner.Run(ctx, "xdotool", "search", "--class", inj.windowClass)
	if err != nil {
		return fmt.Errorf("search window: %w", err)
	}

	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return fmt.Errorf("no window matching class %q", inj.windowClass)
	}

	inj.mu.Lock()
	inj.window = lines[0]
	inj.mu.Unlock()
	return nil
}

func (inj *XdoInjector) windowID(ctx context.Context) (string, error) {
	inj.mu.Lock()
	w := inj.window
	inj.mu.Unlock()
	if w != "" {
		return w, nil
	}
	if err := inj.RefreshWindow(ctx); err != nil {
		return "", err
	}
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return inj.window, nil
}

// HoldOnly holds the key for b and releases every other mapped key.
// ButtonNone releases everything and holds nothing.
func (inj *XdoInjector) HoldOnly(ctx context.Context, b game.Button) error {
	window, err := inj.windowID(ctx)
	if err != nil {
		return err
	}

	for _, btn := range game.Buttons {
		sym := keysyms[btn]
		verb := "keyup"
		if btn == b {
			verb = "keydown"
		}
		if _, err := inj.runner.Run(ctx, "xdotool", verb, "--window", window, sym); err != nil {
			return fmt.Errorf("%s %s: %w", verb, sym, err)
		}
	}
	return nil
}

func (inj *XdoInjector) SaveState(ctx context.Context) error {
	return inj.sendKeys(ctx, saveStateKeys)
}

func (inj *XdoInjector) RotateBackup(ctx context.Context) error {
	return inj.sendKeys(ctx, rotateBackupKeys)
}

func (inj *XdoInjector) sendKeys(ctx context.Context, keys string) error {
	window, err := inj.windowID(ctx)
	if err != nil {
		return err
	}
	if _, err := inj.runner.Run(ctx, "xdotool", "key", "--window", window, keys); err != nil {
		return fmt.Errorf("send %s: %w", keys, err)
	}
	return nil
}
