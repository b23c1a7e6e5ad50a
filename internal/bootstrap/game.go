package bootstrap

import (
	"context"
	"log/slog"

	"github.com/magworks/crowdpad/internal/bus"
	"github.com/magworks/crowdpad/internal/emulator"
	"github.com/magworks/crowdpad/internal/game"
	"go.uber.org/fx"
)

func ProvideInjector(cfg *Config, logger *slog.Logger) game.KeyInjector {
	return emulator.NewXdoInjector(cfg.WindowClass, logger)
}

func ProvideSession(cfg *Config, b bus.Bus, injector game.KeyInjector, logger *slog.Logger) *game.Session {
	return game.NewSession(game.Config{
		GameID:          cfg.GameID,
		JoinSequence:    cfg.JoinSequence,
		JoinLocation:    cfg.JoinLocation,
		QuitHold:        cfg.QuitHold,
		CheckpointEvery: cfg.CheckpointEvery,
		BackupEvery:     cfg.BackupEvery,
		WindowRefresh:   cfg.WindowRefresh,
		Lights:          cfg.Palette(),
	}, b, injector, logger)
}

type busConnector interface {
	Connect(ctx context.Context) error
}

// RunSession connects the bus (WAMP dials here; an authentication failure
// aborts startup) and starts the session loop.
func RunSession(lc fx.Lifecycle, b bus.Bus, session *game.Session) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if conn, ok := b.(busConnector); ok {
				if err := conn.Connect(ctx); err != nil {
					return err
				}
			}
			return session.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if err := session.Close(); err != nil {
				return err
			}
			return b.Close()
		},
	})
}

var GameModule = fx.Options(
	fx.Provide(
		ProvideInjector,
		ProvideSession,
	),
	fx.Invoke(RunSession),
)
