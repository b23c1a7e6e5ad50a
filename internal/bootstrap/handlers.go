package bootstrap

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/magworks/crowdpad/internal/game"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideGameHandler(session *game.Session, logger *slog.Logger) *game.Handler {
	return game.NewHandler(session, logger)
}

func RegisterRoutes(e *echo.Echo, h *game.Handler) {
	h.RegisterRoutes(e.Group("/v1/game"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideGameHandler,
	),
	fx.Invoke(RegisterRoutes),
)
