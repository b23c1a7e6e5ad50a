package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/magworks/crowdpad/internal/game"
	"github.com/magworks/crowdpad/internal/health"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const version = "1.0.0"

func ProvideHealthHandler(session *game.Session, rdb *redis.Client) *health.Handler {
	return health.NewHandler(session, rdb, version)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
