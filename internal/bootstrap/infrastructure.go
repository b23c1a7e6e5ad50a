package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/magworks/crowdpad/internal/bus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedisClient returns nil unless the redis bus driver is selected;
// nothing else in the process needs redis.
func ProvideRedisClient(cfg *Config) *redis.Client {
	if cfg.BusDriver != BusDriverRedis {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideBus(cfg *Config, rdb *redis.Client, logger *slog.Logger) (bus.Bus, error) {
	switch cfg.BusDriver {
	case BusDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis bus driver selected but no redis client")
		}
		return bus.NewRedisBus(rdb, logger), nil
	default:
		return bus.NewWAMPClient(bus.WAMPConfig{
			URL:    cfg.BusURL,
			Realm:  cfg.BusRealm,
			AuthID: cfg.BusUser,
			Secret: cfg.BusSecret,
		}, logger), nil
	}
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideBus,
	),
)
