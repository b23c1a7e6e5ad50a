package bootstrap

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/magworks/crowdpad/internal/game"
)

// Bus driver selection.
const (
	BusDriverWAMP  = "wamp"
	BusDriverRedis = "redis"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	BusDriver string `env:"BUS_DRIVER" envDefault:"wamp"`
	BusURL    string `env:"BUS_URL" envDefault:"ws://api.swadge.com:1337/ws"`
	BusRealm  string `env:"BUS_REALM" envDefault:"swadges"`
	BusUser   string `env:"BUS_USER" envDefault:"demo"`
	BusSecret string `env:"BUS_SECRET" envDefault:""`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// GameID must be unique per deployment or registrations collide.
	GameID       string `env:"GAME_ID" envDefault:"crowdpad"`
	JoinSequence string `env:"JOIN_SEQUENCE" envDefault:"abab"`
	JoinLocation string `env:"JOIN_LOCATION" envDefault:""`

	QuitHold        time.Duration `env:"QUIT_HOLD" envDefault:"1500ms"`
	CheckpointEvery int           `env:"CHECKPOINT_EVERY" envDefault:"100"`
	BackupEvery     int           `env:"BACKUP_EVERY" envDefault:"100"`

	WindowClass   string        `env:"WINDOW_CLASS" envDefault:"mGBA"`
	WindowRefresh time.Duration `env:"WINDOW_REFRESH" envDefault:"30s"`

	// Feedback colors as 24-bit RGB. The defaults are dim on purpose:
	// badge LEDs at full intensity drain batteries fast.
	LightMatched   string `env:"LIGHT_MATCHED" envDefault:"0x000200"`
	LightUnmatched string `env:"LIGHT_UNMATCHED" envDefault:"0x020000"`

	matchedColor   game.Color
	unmatchedColor game.Color
}

// Palette returns the configured feedback colors.
func (c *Config) Palette() game.Palette {
	return game.Palette{
		Matched:   game.UniformLights(c.matchedColor),
		Unmatched: game.UniformLights(c.unmatchedColor),
	}
}

func parseColor(s string) (game.Color, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil || v > 0xffffff {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	return game.Color(v), nil
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.BusDriver != BusDriverWAMP && cfg.BusDriver != BusDriverRedis {
		return nil, fmt.Errorf("unknown bus driver %q", cfg.BusDriver)
	}

	var err error
	if cfg.matchedColor, err = parseColor(cfg.LightMatched); err != nil {
		return nil, err
	}
	if cfg.unmatchedColor, err = parseColor(cfg.LightUnmatched); err != nil {
		return nil, err
	}
	return cfg, nil
}
