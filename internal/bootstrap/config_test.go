package bootstrap

import (
	"testing"
	"time"

	"github.com/magworks/crowdpad/internal/game"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.BusDriver != BusDriverWAMP {
		t.Errorf("BusDriver = %q, want wamp", cfg.BusDriver)
	}
	if cfg.GameID != "crowdpad" {
		t.Errorf("GameID = %q", cfg.GameID)
	}
	if cfg.JoinSequence != "abab" {
		t.Errorf("JoinSequence = %q", cfg.JoinSequence)
	}
	if cfg.QuitHold != 1500*time.Millisecond {
		t.Errorf("QuitHold = %v", cfg.QuitHold)
	}
	if cfg.CheckpointEvery != 100 || cfg.BackupEvery != 100 {
		t.Errorf("checkpoint intervals = %d/%d", cfg.CheckpointEvery, cfg.BackupEvery)
	}
	if cfg.WindowClass != "mGBA" {
		t.Errorf("WindowClass = %q", cfg.WindowClass)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BUS_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("GAME_ID", "arcade-7")
	t.Setenv("QUIT_HOLD", "3s")
	t.Setenv("WINDOW_REFRESH", "5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.BusDriver != BusDriverRedis {
		t.Errorf("BusDriver = %q, want redis", cfg.BusDriver)
	}
	if cfg.RedisAddr != "redis.internal:6380" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.GameID != "arcade-7" {
		t.Errorf("GameID = %q", cfg.GameID)
	}
	if cfg.QuitHold != 3*time.Second {
		t.Errorf("QuitHold = %v", cfg.QuitHold)
	}
	if cfg.WindowRefresh != 5*time.Minute {
		t.Errorf("WindowRefresh = %v", cfg.WindowRefresh)
	}
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("BUS_DRIVER", "carrier-pigeon")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should reject unknown bus driver")
	}
}

func TestLoadConfig_Palette(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	p := cfg.Palette()
	if p.Matched != game.UniformLights(game.ColorGreen) {
		t.Errorf("Matched = %v, want dim green", p.Matched)
	}
	if p.Unmatched != game.UniformLights(game.ColorRed) {
		t.Errorf("Unmatched = %v, want dim red", p.Unmatched)
	}

	t.Setenv("LIGHT_MATCHED", "0x0000ff")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Palette().Matched != game.UniformLights(game.Color(0x0000ff)) {
		t.Errorf("Matched = %v, want blue", cfg.Palette().Matched)
	}
}

func TestLoadConfig_RejectsBadColor(t *testing.T) {
	t.Setenv("LIGHT_UNMATCHED", "crimson")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should reject a non-numeric color")
	}
}
