package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/magworks/crowdpad/internal/game"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type GameStats struct {
	GameID     string `json:"game_id"`
	Registered bool   `json:"registered"`
	Players    int    `json:"players"`
	Decided    string `json:"decided,omitempty"`
}

type Response struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Game          GameStats                  `json:"game"`
	Runtime       RuntimeStats               `json:"runtime"`
	Components    map[string]ComponentStatus `json:"components,omitempty"`
}

// Handler reports process liveness plus a summary of the running game.
// The redis client is nil unless the redis bus driver is in use.
type Handler struct {
	session   *game.Session
	redis     *redis.Client
	version   string
	startTime time.Time
}

func NewHandler(session *game.Session, redisClient *redis.Client, version string) *Handler {
	return &Handler{
		session:   session,
		redis:     redisClient,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.healthz)
}

func (h *Handler) healthz(c echo.Context) error {
	snap := h.session.Snapshot()

	resp := Response{
		Status:        StatusHealthy,
		Timestamp:     time.Now(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Game: GameStats{
			GameID:     snap.GameID,
			Registered: snap.Registered,
			Players:    len(snap.Players),
			Decided:    snap.Decided,
		},
		Runtime: runtimeStats(),
	}

	if h.redis != nil {
		resp.Components = map[string]ComponentStatus{
			"redis": h.checkRedis(c.Request().Context()),
		}
		if resp.Components["redis"].Status != StatusHealthy {
			resp.Status = StatusDegraded
		}
	}
	if !snap.Registered {
		resp.Status = StatusDegraded
	}

	code := http.StatusOK
	if resp.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}
	}
	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func runtimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		MemorySysMB:   m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
	}
}
