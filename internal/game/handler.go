package game

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes read-only session state for operators.
type Handler struct {
	session *Session
	logger  *slog.Logger
}

func NewHandler(session *Session, logger *slog.Logger) *Handler {
	return &Handler{
		session: session,
		logger:  logger.With("handler", "game"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/players", h.listPlayers)
	g.GET("/decision", h.getDecision)
}

func (h *Handler) listPlayers(c echo.Context) error {
	snap := h.session.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"total":   len(snap.Players),
		"players": snap.Players,
	})
}

func (h *Handler) getDecision(c echo.Context) error {
	snap := h.session.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"game_id":    snap.GameID,
		"registered": snap.Registered,
		"decided":    snap.Decided,
		"last_input": snap.LastInput,
	})
}
