package handlers

import (
	"net/http"
	"strconv"

	"board2048/internal/i18n"
	"board2048/internal/session"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// LeaderboardHandler handles leaderboard-related requests
type LeaderboardHandler struct {
	sessions *session.Manager
	i18n     *i18n.I18n
	logger   *log.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(sessions *session.Manager, tr *i18n.I18n, logger *log.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		sessions: sessions,
		i18n:     tr,
		logger:   logger,
	}
}

// GetLeaderboard handles public leaderboard requests
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	lbType, err := models.ParseLeaderboardType(c.Query("type"))
	if err != nil {
		respondError(c, h.i18n, http.StatusBadRequest, "invalid_leaderboard", i18n.KeyInvalidLeaderboard)
		return
	}

	// An unparsable limit falls back to the default
	limit, _ := strconv.Atoi(c.Query("limit"))

	response, err := h.sessions.Leaderboard(c.Request.Context(), lbType, limit)
	if err != nil {
		h.logger.Error("failed to get leaderboard", "type", lbType, "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RefreshCache drops the cached leaderboards so the next read hits the database
func (h *LeaderboardHandler) RefreshCache(c *gin.Context) {
	if err := h.sessions.RefreshLeaderboards(c.Request.Context()); err != nil {
		h.logger.Error("failed to refresh leaderboard cache", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	refreshed := make([]string, 0, len(models.LeaderboardTypes))
	for _, t := range models.LeaderboardTypes {
		refreshed = append(refreshed, string(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Cache refresh completed",
		"refreshed_types": refreshed,
	})
}

// Clear deletes every saved score
func (h *LeaderboardHandler) Clear(c *gin.Context) {
	removed, err := h.sessions.ClearLeaderboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to clear leaderboard", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	h.logger.Info("leaderboard cleared by admin", "player", PlayerID(c), "removed", removed)
	c.JSON(http.StatusOK, gin.H{
		"message": h.i18n.T(i18n.GetLanguage(c), i18n.KeyLeaderboardCleared),
		"removed": removed,
	})
}
