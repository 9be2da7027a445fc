package handlers

import (
	"net/http"

	"board2048/internal/i18n"
	"board2048/internal/session"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// GameHandler exposes a player's game over REST
type GameHandler struct {
	sessions *session.Manager
	i18n     *i18n.I18n
	logger   *log.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(sessions *session.Manager, tr *i18n.I18n, logger *log.Logger) *GameHandler {
	return &GameHandler{
		sessions: sessions,
		i18n:     tr,
		logger:   logger,
	}
}

// State returns the current game
func (h *GameHandler) State(c *gin.Context) {
	resp, err := h.sessions.Current(c.Request.Context(), PlayerID(c))
	h.respond(c, session.ActionState, resp, err)
}

// NewGame starts a new game, replacing the current one
func (h *GameHandler) NewGame(c *gin.Context) {
	resp, err := h.sessions.NewGame(c.Request.Context(), PlayerID(c))
	h.respond(c, session.ActionNewGame, resp, err)
}

// Move slides the board in the requested direction
func (h *GameHandler) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.i18n, http.StatusBadRequest, "bad_request", i18n.KeyBadRequest)
		return
	}

	direction, err := models.ParseDirection(req.Direction)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.sessions.Move(c.Request.Context(), PlayerID(c), direction)
	h.respond(c, session.ActionMove, resp, err)
}

// Undo reverts the last move
func (h *GameHandler) Undo(c *gin.Context) {
	resp, err := h.sessions.Undo(c.Request.Context(), PlayerID(c))
	h.respond(c, session.ActionUndo, resp, err)
}

// SubmitScore saves the finished game on the leaderboard
func (h *GameHandler) SubmitScore(c *gin.Context) {
	var req models.SubmitScoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.i18n, http.StatusBadRequest, "bad_request", i18n.KeyBadRequest)
			return
		}
	}

	lang := i18n.GetLanguage(c)
	record, err := h.sessions.SubmitScore(c.Request.Context(), PlayerID(c), req.Name, h.i18n.T(lang, i18n.KeyAnonymous))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"score":   record,
		"message": h.i18n.T(lang, i18n.KeyScoreSaved),
	})
}

func (h *GameHandler) respond(c *gin.Context, action session.Action, resp models.GameResponse, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	session.Describe(h.i18n, i18n.GetLanguage(c), action, &resp, h.sessions.Rules().TargetTile)
	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) fail(c *gin.Context, err error) {
	code, key := session.ErrorCode(err)
	status := errorStatus(code)
	if status == http.StatusInternalServerError {
		h.logger.Error("game request failed", "player", PlayerID(c), "path", c.FullPath(), "error", err)
	}
	respondError(c, h.i18n, status, code, key)
}

func errorStatus(code string) int {
	switch code {
	case session.CodeInvalidDirection:
		return http.StatusBadRequest
	case session.CodeNoActiveGame:
		return http.StatusNotFound
	case session.CodeGameNotOver, session.CodeScoreAlreadySubmitted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
