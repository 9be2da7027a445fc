package session

import (
	"errors"

	"board2048/internal/i18n"
	"board2048/pkg/models"
)

// Error codes reported to clients
const (
	CodeInvalidDirection      = "invalid_direction"
	CodeNoActiveGame          = "no_active_game"
	CodeGameNotOver           = "game_not_over"
	CodeScoreAlreadySubmitted = "score_already_submitted"
	CodeInternal              = "internal"
)

// Action names the operation a game response answers
type Action string

const (
	ActionState   Action = "state"
	ActionNewGame Action = "new_game"
	ActionMove    Action = "move"
	ActionUndo    Action = "undo"
)

// ErrorCode maps an error returned by the Manager to a client code and
// the message key describing it
func ErrorCode(err error) (code, key string) {
	switch {
	case errors.Is(err, models.ErrInvalidDirection):
		return CodeInvalidDirection, i18n.KeyInvalidDirection
	case errors.Is(err, ErrNoActiveGame):
		return CodeNoActiveGame, i18n.KeyNoActiveGame
	case errors.Is(err, ErrGameNotOver):
		return CodeGameNotOver, i18n.KeyGameNotOver
	case errors.Is(err, ErrScoreAlreadySubmitted):
		return CodeScoreAlreadySubmitted, i18n.KeyScoreAlreadySubmitted
	default:
		return CodeInternal, i18n.KeyInternal
	}
}

// Describe fills resp.Message for the given action in lang
func Describe(tr *i18n.I18n, lang string, action Action, resp *models.GameResponse, targetTile int) {
	switch {
	case resp.GameOver:
		resp.Message = tr.T(lang, i18n.KeyGameOver)
	case action == ActionMove && !resp.Changed:
		resp.Message = tr.T(lang, i18n.KeyMoveIgnored)
	case action == ActionUndo && !resp.Changed:
		resp.Message = tr.T(lang, i18n.KeyUndoUnavailable)
	case resp.Won:
		resp.Message = tr.Tf(lang, i18n.KeyGameWon, targetTile)
	}
}
