package websocket

import (
	"context"
	"encoding/json"

	"board2048/internal/i18n"
	"board2048/internal/session"
	"board2048/pkg/models"
)

// Message types
const (
	// client to server
	MessageGetState       = "get_state"
	MessageNewGame        = "new_game"
	MessageMove           = "move"
	MessageUndo           = "undo"
	MessageSubmitScore    = "submit_score"
	MessageGetLeaderboard = "get_leaderboard"

	// server to client
	MessageGameState          = "game_state"
	MessageScoreSaved         = "score_saved"
	MessageLeaderboard        = "leaderboard"
	MessageLeaderboardUpdated = "leaderboard_updated"
	MessageError              = "error"
)

// inboundMessage is a client message with its payload left undecoded
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ScoreSavedData is the payload of a score_saved message
type ScoreSavedData struct {
	Score   *models.ScoreRecord `json:"score"`
	Message string              `json:"message"`
}

// handleMessage handles incoming WebSocket messages
func (c *Client) handleMessage(message inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch message.Type {
	case MessageGetState:
		resp, err := c.hub.sessions.Current(ctx, c.playerID)
		c.reply(session.ActionState, resp, err)
	case MessageNewGame:
		resp, err := c.hub.sessions.NewGame(ctx, c.playerID)
		c.reply(session.ActionNewGame, resp, err)
	case MessageMove:
		c.handleMove(ctx, message.Data)
	case MessageUndo:
		resp, err := c.hub.sessions.Undo(ctx, c.playerID)
		c.reply(session.ActionUndo, resp, err)
	case MessageSubmitScore:
		c.handleSubmitScore(ctx, message.Data)
	case MessageGetLeaderboard:
		c.handleGetLeaderboard(ctx, message.Data)
	default:
		c.sendError("unknown_type", i18n.KeyBadRequest)
	}
}

// handleMove handles move requests from clients
func (c *Client) handleMove(ctx context.Context, data json.RawMessage) {
	var req models.MoveRequest
	if err := decodeData(data, &req); err != nil {
		c.sendError("bad_request", i18n.KeyBadRequest)
		return
	}

	direction, err := models.ParseDirection(req.Direction)
	if err != nil {
		c.sendSessionError(err)
		return
	}

	resp, err := c.hub.sessions.Move(ctx, c.playerID, direction)
	c.reply(session.ActionMove, resp, err)
}

// handleSubmitScore saves a finished game and tells every client the
// leaderboard changed
func (c *Client) handleSubmitScore(ctx context.Context, data json.RawMessage) {
	var req models.SubmitScoreRequest
	if err := decodeData(data, &req); err != nil {
		c.sendError("bad_request", i18n.KeyBadRequest)
		return
	}

	record, err := c.hub.sessions.SubmitScore(ctx, c.playerID, req.Name, c.hub.i18n.T(c.lang, i18n.KeyAnonymous))
	if err != nil {
		c.sendSessionError(err)
		return
	}

	c.sendMessage(models.WebSocketMessage{
		Type: MessageScoreSaved,
		Data: ScoreSavedData{Score: record, Message: c.hub.i18n.T(c.lang, i18n.KeyScoreSaved)},
	})
	go c.hub.Broadcast(models.WebSocketMessage{Type: MessageLeaderboardUpdated})
}

// handleGetLeaderboard handles leaderboard requests
func (c *Client) handleGetLeaderboard(ctx context.Context, data json.RawMessage) {
	var req models.LeaderboardRequest
	if err := decodeData(data, &req); err != nil {
		c.sendError("bad_request", i18n.KeyBadRequest)
		return
	}

	lbType, err := models.ParseLeaderboardType(string(req.Type))
	if err != nil {
		c.sendError("invalid_leaderboard", i18n.KeyInvalidLeaderboard)
		return
	}

	response, err := c.hub.sessions.Leaderboard(ctx, lbType, req.Limit)
	if err != nil {
		c.hub.logger.Error("failed to get leaderboard", "type", lbType, "error", err)
		c.sendError(session.CodeInternal, i18n.KeyInternal)
		return
	}

	c.sendMessage(models.WebSocketMessage{Type: MessageLeaderboard, Data: response})
}

// reply sends a game result back and mirrors changes to the player's
// other connections
func (c *Client) reply(action session.Action, resp models.GameResponse, err error) {
	if err != nil {
		c.sendSessionError(err)
		return
	}
	c.sendGame(action, resp)
	if resp.Changed {
		c.hub.syncPlayer(c, action, resp)
	}
}

// sendGame sends a game_state message localized for this client
func (c *Client) sendGame(action session.Action, resp models.GameResponse) {
	session.Describe(c.hub.i18n, c.lang, action, &resp, c.hub.sessions.Rules().TargetTile)
	c.sendMessage(models.WebSocketMessage{Type: MessageGameState, Data: resp})
}

func (c *Client) sendSessionError(err error) {
	code, key := session.ErrorCode(err)
	if code == session.CodeInternal {
		c.hub.logger.Error("game request failed", "player", c.playerID, "error", err)
	}
	c.sendError(code, key)
}

// sendError sends an error message to the client
func (c *Client) sendError(code, key string) {
	c.sendMessage(models.WebSocketMessage{
		Type: MessageError,
		Data: models.ErrorResponse{
			Message: c.hub.i18n.T(c.lang, key),
			Code:    code,
		},
	})
}

// decodeData decodes an optional payload; a missing payload leaves dest untouched
func decodeData(data json.RawMessage, dest interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}
