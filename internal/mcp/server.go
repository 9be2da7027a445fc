// Package mcp lets an MCP client (an AI agent or an IDE) play 2048 over
// stdio as a single local player.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"board2048/internal/database"
	"board2048/internal/game"
	"board2048/internal/i18n"
	"board2048/internal/session"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LocalProvider identifies the player MCP sessions play as
const LocalProvider = "mcp"

// Server exposes one player's game as MCP tools
type Server struct {
	sessions  *session.Manager
	i18n      *i18n.I18n
	lang      string
	playerID  string
	logger    *log.Logger
	mcpServer *server.MCPServer
}

// LocalPlayer returns the player MCP sessions play as, creating it on first use
func LocalPlayer(ctx context.Context, db database.Database, name string) (*models.Player, error) {
	player := &models.Player{
		Name:       name,
		Provider:   LocalProvider,
		ProviderID: name,
	}
	if err := db.UpsertPlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create local player: %w", err)
	}
	return player, nil
}

// NewServer creates an MCP server playing as playerID, answering in lang
func NewServer(sessions *session.Manager, tr *i18n.I18n, lang, playerID, version string, logger *log.Logger) *Server {
	s := &Server{
		sessions: sessions,
		i18n:     tr,
		lang:     lang,
		playerID: playerID,
		logger:   logger,
	}

	s.mcpServer = server.NewMCPServer(
		"2048 Board",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`2048 - MCP Interface

GAME OBJECTIVE:
Slide numbered tiles on a 4x4 board. Equal tiles that collide merge into one
tile of double the value and add that value to the score. After every move
that changes the board a new 2 (sometimes a 4) appears. Reach the 2048 tile;
the game ends when the board is full and nothing can merge.

AVAILABLE TOOLS:
- new_game: Start a new game (discards the current one)
- game_state: Show the current board
- move: Slide the tiles up/down/left/right
- preview_move: Show where the tiles would slide without playing the move
- undo: Take back the last move (one level only)
- submit_score: Save a finished game to the leaderboard
- leaderboard: Show the top scores of a period

Empty cells are shown as "."`),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Serve speaks MCP over stdin and stdout until the client disconnects
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func directionArgument() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Direction to slide the tiles",
		"enum":        []string{"up", "down", "left", "right"},
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Start a new game, discarding the current one",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleNewGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and move count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleGameState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide every tile in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"direction": directionArgument(),
			},
			Required: []string{"direction"},
		},
	}, s.handleMove)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "preview_move",
		Description: "Show the board a move would produce before a new tile spawns, without playing it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"direction": directionArgument(),
			},
			Required: []string{"direction"},
		},
	}, s.handlePreviewMove)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Take back the last move",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleUndo)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_score",
		Description: "Save the finished game's score to the leaderboard",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name shown on the leaderboard (optional)",
				},
			},
		},
	}, s.handleSubmitScore)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Show the top scores of a period",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Period to rank (default all)",
					"enum":        []string{"daily", "weekly", "monthly", "all"},
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Number of entries to return",
				},
			},
		},
	}, s.handleLeaderboard)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

func (s *Server) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.sessions.NewGame(ctx, s.playerID)
	return s.gameResult(session.ActionNewGame, resp, err)
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.sessions.Current(ctx, s.playerID)
	return s.gameResult(session.ActionState, resp, err)
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := arguments(request)["direction"].(string)
	direction, err := models.ParseDirection(raw)
	if err != nil {
		return s.errorResult(err), nil
	}

	resp, err := s.sessions.Move(ctx, s.playerID, direction)
	return s.gameResult(session.ActionMove, resp, err)
}

func (s *Server) handlePreviewMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := arguments(request)["direction"].(string)
	direction, err := models.ParseDirection(raw)
	if err != nil {
		return s.errorResult(err), nil
	}

	resp, err := s.sessions.Current(ctx, s.playerID)
	if err != nil {
		return s.errorResult(err), nil
	}

	next, gained, changed, err := game.Slide(resp.Board, direction)
	if err != nil {
		return s.errorResult(err), nil
	}
	if !changed {
		return mcp.NewToolResultText(s.i18n.T(s.lang, i18n.KeyMoveIgnored)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Moving %s would score +%d:\n%s", direction, gained, next.String())), nil
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.sessions.Undo(ctx, s.playerID)
	return s.gameResult(session.ActionUndo, resp, err)
}

func (s *Server) handleSubmitScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := arguments(request)["name"].(string)

	record, err := s.sessions.SubmitScore(ctx, s.playerID, name, s.i18n.T(s.lang, i18n.KeyAnonymous))
	if err != nil {
		return s.errorResult(err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s %s: %d (max tile %d)",
		s.i18n.T(s.lang, i18n.KeyScoreSaved), record.PlayerName, record.Score, record.MaxTile)), nil
}

func (s *Server) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	rawType, _ := args["type"].(string)
	lbType, err := models.ParseLeaderboardType(rawType)
	if err != nil {
		return mcp.NewToolResultError(s.i18n.T(s.lang, i18n.KeyInvalidLeaderboard)), nil
	}

	limit := 0
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	board, err := s.sessions.Leaderboard(ctx, lbType, limit)
	if err != nil {
		return s.errorResult(err), nil
	}

	return mcp.NewToolResultText(FormatLeaderboard(board)), nil
}

func (s *Server) gameResult(action session.Action, resp models.GameResponse, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return s.errorResult(err), nil
	}
	session.Describe(s.i18n, s.lang, action, &resp, s.sessions.Rules().TargetTile)
	return mcp.NewToolResultText(FormatGame(resp)), nil
}

func (s *Server) errorResult(err error) *mcp.CallToolResult {
	code, key := session.ErrorCode(err)
	if code == session.CodeInternal {
		s.logger.Error("mcp tool failed", "error", err)
	}
	return mcp.NewToolResultError(s.i18n.T(s.lang, key))
}

// FormatGame renders a game for a text client
func FormatGame(resp models.GameResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Moves: %d | Max tile: %d", resp.Score, resp.Moves, resp.MaxTile)
	if resp.CanUndo {
		b.WriteString(" | undo available")
	}
	b.WriteString("\n")
	b.WriteString(resp.Board.String())
	if resp.Message != "" {
		b.WriteString("\n")
		b.WriteString(resp.Message)
	}
	return b.String()
}

// FormatLeaderboard renders a leaderboard as one line per entry
func FormatLeaderboard(board models.LeaderboardResponse) string {
	if len(board.Rankings) == 0 {
		return fmt.Sprintf("No %s scores yet.", board.Type)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %s scores:", board.Type)
	for _, e := range board.Rankings {
		fmt.Fprintf(&b, "\n%3d. %-20s %8d  (max %d, %s)", e.Rank, e.PlayerName, e.Score, e.MaxTile, e.CreatedAt.Format("2006-01-02"))
	}
	return b.String()
}
