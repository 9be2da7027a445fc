package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"board2048/internal/cache"
	"board2048/internal/database"
	"board2048/internal/game"
	"board2048/internal/i18n"
	"board2048/internal/logging"
	"board2048/internal/session"
	"board2048/pkg/models"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

func newTestServer(t *testing.T) (*Server, database.Database, *cache.MemoryCache) {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "mcp.db"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	player, err := LocalPlayer(ctx, db, "agent")
	if err != nil {
		t.Fatal(err)
	}
	// a second call finds the same player
	again, err := LocalPlayer(ctx, db, "agent")
	if err != nil || again.ID != player.ID {
		t.Fatalf("LocalPlayer() second call = %+v, %v", again, err)
	}

	tr, err := i18n.New("en")
	if err != nil {
		t.Fatal(err)
	}
	mem := cache.NewMemoryCache()
	sessions := session.NewManager(db, mem, logging.Discard(), session.Options{Rules: game.DefaultRules(), Seed: 5})
	return NewServer(sessions, tr, "en", player.ID, "test", logging.Discard()), db, mem
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]interface{}{}
	}
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s returned non-text content", name)
	}
	return text.Text, result.IsError
}

func TestNewServer(t *testing.T) {
	s, _, _ := newTestServer(t)
	if s.MCPServer() == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestPlayThroughTools(t *testing.T) {
	s, _, _ := newTestServer(t)

	text, isErr := call(t, s.handleGameState, "game_state", nil)
	if !isErr || !strings.Contains(text, "No game in progress") {
		t.Errorf("game_state before new_game = %q, error %v", text, isErr)
	}

	text, isErr = call(t, s.handleNewGame, "new_game", nil)
	if isErr || !strings.HasPrefix(text, "Score: 0 | Moves: 0") {
		t.Errorf("new_game = %q", text)
	}

	text, isErr = call(t, s.handleMove, "move", map[string]interface{}{"direction": "north"})
	if !isErr || !strings.Contains(text, "Unknown direction") {
		t.Errorf("invalid move = %q", text)
	}

	moved := false
	for _, d := range models.Directions {
		preview, isErr := call(t, s.handlePreviewMove, "preview_move", map[string]interface{}{"direction": string(d)})
		if isErr {
			t.Fatalf("preview %s = %q", d, preview)
		}
		if preview == "Nothing moved." {
			continue
		}
		text, isErr = call(t, s.handleMove, "move", map[string]interface{}{"direction": string(d)})
		if isErr || !strings.Contains(text, "Moves: 1") || !strings.Contains(text, "undo available") {
			t.Errorf("move %s = %q", d, text)
		}
		moved = true
		break
	}
	if !moved {
		t.Fatal("no preview reported a change")
	}

	text, isErr = call(t, s.handleUndo, "undo", nil)
	if isErr || strings.Contains(text, "undo available") {
		t.Errorf("undo = %q", text)
	}

	text, isErr = call(t, s.handleSubmitScore, "submit_score", nil)
	if !isErr || !strings.Contains(text, "game is over") {
		t.Errorf("early submit_score = %q", text)
	}
}

func TestSubmitAndLeaderboardTools(t *testing.T) {
	s, _, mem := newTestServer(t)

	almost := &models.GameState{
		ID:       uuid.New(),
		PlayerID: s.playerID,
		Board: models.Board{
			{2, 4, 2, 4},
			{4, 2, 4, 2},
			{32, 4, 2, 4},
			{8, 16, 8, 0},
		},
		Score: 256,
	}
	if err := mem.SetGameSession(context.Background(), s.playerID, almost, time.Hour); err != nil {
		t.Fatal(err)
	}

	text, _ := call(t, s.handleLeaderboard, "leaderboard", nil)
	if text != "No all scores yet." {
		t.Errorf("empty leaderboard = %q", text)
	}

	text, isErr := call(t, s.handleMove, "move", map[string]interface{}{"direction": "right"})
	if isErr || !strings.Contains(text, "Game over!") {
		t.Fatalf("final move = %q", text)
	}

	text, isErr = call(t, s.handleSubmitScore, "submit_score", map[string]interface{}{"name": "claude"})
	if isErr || !strings.Contains(text, "claude: 256") {
		t.Errorf("submit_score = %q", text)
	}

	text, isErr = call(t, s.handleLeaderboard, "leaderboard", map[string]interface{}{"type": "daily", "limit": float64(5)})
	if isErr || !strings.Contains(text, "Top daily scores:") || !strings.Contains(text, "claude") {
		t.Errorf("leaderboard = %q", text)
	}

	_, isErr = call(t, s.handleLeaderboard, "leaderboard", map[string]interface{}{"type": "hourly"})
	if !isErr {
		t.Error("invalid leaderboard type accepted")
	}
}

func TestFormatGame(t *testing.T) {
	resp := models.GameResponse{
		Board:   models.Board{{2, 0, 0, 0}, {}, {}, {0, 0, 0, 4}},
		Score:   12,
		Moves:   3,
		MaxTile: 4,
		Message: "Game over!",
	}
	want := "Score: 12 | Moves: 3 | Max tile: 4\n2 . . .\n. . . .\n. . . .\n. . . 4\nGame over!"
	if got := FormatGame(resp); got != want {
		t.Errorf("FormatGame() =\n%s\nwant\n%s", got, want)
	}
}
