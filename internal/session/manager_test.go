package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"board2048/internal/cache"
	"board2048/internal/database"
	"board2048/internal/game"
	"board2048/internal/logging"
	"board2048/pkg/models"

	"github.com/google/uuid"
)

func openDB(t *testing.T) database.Database {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "session.db"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return db
}

func newManager(db database.Database, c cache.Cache) *Manager {
	return NewManager(db, c, logging.Discard(), Options{
		Rules:        game.DefaultRules(),
		DefaultLimit: 10,
		MaxLimit:     50,
		Seed:         7,
	})
}

func createPlayer(t *testing.T, db database.Database, name string) string {
	t.Helper()
	p := &models.Player{Name: name, Provider: models.ProviderGuest, ProviderID: name}
	if err := db.UpsertPlayer(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p.ID
}

// firstMove plays directions in order until one changes the board
func firstMove(t *testing.T, m *Manager, playerID string) models.GameResponse {
	t.Helper()
	for _, d := range models.Directions {
		resp, err := m.Move(context.Background(), playerID, d)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Changed {
			return resp
		}
	}
	t.Fatal("no direction changed the board")
	return models.GameResponse{}
}

// oneMoveFromOver returns a game where sliding right fills the last gap
// and leaves no merge, whatever tile spawns
func oneMoveFromOver(playerID string) *models.GameState {
	return &models.GameState{
		ID:       uuid.New(),
		PlayerID: playerID,
		Board: models.Board{
			{2, 4, 2, 4},
			{4, 2, 4, 2},
			{32, 4, 2, 4},
			{8, 16, 8, 0},
		},
		Score: 1000,
		Moves: 300,
	}
}

func TestNoActiveGame(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	if _, err := m.Current(ctx, id); !errors.Is(err, ErrNoActiveGame) {
		t.Errorf("Current() error = %v", err)
	}
	if _, err := m.Move(ctx, id, models.DirectionLeft); !errors.Is(err, ErrNoActiveGame) {
		t.Errorf("Move() error = %v", err)
	}
	if _, err := m.Undo(ctx, id); !errors.Is(err, ErrNoActiveGame) {
		t.Errorf("Undo() error = %v", err)
	}
	if _, err := m.SubmitScore(ctx, id, "alice", "Anonymous"); !errors.Is(err, ErrNoActiveGame) {
		t.Errorf("SubmitScore() error = %v", err)
	}
}

func TestNewGameMoveUndo(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	start, err := m.NewGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if n := start.Board.TileCount(); n < 1 || n > 3 {
		t.Errorf("new game has %d tiles", n)
	}
	if start.Score != 0 || start.GameOver || start.CanUndo || !start.Changed {
		t.Errorf("new game = %+v", start)
	}

	moved := firstMove(t, m, id)
	if moved.Moves != 1 || !moved.CanUndo || moved.GameID != start.GameID {
		t.Errorf("after move = %+v", moved)
	}

	undone, err := m.Undo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !undone.Changed || undone.Board != start.Board || undone.CanUndo {
		t.Errorf("after undo = %+v, want board %v", undone, start.Board)
	}

	again, err := m.Undo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if again.Changed {
		t.Error("second undo changed the game")
	}

	if _, err := m.Move(ctx, id, models.Direction("diagonal")); !errors.Is(err, models.ErrInvalidDirection) {
		t.Errorf("invalid direction error = %v", err)
	}
}

func TestNewGameReplacesCurrent(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	first, err := m.NewGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	firstMove(t, m, id)

	second, err := m.NewGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if second.GameID == first.GameID || second.Moves != 0 || second.CanUndo {
		t.Errorf("second game = %+v", second)
	}
}

func TestResumeAcrossManagers(t *testing.T) {
	db := openDB(t)
	shared := cache.NewMemoryCache()
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	m1 := newManager(db, shared)
	if _, err := m1.NewGame(ctx, id); err != nil {
		t.Fatal(err)
	}
	moved := firstMove(t, m1, id)

	// a second process sharing the cache sees the move immediately
	m2 := newManager(db, shared)
	got, err := m2.Current(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Board != moved.Board || got.Moves != 1 || !got.CanUndo {
		t.Errorf("cached resume = %+v, want %+v", got, moved)
	}

	// without the cache only flushed state survives
	m1.Flush(ctx)
	m3 := newManager(db, cache.NewMemoryCache())
	got, err = m3.Current(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Board != moved.Board || got.Score != moved.Score || got.Moves != 1 {
		t.Errorf("database resume = %+v, want %+v", got, moved)
	}
}

func TestGameOverAndSubmitScore(t *testing.T) {
	db := openDB(t)
	c := cache.NewMemoryCache()
	m := newManager(db, c)
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	if err := c.SetGameSession(ctx, id, oneMoveFromOver(id), time.Hour); err != nil {
		t.Fatal(err)
	}

	if _, err := m.SubmitScore(ctx, id, "alice", "Anonymous"); !errors.Is(err, ErrGameNotOver) {
		t.Errorf("early SubmitScore() error = %v", err)
	}

	resp, err := m.Move(ctx, id, models.DirectionRight)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || !resp.GameOver || resp.CanUndo || resp.Moves != 301 {
		t.Fatalf("final move = %+v", resp)
	}

	if undo, _ := m.Undo(ctx, id); undo.Changed {
		t.Error("undo after game over changed the game")
	}
	if after, _ := m.Move(ctx, id, models.DirectionLeft); after.Changed {
		t.Error("move after game over changed the game")
	}

	record, err := m.SubmitScore(ctx, id, "   ", "Anonymous")
	if err != nil {
		t.Fatal(err)
	}
	if record.PlayerName != "Anonymous" || record.Score != 1000 || record.MaxTile != 32 {
		t.Errorf("record = %+v", record)
	}

	if _, err := m.SubmitScore(ctx, id, "alice", "Anonymous"); !errors.Is(err, ErrScoreAlreadySubmitted) {
		t.Errorf("second SubmitScore() error = %v", err)
	}

	board, err := m.Leaderboard(ctx, models.LeaderboardAll, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Rankings) != 1 || board.Rankings[0].Score != 1000 || board.Rankings[0].Rank != 1 {
		t.Errorf("leaderboard = %+v", board)
	}

	// the finished game reached the database on game over
	stored, err := db.GetLatestGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.GameOver || !stored.ScoreSubmitted {
		t.Errorf("stored game = %+v", stored)
	}

	removed, err := m.ClearLeaderboard(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearLeaderboard() = %d, %v", removed, err)
	}
	board, err = m.Leaderboard(ctx, models.LeaderboardAll, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Rankings) != 0 {
		t.Errorf("cleared leaderboard still has %d entries", len(board.Rankings))
	}
}

func TestLeaderboardLimitClamp(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := createPlayer(t, db, uuid.NewString())
		g := oneMoveFromOver(id)
		g.Score = 100 * (i + 1)
		if err := db.CreateGame(ctx, g); err != nil {
			t.Fatal(err)
		}
		if err := db.AddScore(ctx, &models.ScoreRecord{GameID: g.ID, PlayerID: id, PlayerName: "p", Score: g.Score, MaxTile: 32}); err != nil {
			t.Fatal(err)
		}
	}

	board, err := m.Leaderboard(ctx, models.LeaderboardDaily, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Rankings) != 2 || board.Rankings[0].Score != 300 {
		t.Errorf("limited leaderboard = %+v", board.Rankings)
	}

	board, err = m.Leaderboard(ctx, models.LeaderboardWeekly, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Rankings) != 3 {
		t.Errorf("clamped leaderboard has %d entries", len(board.Rankings))
	}
}

func TestSweep(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	if _, err := m.NewGame(ctx, id); err != nil {
		t.Fatal(err)
	}
	moved := firstMove(t, m, id)

	if n := m.Sweep(ctx, time.Hour); n != 0 || m.Active() != 1 {
		t.Errorf("Sweep(1h) dropped %d, %d active", n, m.Active())
	}
	if n := m.Sweep(ctx, -time.Second); n != 1 || m.Active() != 0 {
		t.Errorf("Sweep(-1s) dropped %d, %d active", n, m.Active())
	}

	// the dirty game was written out on the way
	stored, err := db.GetLatestGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Board != moved.Board || stored.Moves != 1 {
		t.Errorf("swept game = %+v, want board %v", stored, moved.Board)
	}
}

// failingCreateDB refuses to store new games while failCreate is set
type failingCreateDB struct {
	database.Database
	failCreate bool
}

func (f *failingCreateDB) CreateGame(ctx context.Context, game *models.GameState) error {
	if f.failCreate {
		return errors.New("disk full")
	}
	return f.Database.CreateGame(ctx, game)
}

func TestFailedNewGameKeepsCurrentGame(t *testing.T) {
	base := openDB(t)
	db := &failingCreateDB{Database: base}
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, base, "alice")

	start, err := m.NewGame(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	moved := firstMove(t, m, id)

	db.failCreate = true
	if _, err := m.NewGame(ctx, id); err == nil {
		t.Fatal("NewGame succeeded although the game could not be stored")
	}
	db.failCreate = false

	current, err := m.Current(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if current.GameID != moved.GameID || current.Board != moved.Board || !current.CanUndo {
		t.Errorf("current after failed NewGame = %+v, want %+v", current, moved)
	}

	undone, err := m.Undo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !undone.Changed || undone.Board != start.Board {
		t.Errorf("undo after failed NewGame = %+v, want board %v", undone, start.Board)
	}
}

func TestSweepSkipsBusySession(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	if _, err := m.NewGame(ctx, id); err != nil {
		t.Fatal(err)
	}

	s := m.lockSession(id)
	if n := m.Sweep(ctx, -time.Second); n != 0 || m.Active() != 1 {
		t.Errorf("Sweep dropped %d busy sessions, %d active", n, m.Active())
	}
	s.release()

	if n := m.Sweep(ctx, -time.Second); n != 1 || m.Active() != 0 {
		t.Errorf("Sweep dropped %d idle sessions, %d active", n, m.Active())
	}
}

func TestEvictedSessionIsNotReused(t *testing.T) {
	db := openDB(t)
	m := newManager(db, cache.NewMemoryCache())
	ctx := context.Background()
	id := createPlayer(t, db, "alice")

	if _, err := m.NewGame(ctx, id); err != nil {
		t.Fatal(err)
	}
	moved := firstMove(t, m, id)

	// hold the session while a request queues behind it, then evict it
	old := m.lockSession(id)
	done := make(chan models.GameResponse)
	go func() {
		resp, err := m.Current(ctx, id)
		if err != nil {
			t.Error(err)
		}
		done <- resp
	}()
	m.flushLocked(ctx, old)
	m.evict(old)
	old.release()

	resp := <-done
	if resp.GameID != moved.GameID || resp.Board != moved.Board {
		t.Errorf("current after eviction = %+v, want %+v", resp, moved)
	}

	m.mu.Lock()
	fresh := m.sessions[id]
	m.mu.Unlock()
	if fresh == nil || fresh == old {
		t.Fatal("request ran on the evicted session")
	}
	if m.Active() != 1 {
		t.Errorf("%d sessions active, want 1", m.Active())
	}
}
