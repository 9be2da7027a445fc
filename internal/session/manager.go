// Package session owns the live game of every player. Each player's
// engine sits behind its own mutex, so one game is only ever mutated by
// one caller at a time whether the request arrives over REST, WebSocket
// or MCP.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"board2048/internal/auth"
	"board2048/internal/cache"
	"board2048/internal/database"
	"board2048/internal/game"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	// ErrNoActiveGame is returned when the player has never started a game
	ErrNoActiveGame = errors.New("no active game")
	// ErrGameNotOver is returned when a score is submitted for a running game
	ErrGameNotOver = errors.New("game is not over")
	// ErrScoreAlreadySubmitted is returned for a second submission of one game
	ErrScoreAlreadySubmitted = errors.New("score already submitted")
)

// Options tune a Manager
type Options struct {
	Rules game.Rules
	// SessionTTL bounds how long a game stays cached and in memory unused
	SessionTTL     time.Duration
	LeaderboardTTL time.Duration
	DefaultLimit   int
	MaxLimit       int
	// Seed makes every engine the manager creates reproducible; 0 seeds from the clock
	Seed int64
}

// Manager handles all live game sessions
type Manager struct {
	db     database.Database
	cache  cache.Cache
	logger *log.Logger
	opts   Options

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session is one player's engine and the stored game it plays
type Session struct {
	mu       sync.Mutex
	playerID string
	engine   *game.Engine
	state    *models.GameState
	loaded   bool
	dirty    bool
	// evicted is set once Sweep has removed the session from the manager
	evicted  bool
	lastUsed time.Time
}

// NewManager creates a new session manager
func NewManager(db database.Database, c cache.Cache, logger *log.Logger, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.LeaderboardTTL <= 0 {
		opts.LeaderboardTTL = 5 * time.Minute
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Manager{
		db:       db,
		cache:    c,
		logger:   logger,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		sessions: make(map[string]*Session),
	}
}

// Rules returns the rules every engine plays by
func (m *Manager) Rules() game.Rules {
	return m.opts.Rules
}

func (m *Manager) newEngine() *game.Engine {
	m.rngMu.Lock()
	seed := m.rng.Int63()
	m.rngMu.Unlock()
	return game.NewEngine(game.WithRules(m.opts.Rules), game.WithSeed(seed))
}

// acquire returns the player's session locked and restored from storage.
// The caller must call release.
func (m *Manager) acquire(ctx context.Context, playerID string) (*Session, error) {
	s := m.lockSession(playerID)
	s.lastUsed = time.Now()
	if !s.loaded {
		if err := m.restore(ctx, s); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	return s, nil
}

// lockSession returns the player's registered session with its mutex
// held, creating it if needed. A session evicted by Sweep between the
// lookup and the lock is skipped and the lookup retried.
func (m *Manager) lockSession(playerID string) *Session {
	for {
		m.mu.Lock()
		s, ok := m.sessions[playerID]
		if !ok {
			s = &Session{playerID: playerID, engine: m.newEngine()}
			m.sessions[playerID] = s
		}
		m.mu.Unlock()

		s.mu.Lock()
		if !s.evicted {
			return s
		}
		s.mu.Unlock()
	}
}

func (s *Session) release() {
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// restore loads the player's latest game: cache first, then the database
func (m *Manager) restore(ctx context.Context, s *Session) error {
	state, err := m.cache.GetGameSession(ctx, s.playerID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			m.logger.Warn("failed to read cached game", "player", s.playerID, "error", err)
		}
		state, err = m.db.GetLatestGame(ctx, s.playerID)
		if errors.Is(err, database.ErrNotFound) {
			s.state = nil
			s.loaded = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load game: %w", err)
		}
	}

	if err := s.engine.Load(state.EngineState()); err != nil {
		m.logger.Warn("discarding unreadable saved game", "player", s.playerID, "game", state.ID, "error", err)
		s.state = nil
		s.loaded = true
		return nil
	}

	state.ApplyEngineState(s.engine.State())
	s.state = state
	s.loaded = true
	return nil
}

// persist writes the session's game to the cache and, when toDB is set or
// the cache fails, to the database. A game that only reached the cache is
// marked dirty and written out by Flush or Sweep.
func (m *Manager) persist(ctx context.Context, s *Session, toDB bool) error {
	s.state.ApplyEngineState(s.engine.State())
	s.state.UpdatedAt = time.Now()

	if err := m.cache.SetGameSession(ctx, s.playerID, s.state, m.opts.SessionTTL); err != nil {
		m.logger.Warn("failed to cache game session", "player", s.playerID, "error", err)
		toDB = true
	}

	if !toDB {
		s.dirty = true
		return nil
	}
	return m.saveToDB(ctx, s)
}

func (m *Manager) saveToDB(ctx context.Context, s *Session) error {
	// Try to update first, if the game is not in the database create it
	err := m.db.UpdateGame(ctx, s.state)
	if errors.Is(err, database.ErrNotFound) {
		err = m.db.CreateGame(ctx, s.state)
	}
	if err != nil {
		s.dirty = true
		return fmt.Errorf("failed to save game: %w", err)
	}
	s.dirty = false
	return nil
}

func (m *Manager) response(s *Session, changed bool) models.GameResponse {
	return models.NewGameResponse(s.state, changed, m.opts.Rules.TargetTile)
}

// Current returns the player's game without changing it
func (m *Manager) Current(ctx context.Context, playerID string) (models.GameResponse, error) {
	s, err := m.acquire(ctx, playerID)
	if err != nil {
		return models.GameResponse{}, err
	}
	defer s.release()

	if s.state == nil {
		return models.GameResponse{}, ErrNoActiveGame
	}
	return m.response(s, false), nil
}

// NewGame discards the player's current game and starts another
func (m *Manager) NewGame(ctx context.Context, playerID string) (models.GameResponse, error) {
	s, err := m.acquire(ctx, playerID)
	if err != nil {
		return models.GameResponse{}, err
	}
	defer s.release()

	// the current game stays in place until the new one is stored
	engine := m.newEngine()
	tiles, err := engine.NewGame()
	if err != nil {
		return models.GameResponse{}, fmt.Errorf("failed to start game: %w", err)
	}

	state := &models.GameState{
		ID:       uuid.New(),
		PlayerID: playerID,
	}
	state.ApplyEngineState(engine.State())

	if err := m.db.CreateGame(ctx, state); err != nil {
		return models.GameResponse{}, fmt.Errorf("failed to create game: %w", err)
	}
	s.engine = engine
	s.state = state
	s.dirty = false

	if err := m.cache.SetGameSession(ctx, playerID, state, m.opts.SessionTTL); err != nil {
		m.logger.Warn("failed to cache new game", "player", playerID, "error", err)
	}

	m.logger.Debug("new game", "player", playerID, "game", state.ID, "tiles", tiles)
	return m.response(s, true), nil
}

// Move applies a move to the player's game. A move that changes nothing
// returns the unchanged game with Changed false.
func (m *Manager) Move(ctx context.Context, playerID string, direction models.Direction) (models.GameResponse, error) {
	if !direction.Valid() {
		return models.GameResponse{}, fmt.Errorf("%w: %q", models.ErrInvalidDirection, direction)
	}

	s, err := m.acquire(ctx, playerID)
	if err != nil {
		return models.GameResponse{}, err
	}
	defer s.release()

	if s.state == nil {
		return models.GameResponse{}, ErrNoActiveGame
	}

	changed, err := s.engine.Move(direction)
	if err != nil {
		return models.GameResponse{}, err
	}
	if !changed {
		return m.response(s, false), nil
	}

	s.state.Moves++
	over := s.engine.IsGameOver()
	if err := m.persist(ctx, s, over); err != nil {
		m.logger.Error("failed to persist move", "player", playerID, "error", err)
	}
	if over {
		m.logger.Info("game over", "player", playerID, "game", s.state.ID,
			"score", s.state.Score, "max_tile", s.state.Board.MaxTile(), "moves", s.state.Moves)
	}

	return m.response(s, true), nil
}

// Undo reverts the player's last move. Changed reports whether anything
// was undone.
func (m *Manager) Undo(ctx context.Context, playerID string) (models.GameResponse, error) {
	s, err := m.acquire(ctx, playerID)
	if err != nil {
		return models.GameResponse{}, err
	}
	defer s.release()

	if s.state == nil {
		return models.GameResponse{}, ErrNoActiveGame
	}

	if !s.engine.Undo() {
		return m.response(s, false), nil
	}

	if err := m.persist(ctx, s, false); err != nil {
		m.logger.Error("failed to persist undo", "player", playerID, "error", err)
	}
	return m.response(s, true), nil
}

// SubmitScore records the player's finished game on the leaderboard under
// name, or under anonymous when name is blank.
func (m *Manager) SubmitScore(ctx context.Context, playerID, name, anonymous string) (*models.ScoreRecord, error) {
	s, err := m.acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer s.release()

	switch {
	case s.state == nil:
		return nil, ErrNoActiveGame
	case !s.state.GameOver:
		return nil, ErrGameNotOver
	case s.state.ScoreSubmitted:
		return nil, ErrScoreAlreadySubmitted
	}

	name = auth.CleanName(name)
	if name == "" {
		name = anonymous
	}

	record := &models.ScoreRecord{
		GameID:     s.state.ID,
		PlayerID:   playerID,
		PlayerName: name,
		Score:      s.state.Score,
		MaxTile:    s.state.Board.MaxTile(),
	}

	err = m.db.AddScore(ctx, record)
	if err != nil && !errors.Is(err, database.ErrDuplicate) {
		return nil, err
	}

	s.state.ScoreSubmitted = true
	if perr := m.persist(ctx, s, true); perr != nil {
		m.logger.Error("failed to persist submitted game", "player", playerID, "error", perr)
	}

	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrScoreAlreadySubmitted
	}

	m.invalidateLeaderboards(ctx)
	m.logger.Info("score saved", "player", playerID, "name", name, "score", record.Score)
	return record, nil
}

// Leaderboard returns the top entries of a period. A limit outside
// (0, max] is replaced by the default or the max.
func (m *Manager) Leaderboard(ctx context.Context, leaderboardType models.LeaderboardType, limit int) (models.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = m.opts.DefaultLimit
	}
	if limit > m.opts.MaxLimit {
		limit = m.opts.MaxLimit
	}

	entries, err := m.cache.GetLeaderboard(ctx, leaderboardType, limit)
	if err == nil {
		return models.LeaderboardResponse{Type: leaderboardType, Rankings: entries}, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		m.logger.Warn("failed to read cached leaderboard", "type", leaderboardType, "error", err)
	}

	entries, err = m.db.GetLeaderboard(ctx, leaderboardType.Since(time.Now()), limit)
	if err != nil {
		return models.LeaderboardResponse{}, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	if err := m.cache.SetLeaderboard(ctx, leaderboardType, limit, entries, m.opts.LeaderboardTTL); err != nil {
		m.logger.Warn("failed to cache leaderboard", "type", leaderboardType, "error", err)
	}

	return models.LeaderboardResponse{Type: leaderboardType, Rankings: entries}, nil
}

// ClearLeaderboard deletes every saved score
func (m *Manager) ClearLeaderboard(ctx context.Context) (int64, error) {
	removed, err := m.db.ClearLeaderboard(ctx)
	if err != nil {
		return 0, err
	}
	m.invalidateLeaderboards(ctx)
	m.logger.Info("leaderboard cleared", "removed", removed)
	return removed, nil
}

// RefreshLeaderboards drops every cached leaderboard
func (m *Manager) RefreshLeaderboards(ctx context.Context) error {
	return m.cache.InvalidateLeaderboards(ctx)
}

func (m *Manager) invalidateLeaderboards(ctx context.Context) {
	if err := m.cache.InvalidateLeaderboards(ctx); err != nil {
		m.logger.Warn("failed to invalidate leaderboard cache", "error", err)
	}
}

// Sweep drops sessions unused for longer than idle, writing unsaved games
// to the database first. Sessions busy with a request are left alone. It
// returns how many sessions were dropped.
func (m *Manager) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	dropped := 0
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		if !s.evicted && s.lastUsed.Before(cutoff) {
			m.flushLocked(ctx, s)
			m.evict(s)
			dropped++
		}
		s.mu.Unlock()
	}
	return dropped
}

// evict removes s from the manager. The caller holds s.mu; requests that
// already looked s up will see the flag and start a fresh session.
func (m *Manager) evict(s *Session) {
	s.evicted = true
	m.mu.Lock()
	if m.sessions[s.playerID] == s {
		delete(m.sessions, s.playerID)
	}
	m.mu.Unlock()
}

// Flush writes every unsaved game to the database
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.flushSession(ctx, s)
	}
}

func (m *Manager) flushSession(ctx context.Context, s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.flushLocked(ctx, s)
}

func (m *Manager) flushLocked(ctx context.Context, s *Session) {
	if !s.dirty || s.state == nil {
		return
	}
	if err := m.saveToDB(ctx, s); err != nil {
		m.logger.Error("failed to flush game", "player", s.playerID, "error", err)
	}
}

// Active returns the number of sessions held in memory
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
