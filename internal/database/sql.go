package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLDB implements Database with hand-written SQL over database/sql. It
// runs on PostgreSQL through lib/pq or on a local SQLite file.
type SQLDB struct {
	db      *sql.DB
	dialect dialect
}

// Ensure SQLDB implements Database interface
var _ Database = (*SQLDB)(nil)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(dsn string, logger *log.Logger) (*SQLDB, error) {
	db, err := sql.Open(postgresDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("connected to PostgreSQL")

	return &SQLDB{db: db, dialect: postgresDialect}, nil
}

// NewSQLiteDB creates or opens a SQLite database at the given path,
// creating parent directories as needed. ":memory:" opens a private
// in-memory database.
func NewSQLiteDB(dbPath string, logger *log.Logger) (*SQLDB, error) {
	if dbPath != ":memory:" {
		// Expand ~ to home directory
		if dbPath != "" && dbPath[0] == '~' {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("cannot expand home directory: %w", err)
			}
			dbPath = filepath.Join(home, dbPath[1:])
		}

		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open(sqliteDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}

	logger.Info("opened SQLite database", "path", dbPath)

	return &SQLDB{db: db, dialect: sqliteDialect}, nil
}

// Migrate creates the database schema if it doesn't exist
func (s *SQLDB) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("%s migration failed: %w", s.dialect.name, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLDB) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDB) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDB) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// UpsertPlayer creates the player or refreshes the profile of the player
// with the same provider identity. The player's ID is set from the stored row.
func (s *SQLDB) UpsertPlayer(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	now := time.Now()

	query := `
		INSERT INTO players (id, email, name, avatar, provider, provider_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar = excluded.avatar,
			updated_at = excluded.updated_at
		RETURNING id, created_at`

	var createdAt interface{}
	err := s.queryRow(ctx, query, player.ID, player.Email, player.Name, player.Avatar,
		player.Provider, player.ProviderID, s.dialect.encodeTime(now), s.dialect.encodeTime(now)).
		Scan(&player.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}

	if player.CreatedAt, err = decodeTime(createdAt); err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	player.UpdatedAt = now
	return nil
}

const playerColumns = `id, email, name, avatar, provider, provider_id, created_at, updated_at`

func scanPlayer(row rowScanner) (*models.Player, error) {
	player := &models.Player{}
	var createdAt, updatedAt interface{}
	if err := row.Scan(&player.ID, &player.Email, &player.Name, &player.Avatar,
		&player.Provider, &player.ProviderID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if player.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if player.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return player, nil
}

// GetPlayer retrieves a player by ID
func (s *SQLDB) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	player, err := scanPlayer(s.queryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ?`, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetPlayerByProvider retrieves a player by provider and provider ID
func (s *SQLDB) GetPlayerByProvider(ctx context.Context, provider, providerID string) (*models.Player, error) {
	player, err := scanPlayer(s.queryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE provider = ? AND provider_id = ?`, provider, providerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %s/%s: %w", provider, providerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get player by provider: %w", err)
	}
	return player, nil
}

// encodeGame renders the JSON columns of a game. JSON is passed as text:
// lib/pq would send []byte as bytea, which jsonb rejects.
func encodeGame(game *models.GameState) (board string, previous sql.NullString, err error) {
	boardJSON, err := json.Marshal(game.Board)
	if err != nil {
		return "", previous, fmt.Errorf("failed to marshal board: %w", err)
	}
	if game.Previous != nil {
		prevJSON, err := json.Marshal(game.Previous)
		if err != nil {
			return "", previous, fmt.Errorf("failed to marshal undo snapshot: %w", err)
		}
		previous = sql.NullString{String: string(prevJSON), Valid: true}
	}
	return string(boardJSON), previous, nil
}

// CreateGame creates a new game
func (s *SQLDB) CreateGame(ctx context.Context, game *models.GameState) error {
	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	board, previous, err := encodeGame(game)
	if err != nil {
		return err
	}

	now := time.Now()
	game.CreatedAt = now
	game.UpdatedAt = now

	query := `
		INSERT INTO games (id, player_id, board, score, game_over, previous, moves, score_submitted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.exec(ctx, query, game.ID, game.PlayerID, board, game.Score, game.GameOver,
		previous, game.Moves, game.ScoreSubmitted,
		s.dialect.encodeTime(game.CreatedAt), s.dialect.encodeTime(game.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return nil
}

// UpdateGame updates an existing game
func (s *SQLDB) UpdateGame(ctx context.Context, game *models.GameState) error {
	board, previous, err := encodeGame(game)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE games
		SET board = ?, score = ?, game_over = ?, previous = ?, moves = ?, score_submitted = ?, updated_at = ?
		WHERE id = ? AND player_id = ?`

	result, err := s.exec(ctx, query, board, game.Score, game.GameOver, previous,
		game.Moves, game.ScoreSubmitted, s.dialect.encodeTime(now), game.ID, game.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("game %s: %w", game.ID, ErrNotFound)
	}

	game.UpdatedAt = now
	return nil
}

const gameColumns = `id, player_id, board, score, game_over, previous, moves, score_submitted, created_at, updated_at`

func scanGame(row rowScanner) (*models.GameState, error) {
	game := &models.GameState{}
	var boardJSON, previousJSON []byte
	var createdAt, updatedAt interface{}

	if err := row.Scan(&game.ID, &game.PlayerID, &boardJSON, &game.Score, &game.GameOver,
		&previousJSON, &game.Moves, &game.ScoreSubmitted, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(boardJSON, &game.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(previousJSON) > 0 {
		var snap models.Snapshot
		if err := json.Unmarshal(previousJSON, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal undo snapshot: %w", err)
		}
		game.Previous = &snap
	}

	var err error
	if game.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if game.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return game, nil
}

// GetGame retrieves a game by ID and player ID
func (s *SQLDB) GetGame(ctx context.Context, gameID uuid.UUID, playerID string) (*models.GameState, error) {
	game, err := scanGame(s.queryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ? AND player_id = ?`, gameID, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// GetLatestGame retrieves the player's most recently played game
func (s *SQLDB) GetLatestGame(ctx context.Context, playerID string) (*models.GameState, error) {
	game, err := scanGame(s.queryRow(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE player_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("latest game of %s: %w", playerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest game: %w", err)
	}
	return game, nil
}

// AddScore saves a finished game's score. A second score for the same
// game returns ErrDuplicate.
func (s *SQLDB) AddScore(ctx context.Context, score *models.ScoreRecord) error {
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO scores (id, game_id, player_id, player_name, score, max_tile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO NOTHING`

	result, err := s.exec(ctx, query, score.ID, score.GameID, score.PlayerID, score.PlayerName,
		score.Score, score.MaxTile, s.dialect.encodeTime(score.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add score: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("score for game %s: %w", score.GameID, ErrDuplicate)
	}
	return nil
}

// GetLeaderboard returns the best scores saved at or after since, highest
// first, earlier entries winning ties. A zero since covers all time.
func (s *SQLDB) GetLeaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	query := `SELECT player_id, player_name, score, max_tile, game_id, created_at FROM scores`
	var args []interface{}
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, s.dialect.encodeTime(since))
	}
	query += ` ORDER BY score DESC, created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var entry models.LeaderboardEntry
		var createdAt interface{}
		if err := rows.Scan(&entry.PlayerID, &entry.PlayerName, &entry.Score,
			&entry.MaxTile, &entry.GameID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		if entry.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	return rankEntries(entries), nil
}

// ClearLeaderboard deletes every saved score and returns how many were removed
func (s *SQLDB) ClearLeaderboard(ctx context.Context) (int64, error) {
	result, err := s.exec(ctx, `DELETE FROM scores`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	return result.RowsAffected()
}
