package database

import (
	"context"
	"errors"
	"time"

	"board2048/pkg/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a score for the same game already exists
	ErrDuplicate = errors.New("already exists")
)

// Database defines the interface for database operations
type Database interface {
	// Player operations
	UpsertPlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	GetPlayerByProvider(ctx context.Context, provider, providerID string) (*models.Player, error)

	// Game operations
	CreateGame(ctx context.Context, game *models.GameState) error
	UpdateGame(ctx context.Context, game *models.GameState) error
	GetGame(ctx context.Context, gameID uuid.UUID, playerID string) (*models.GameState, error)
	GetLatestGame(ctx context.Context, playerID string) (*models.GameState, error)

	// Leaderboard operations
	AddScore(ctx context.Context, score *models.ScoreRecord) error
	GetLeaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error)
	ClearLeaderboard(ctx context.Context) (int64, error)

	// Schema and connection management
	Migrate(ctx context.Context) error
	Close() error
}

// rankEntries numbers entries from 1 in the order given
func rankEntries(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
