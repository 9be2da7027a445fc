// Package cache keeps short-lived state in front of the database: live
// game sessions, computed leaderboards, OAuth2 login states and revoked
// tokens.
package cache

import (
	"context"
	"errors"
	"time"

	"board2048/pkg/models"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Cache interface defines caching operations
type Cache interface {
	// Game session caching
	SetGameSession(ctx context.Context, playerID string, game *models.GameState, expiration time.Duration) error
	GetGameSession(ctx context.Context, playerID string) (*models.GameState, error)
	DeleteGameSession(ctx context.Context, playerID string) error

	// Leaderboard caching, one entry per period and limit
	SetLeaderboard(ctx context.Context, leaderboardType models.LeaderboardType, limit int, entries []models.LeaderboardEntry, expiration time.Duration) error
	GetLeaderboard(ctx context.Context, leaderboardType models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error)
	InvalidateLeaderboards(ctx context.Context) error

	// OAuth2 state management
	SetOAuth2State(ctx context.Context, state string, expiration time.Duration) error
	ValidateOAuth2State(ctx context.Context, state string) bool

	// JWT blacklist
	BlacklistJWT(ctx context.Context, tokenID string, expiration time.Duration) error
	IsJWTBlacklisted(ctx context.Context, tokenID string) bool

	Close() error
}

func gameSessionKey(playerID string) string {
	return "game:session:" + playerID
}

func leaderboardKey(leaderboardType models.LeaderboardType) string {
	return "leaderboard:" + string(leaderboardType)
}

func oauth2StateKey(state string) string {
	return "oauth2:state:" + state
}

func blacklistKey(tokenID string) string {
	return "jwt:blacklist:" + tokenID
}
