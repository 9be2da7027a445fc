package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"board2048/internal/config"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements caching using Redis
type RedisCache struct {
	client *redis.Client
}

// Ensure RedisCache implements Cache interface
var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (*RedisCache, error) {
	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddress(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis", "addr", cfg.GetRedisAddress())

	return &RedisCache{client: rdb}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// set stores a value in Redis as JSON
func (r *RedisCache) set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, data, expiration).Err()
}

// get decodes a JSON value from Redis
func (r *RedisCache) get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get value: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// SetGameSession caches a game session
func (r *RedisCache) SetGameSession(ctx context.Context, playerID string, game *models.GameState, expiration time.Duration) error {
	return r.set(ctx, gameSessionKey(playerID), game, expiration)
}

// GetGameSession retrieves a cached game session
func (r *RedisCache) GetGameSession(ctx context.Context, playerID string) (*models.GameState, error) {
	var game models.GameState
	if err := r.get(ctx, gameSessionKey(playerID), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// DeleteGameSession removes a game session
func (r *RedisCache) DeleteGameSession(ctx context.Context, playerID string) error {
	return r.client.Del(ctx, gameSessionKey(playerID)).Err()
}

// SetLeaderboard caches leaderboard entries. Every limit of one period
// lives in a single hash so that invalidation is one DEL per period.
func (r *RedisCache) SetLeaderboard(ctx context.Context, leaderboardType models.LeaderboardType, limit int, entries []models.LeaderboardEntry, expiration time.Duration) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}

	key := leaderboardKey(leaderboardType)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, expiration)
	_, err = pipe.Exec(ctx)
	return err
}

// GetLeaderboard retrieves cached leaderboard entries
func (r *RedisCache) GetLeaderboard(ctx context.Context, leaderboardType models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error) {
	data, err := r.client.HGet(ctx, leaderboardKey(leaderboardType), strconv.Itoa(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

// InvalidateLeaderboards removes every cached leaderboard
func (r *RedisCache) InvalidateLeaderboards(ctx context.Context) error {
	keys := make([]string, 0, len(models.LeaderboardTypes))
	for _, t := range models.LeaderboardTypes {
		keys = append(keys, leaderboardKey(t))
	}
	return r.client.Del(ctx, keys...).Err()
}

// SetOAuth2State stores an OAuth2 state
func (r *RedisCache) SetOAuth2State(ctx context.Context, state string, expiration time.Duration) error {
	return r.client.Set(ctx, oauth2StateKey(state), "valid", expiration).Err()
}

// ValidateOAuth2State validates and removes an OAuth2 state
func (r *RedisCache) ValidateOAuth2State(ctx context.Context, state string) bool {
	// Use a Lua script to atomically check and delete
	script := `
		if redis.call("exists", KEYS[1]) == 1 then
			redis.call("del", KEYS[1])
			return 1
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{oauth2StateKey(state)}).Int64()
	if err != nil {
		return false
	}

	return result == 1
}

// BlacklistJWT adds a JWT token to the blacklist
func (r *RedisCache) BlacklistJWT(ctx context.Context, tokenID string, expiration time.Duration) error {
	return r.client.Set(ctx, blacklistKey(tokenID), "blacklisted", expiration).Err()
}

// IsJWTBlacklisted checks if a JWT token is blacklisted
func (r *RedisCache) IsJWTBlacklisted(ctx context.Context, tokenID string) bool {
	result, err := r.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false
	}
	return result > 0
}
