package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"board2048/pkg/models"
)

type memoryItem struct {
	data    []byte
	expires time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expires.IsZero() && !now.Before(i.expires)
}

// MemoryCache is a process-local Cache used when Redis is disabled.
// Values are stored as JSON so callers never share memory with the cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// Ensure MemoryCache implements Cache interface
var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Close drops every entry
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryItem)
	return nil
}

func (m *MemoryCache) set(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	item := memoryItem{data: data}
	if expiration > 0 {
		item.expires = m.now().Add(expiration)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

// lookup returns a live item, evicting it when expired
func (m *MemoryCache) lookup(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if item.expired(m.now()) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return item, true
}

func (m *MemoryCache) get(key string, dest interface{}) error {
	m.mu.Lock()
	item, ok := m.lookup(key)
	m.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (m *MemoryCache) delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
}

// SetGameSession caches a game session
func (m *MemoryCache) SetGameSession(_ context.Context, playerID string, game *models.GameState, expiration time.Duration) error {
	return m.set(gameSessionKey(playerID), game, expiration)
}

// GetGameSession retrieves a cached game session
func (m *MemoryCache) GetGameSession(_ context.Context, playerID string) (*models.GameState, error) {
	var game models.GameState
	if err := m.get(gameSessionKey(playerID), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// DeleteGameSession removes a game session
func (m *MemoryCache) DeleteGameSession(_ context.Context, playerID string) error {
	m.delete(gameSessionKey(playerID))
	return nil
}

// SetLeaderboard caches leaderboard entries
func (m *MemoryCache) SetLeaderboard(_ context.Context, leaderboardType models.LeaderboardType, limit int, entries []models.LeaderboardEntry, expiration time.Duration) error {
	return m.set(leaderboardKey(leaderboardType)+":"+strconv.Itoa(limit), entries, expiration)
}

// GetLeaderboard retrieves cached leaderboard entries
func (m *MemoryCache) GetLeaderboard(_ context.Context, leaderboardType models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := m.get(leaderboardKey(leaderboardType)+":"+strconv.Itoa(limit), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// InvalidateLeaderboards removes every cached leaderboard
func (m *MemoryCache) InvalidateLeaderboards(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		for _, t := range models.LeaderboardTypes {
			if strings.HasPrefix(key, leaderboardKey(t)+":") {
				delete(m.items, key)
			}
		}
	}
	return nil
}

// SetOAuth2State stores an OAuth2 state
func (m *MemoryCache) SetOAuth2State(_ context.Context, state string, expiration time.Duration) error {
	return m.set(oauth2StateKey(state), true, expiration)
}

// ValidateOAuth2State validates and removes an OAuth2 state
func (m *MemoryCache) ValidateOAuth2State(_ context.Context, state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := oauth2StateKey(state)
	if _, ok := m.lookup(key); !ok {
		return false
	}
	delete(m.items, key)
	return true
}

// BlacklistJWT adds a JWT token to the blacklist
func (m *MemoryCache) BlacklistJWT(_ context.Context, tokenID string, expiration time.Duration) error {
	return m.set(blacklistKey(tokenID), true, expiration)
}

// IsJWTBlacklisted checks if a JWT token is blacklisted
func (m *MemoryCache) IsJWTBlacklisted(_ context.Context, tokenID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(blacklistKey(tokenID))
	return ok
}
