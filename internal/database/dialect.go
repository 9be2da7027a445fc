package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect captures what differs between the SQL backends SQLDB runs on
type dialect struct {
	name       string
	driverName string
	schema     string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// encodeTime converts a timestamp into the column representation
	encodeTime func(time.Time) interface{}
}

var postgresDialect = dialect{
	name:       "postgres",
	driverName: "postgres",
	numbered:   true,
	encodeTime: func(t time.Time) interface{} { return t.UTC() },
	schema: `
		CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL,
			avatar VARCHAR(500) NOT NULL DEFAULT '',
			provider VARCHAR(50) NOT NULL,
			provider_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_players_provider ON players(provider, provider_id);

		CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			player_id VARCHAR(255) NOT NULL REFERENCES players(id),
			board JSONB NOT NULL,
			score BIGINT NOT NULL DEFAULT 0,
			game_over BOOLEAN NOT NULL DEFAULT FALSE,
			previous JSONB,
			moves BIGINT NOT NULL DEFAULT 0,
			score_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_player ON games(player_id, updated_at);

		CREATE TABLE IF NOT EXISTS scores (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL UNIQUE,
			player_id VARCHAR(255) NOT NULL,
			player_name VARCHAR(255) NOT NULL,
			score BIGINT NOT NULL,
			max_tile BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);
		CREATE INDEX IF NOT EXISTS idx_scores_created_at ON scores(created_at);
	`,
}

// sqlite keeps timestamps as unix milliseconds so range filters compare
// integers rather than formatted strings.
var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	encodeTime: func(t time.Time) interface{} { return t.UnixMilli() },
	schema: `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_players_provider ON players(provider, provider_id);

		CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id),
			board TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			game_over INTEGER NOT NULL DEFAULT 0,
			previous TEXT,
			moves INTEGER NOT NULL DEFAULT 0,
			score_submitted INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_player ON games(player_id, updated_at);

		CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL UNIQUE,
			player_id TEXT NOT NULL,
			player_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			max_tile INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(score DESC, created_at);
		CREATE INDEX IF NOT EXISTS idx_scores_created_at ON scores(created_at);
	`,
}

// rebind rewrites ? placeholders for dialects that number them
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// decodeTime reads a timestamp column from either dialect
func decodeTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int64:
		return time.UnixMilli(t), nil
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("cannot decode %T as a timestamp", v)
}
