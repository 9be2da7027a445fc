package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidDirection is returned for any direction outside up/down/left/right
var ErrInvalidDirection = errors.New("invalid direction")

// Direction represents the direction of a move
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Directions lists every valid move direction
var Directions = []Direction{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// Valid reports whether d is one of the four move directions
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// ParseDirection converts client input into a Direction
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return d, nil
}

// Snapshot is the state captured before an accepted move, used for undo
type Snapshot struct {
	Board Board `json:"board"`
	Score int   `json:"score"`
}

// EngineState is everything an engine needs to resume a game
type EngineState struct {
	Board    Board     `json:"board"`
	Score    int       `json:"score"`
	GameOver bool      `json:"game_over"`
	Previous *Snapshot `json:"previous,omitempty"`
}

// GameState represents a player's game as stored by the server
type GameState struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PlayerID       string    `json:"player_id" db:"player_id"`
	Board          Board     `json:"board" db:"board"`
	Score          int       `json:"score" db:"score"`
	GameOver       bool      `json:"game_over" db:"game_over"`
	Previous       *Snapshot `json:"previous,omitempty" db:"previous"`
	Moves          int       `json:"moves" db:"moves"`
	ScoreSubmitted bool      `json:"score_submitted" db:"score_submitted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// EngineState extracts the part of the game the engine owns
func (g *GameState) EngineState() EngineState {
	return EngineState{
		Board:    g.Board,
		Score:    g.Score,
		GameOver: g.GameOver,
		Previous: g.Previous,
	}
}

// ApplyEngineState copies engine-owned fields into the game
func (g *GameState) ApplyEngineState(s EngineState) {
	g.Board = s.Board
	g.Score = s.Score
	g.GameOver = s.GameOver
	g.Previous = s.Previous
}

// Player represents a player account (guest or OAuth2)
type Player struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email,omitempty" db:"email"`
	Avatar     string    `json:"avatar,omitempty" db:"avatar"`
	Provider   string    `json:"provider" db:"provider"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderGuest marks players created without an external identity
const ProviderGuest = "guest"

// ScoreRecord is a saved leaderboard score
type ScoreRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	GameID     uuid.UUID `json:"game_id" db:"game_id"`
	PlayerID   string    `json:"player_id" db:"player_id"`
	PlayerName string    `json:"player_name" db:"player_name"`
	Score      int       `json:"score" db:"score"`
	MaxTile    int       `json:"max_tile" db:"max_tile"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LeaderboardEntry represents an entry in the leaderboard
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	MaxTile    int       `json:"max_tile"`
	GameID     uuid.UUID `json:"game_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeaderboardType represents different types of leaderboards
type LeaderboardType string

const (
	LeaderboardDaily   LeaderboardType = "daily"
	LeaderboardWeekly  LeaderboardType = "weekly"
	LeaderboardMonthly LeaderboardType = "monthly"
	LeaderboardAll     LeaderboardType = "all"
)

// LeaderboardTypes lists every leaderboard period
var LeaderboardTypes = []LeaderboardType{LeaderboardDaily, LeaderboardWeekly, LeaderboardMonthly, LeaderboardAll}

// ParseLeaderboardType converts a query value into a LeaderboardType.
// An empty value selects the all-time board.
func ParseLeaderboardType(s string) (LeaderboardType, error) {
	if s == "" {
		return LeaderboardAll, nil
	}
	t := LeaderboardType(s)
	switch t {
	case LeaderboardDaily, LeaderboardWeekly, LeaderboardMonthly, LeaderboardAll:
		return t, nil
	}
	return "", fmt.Errorf("invalid leaderboard type %q", s)
}

// Since returns the start of the period containing now, in now's location.
// Weeks start on Monday. The all-time board returns the zero time.
func (t LeaderboardType) Since(now time.Time) time.Time {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch t {
	case LeaderboardDaily:
		return day
	case LeaderboardWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case LeaderboardMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// MoveRequest represents a move request from the client
type MoveRequest struct {
	Direction string `json:"direction"`
}

// SubmitScoreRequest asks to record the finished game on the leaderboard
type SubmitScoreRequest struct {
	Name string `json:"name"`
}

// LeaderboardRequest represents a leaderboard request
type LeaderboardRequest struct {
	Type  LeaderboardType `json:"type"`
	Limit int             `json:"limit"`
}

// GuestRequest creates a guest player
type GuestRequest struct {
	Name string `json:"name"`
}

// GameResponse represents the response sent to client after an action
type GameResponse struct {
	GameID   uuid.UUID `json:"game_id"`
	Board    Board     `json:"board"`
	Score    int       `json:"score"`
	GameOver bool      `json:"game_over"`
	CanUndo  bool      `json:"can_undo"`
	Changed  bool      `json:"changed"`
	MaxTile  int       `json:"max_tile"`
	Won      bool      `json:"won"`
	Moves    int       `json:"moves"`
	Message  string    `json:"message,omitempty"`
}

// NewGameResponse builds the wire form of a game. targetTile <= 0 disables the won flag.
func NewGameResponse(g *GameState, changed bool, targetTile int) GameResponse {
	maxTile := g.Board.MaxTile()
	return GameResponse{
		GameID:   g.ID,
		Board:    g.Board,
		Score:    g.Score,
		GameOver: g.GameOver,
		CanUndo:  g.Previous != nil && !g.GameOver,
		Changed:  changed,
		MaxTile:  maxTile,
		Won:      targetTile > 0 && maxTile >= targetTile,
		Moves:    g.Moves,
	}
}

// LeaderboardResponse represents the leaderboard response
type LeaderboardResponse struct {
	Type     LeaderboardType    `json:"type"`
	Rankings []LeaderboardEntry `json:"rankings"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
