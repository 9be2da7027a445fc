package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GormPlayer represents a player in the system using GORM
type GormPlayer struct {
	ID         string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Email      string    `gorm:"type:varchar(255)" json:"email"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Avatar     string    `gorm:"type:varchar(500)" json:"avatar"`
	Provider   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_players_provider" json:"provider"`
	ProviderID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_players_provider" json:"provider_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Games []GormGame `gorm:"foreignKey:PlayerID" json:"games,omitempty"`
}

// TableName specifies the table name for GormPlayer
func (GormPlayer) TableName() string {
	return "players"
}

// ToPlayer converts GormPlayer to Player
func (gp *GormPlayer) ToPlayer() *Player {
	return &Player{
		ID:         gp.ID,
		Email:      gp.Email,
		Name:       gp.Name,
		Avatar:     gp.Avatar,
		Provider:   gp.Provider,
		ProviderID: gp.ProviderID,
		CreatedAt:  gp.CreatedAt,
		UpdatedAt:  gp.UpdatedAt,
	}
}

// FromPlayer converts Player to GormPlayer
func (gp *GormPlayer) FromPlayer(p *Player) {
	gp.ID = p.ID
	gp.Email = p.Email
	gp.Name = p.Name
	gp.Avatar = p.Avatar
	gp.Provider = p.Provider
	gp.ProviderID = p.ProviderID
	gp.CreatedAt = p.CreatedAt
	gp.UpdatedAt = p.UpdatedAt
}

// GormGame represents a game session using GORM
type GormGame struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PlayerID       string        `gorm:"type:varchar(255);not null;index:idx_games_player" json:"player_id"`
	Board          BoardJSON     `gorm:"type:jsonb;not null" json:"board"`
	Score          int           `gorm:"not null;default:0" json:"score"`
	GameOver       bool          `gorm:"not null;default:false" json:"game_over"`
	Previous       *SnapshotJSON `gorm:"type:jsonb" json:"previous"`
	Moves          int           `gorm:"not null;default:0" json:"moves"`
	ScoreSubmitted bool          `gorm:"not null;default:false" json:"score_submitted"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime;index:idx_games_player" json:"updated_at"`

	// Relationships
	Player GormPlayer `gorm:"foreignKey:PlayerID;references:ID" json:"player,omitempty"`
}

// TableName specifies the table name for GormGame
func (GormGame) TableName() string {
	return "games"
}

// BoardJSON is a custom type for handling JSON serialization of the game board
type BoardJSON Board

// Scan implements the sql.Scanner interface for reading from database
func (b *BoardJSON) Scan(value interface{}) error {
	if value == nil {
		*b = BoardJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into BoardJSON: %w", err)
	}

	var board Board
	if err := json.Unmarshal(bytes, &board); err != nil {
		return err
	}

	*b = BoardJSON(board)
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (b BoardJSON) Value() (driver.Value, error) {
	return json.Marshal(Board(b))
}

// SnapshotJSON stores the undo snapshot as a JSON column
type SnapshotJSON Snapshot

// Scan implements the sql.Scanner interface for reading from database
func (s *SnapshotJSON) Scan(value interface{}) error {
	if value == nil {
		*s = SnapshotJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into SnapshotJSON: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(bytes, &snap); err != nil {
		return err
	}

	*s = SnapshotJSON(snap)
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (s SnapshotJSON) Value() (driver.Value, error) {
	return json.Marshal(Snapshot(s))
}

// scanBytes accepts the []byte postgres returns for jsonb and the string
// sqlite returns for TEXT columns.
func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported type %T", value)
}

// ToGameState converts GormGame to GameState
func (gg *GormGame) ToGameState() *GameState {
	var previous *Snapshot
	if gg.Previous != nil {
		snap := Snapshot(*gg.Previous)
		previous = &snap
	}

	return &GameState{
		ID:             gg.ID,
		PlayerID:       gg.PlayerID,
		Board:          Board(gg.Board),
		Score:          gg.Score,
		GameOver:       gg.GameOver,
		Previous:       previous,
		Moves:          gg.Moves,
		ScoreSubmitted: gg.ScoreSubmitted,
		CreatedAt:      gg.CreatedAt,
		UpdatedAt:      gg.UpdatedAt,
	}
}

// FromGameState converts GameState to GormGame
func (gg *GormGame) FromGameState(gs *GameState) {
	gg.ID = gs.ID
	gg.PlayerID = gs.PlayerID
	gg.Board = BoardJSON(gs.Board)
	gg.Score = gs.Score
	gg.GameOver = gs.GameOver
	gg.Moves = gs.Moves
	gg.ScoreSubmitted = gs.ScoreSubmitted

	if gs.Previous != nil {
		snap := SnapshotJSON(*gs.Previous)
		gg.Previous = &snap
	} else {
		gg.Previous = nil
	}

	gg.CreatedAt = gs.CreatedAt
	gg.UpdatedAt = gs.UpdatedAt
}

// GormScore is a leaderboard entry saved after a finished game
type GormScore struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GameID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"game_id"`
	PlayerID   string    `gorm:"type:varchar(255);not null;index" json:"player_id"`
	PlayerName string    `gorm:"type:varchar(255);not null" json:"player_name"`
	Score      int       `gorm:"not null;index:idx_scores_score,sort:desc" json:"score"`
	MaxTile    int       `gorm:"not null" json:"max_tile"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_scores_created_at" json:"created_at"`
}

// TableName specifies the table name for GormScore
func (GormScore) TableName() string {
	return "scores"
}

// ToScoreRecord converts GormScore to ScoreRecord
func (gs *GormScore) ToScoreRecord() *ScoreRecord {
	return &ScoreRecord{
		ID:         gs.ID,
		GameID:     gs.GameID,
		PlayerID:   gs.PlayerID,
		PlayerName: gs.PlayerName,
		Score:      gs.Score,
		MaxTile:    gs.MaxTile,
		CreatedAt:  gs.CreatedAt,
	}
}

// FromScoreRecord converts ScoreRecord to GormScore
func (gs *GormScore) FromScoreRecord(r *ScoreRecord) {
	gs.ID = r.ID
	gs.GameID = r.GameID
	gs.PlayerID = r.PlayerID
	gs.PlayerName = r.PlayerName
	gs.Score = r.Score
	gs.MaxTile = r.MaxTile
	gs.CreatedAt = r.CreatedAt
}
