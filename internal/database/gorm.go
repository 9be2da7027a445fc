package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"board2048/internal/logging"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDB wraps the GORM database connection and implements Database interface
type GormDB struct {
	db *gorm.DB
}

// Ensure GormDB implements Database interface
var _ Database = (*GormDB)(nil)

// NewGormDB creates a new GORM database connection to PostgreSQL
func NewGormDB(dsn string, logger *log.Logger) (*GormDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logging.GormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to PostgreSQL with GORM")

	return &GormDB{db: db}, nil
}

// Migrate runs database migrations
func (g *GormDB) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(
		&models.GormPlayer{},
		&models.GormGame{},
		&models.GormScore{},
	)
}

// Close closes the database connection
func (g *GormDB) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertPlayer creates the player or refreshes the profile of the player
// with the same provider identity. The player's ID is set from the stored row.
func (g *GormDB) UpsertPlayer(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	gormPlayer := &models.GormPlayer{}
	gormPlayer.FromPlayer(player)

	result := g.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", player.Provider, player.ProviderID).
		Assign(models.GormPlayer{
			Email:     player.Email,
			Name:      player.Name,
			Avatar:    player.Avatar,
			UpdatedAt: time.Now(),
		}).
		FirstOrCreate(gormPlayer)

	if result.Error != nil {
		return fmt.Errorf("failed to upsert player: %w", result.Error)
	}

	// Update the original player with the database values
	*player = *gormPlayer.ToPlayer()
	return nil
}

// GetPlayer retrieves a player by ID
func (g *GormDB) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var gormPlayer models.GormPlayer
	result := g.db.WithContext(ctx).Where("id = ?", playerID).First(&gormPlayer)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get player: %w", result.Error)
	}

	return gormPlayer.ToPlayer(), nil
}

// GetPlayerByProvider retrieves a player by provider and provider ID
func (g *GormDB) GetPlayerByProvider(ctx context.Context, provider, providerID string) (*models.Player, error) {
	var gormPlayer models.GormPlayer
	result := g.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&gormPlayer)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player %s/%s: %w", provider, providerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get player by provider: %w", result.Error)
	}

	return gormPlayer.ToPlayer(), nil
}

// CreateGame creates a new game
func (g *GormDB) CreateGame(ctx context.Context, game *models.GameState) error {
	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	gormGame := &models.GormGame{}
	gormGame.FromGameState(game)

	result := g.db.WithContext(ctx).Omit(clause.Associations).Create(gormGame)
	if result.Error != nil {
		return fmt.Errorf("failed to create game: %w", result.Error)
	}

	// Update the original game with the database values
	*game = *gormGame.ToGameState()
	return nil
}

// UpdateGame updates an existing game
func (g *GormDB) UpdateGame(ctx context.Context, game *models.GameState) error {
	gormGame := &models.GormGame{}
	gormGame.FromGameState(game)

	now := time.Now()
	result := g.db.WithContext(ctx).Model(&models.GormGame{}).
		Where("id = ? AND player_id = ?", game.ID, game.PlayerID).
		Updates(map[string]interface{}{
			"board":           gormGame.Board,
			"score":           game.Score,
			"game_over":       game.GameOver,
			"previous":        gormGame.Previous,
			"moves":           game.Moves,
			"score_submitted": game.ScoreSubmitted,
			"updated_at":      now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update game: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("game %s: %w", game.ID, ErrNotFound)
	}

	game.UpdatedAt = now
	return nil
}

// GetGame retrieves a game by ID and player ID
func (g *GormDB) GetGame(ctx context.Context, gameID uuid.UUID, playerID string) (*models.GameState, error) {
	var gormGame models.GormGame
	result := g.db.WithContext(ctx).Where("id = ? AND player_id = ?", gameID, playerID).First(&gormGame)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get game: %w", result.Error)
	}

	return gormGame.ToGameState(), nil
}

// GetLatestGame retrieves the player's most recently played game
func (g *GormDB) GetLatestGame(ctx context.Context, playerID string) (*models.GameState, error) {
	var gormGame models.GormGame
	result := g.db.WithContext(ctx).Where("player_id = ?", playerID).
		Order("updated_at DESC").
		First(&gormGame)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("latest game of %s: %w", playerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest game: %w", result.Error)
	}

	return gormGame.ToGameState(), nil
}

// AddScore saves a finished game's score. A second score for the same
// game returns ErrDuplicate.
func (g *GormDB) AddScore(ctx context.Context, score *models.ScoreRecord) error {
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	gormScore := &models.GormScore{}
	gormScore.FromScoreRecord(score)

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "game_id"}}, DoNothing: true}).
		Create(gormScore)
	if result.Error != nil {
		return fmt.Errorf("failed to add score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("score for game %s: %w", score.GameID, ErrDuplicate)
	}
	return nil
}

// GetLeaderboard returns the best scores saved at or after since, highest
// first, earlier entries winning ties. A zero since covers all time.
func (g *GormDB) GetLeaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	var scores []models.GormScore

	query := g.db.WithContext(ctx).Model(&models.GormScore{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	result := query.Order("score DESC").Order("created_at ASC").Limit(limit).Find(&scores)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", result.Error)
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, models.LeaderboardEntry{
			PlayerID:   s.PlayerID,
			PlayerName: s.PlayerName,
			Score:      s.Score,
			MaxTile:    s.MaxTile,
			GameID:     s.GameID,
			CreatedAt:  s.CreatedAt,
		})
	}

	return rankEntries(entries), nil
}

// ClearLeaderboard deletes every saved score and returns how many were removed
func (g *GormDB) ClearLeaderboard(ctx context.Context) (int64, error) {
	result := g.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.GormScore{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear leaderboard: %w", result.Error)
	}
	return result.RowsAffected, nil
}

