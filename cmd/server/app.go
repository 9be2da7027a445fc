package main

import (
	"context"
	"fmt"

	"board2048/internal/cache"
	"board2048/internal/config"
	"board2048/internal/database"
	"board2048/internal/logging"
	"board2048/internal/session"

	"github.com/charmbracelet/log"
)

// app holds the services every command shares
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	db       database.Database
	cache    cache.Cache
	sessions *session.Manager
}

// newApp loads the configuration with load, then opens storage and the
// session manager
func newApp(ctx context.Context, load func() (*config.Config, error)) (*app, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Server.LogLevel = flagLogLevel
	}
	if flagRulesFile != "" {
		cfg.Game.RulesFile = flagRulesFile
	}

	logger := logging.New(cfg.Server.LogLevel, "board2048")

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Redis is optional; without it everything is cached in process
	var c cache.Cache = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing with in-process cache", "error", err)
		} else {
			c = redisCache
		}
	}

	rules, err := config.LoadRules(cfg.Game.RulesFile)
	if err != nil {
		db.Close()
		c.Close()
		return nil, err
	}

	sessions := session.NewManager(db, c, logger, session.Options{
		Rules:          rules,
		SessionTTL:     cfg.Game.SessionTimeout,
		LeaderboardTTL: cfg.Leaderboard.CacheTTL,
		DefaultLimit:   cfg.Leaderboard.DefaultLimit,
		MaxLimit:       cfg.Leaderboard.MaxEntries,
		Seed:           flagSeed,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		cache:    c,
		sessions: sessions,
	}, nil
}

// Close writes out unsaved games and releases storage
func (a *app) Close(ctx context.Context) {
	a.sessions.Flush(ctx)
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}
