package database

import (
	"fmt"

	"board2048/internal/config"

	"github.com/charmbracelet/log"
)

// Open connects to the database selected by cfg.Database.Driver
func Open(cfg *config.Config, logger *log.Logger) (Database, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgresGorm:
		return NewGormDB(cfg.GetDatabaseURL(), logger)
	case config.DriverPostgres:
		return NewPostgresDB(cfg.GetDatabaseURL(), logger)
	case config.DriverSQLite:
		return NewSQLiteDB(cfg.Database.SQLitePath, logger)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
