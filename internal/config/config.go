package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Database drivers accepted in DB_DRIVER
const (
	DriverPostgresGorm = "postgres-gorm"
	DriverPostgres     = "postgres"
	DriverSQLite       = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Auth        AuthConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	OAuth2      OAuth2Config
	Game        GameConfig
	Leaderboard LeaderboardConfig
	I18n        I18nConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host              string
	Port              string
	GinMode           string
	EnableHealthCheck bool
	CORSOrigins       []string
	LogLevel          string
	AdminPlayerIDs    []string
}

// AuthConfig holds token configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	Name       string
	User       string
	Password   string
	SSLMode    string
	SQLitePath string
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// OAuth2Config holds OAuth2-related configuration. Login through an
// external provider is only offered when ClientID is set.
type OAuth2Config struct {
	Provider     string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Custom OAuth2 endpoints
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Scopes      []string

	// User info field mappings
	UserIDField     string
	UserEmailField  string
	UserNameField   string
	UserAvatarField string
}

// Enabled reports whether an external provider is configured
func (o OAuth2Config) Enabled() bool {
	return o.ClientID != ""
}

// GameConfig holds game-related configuration
type GameConfig struct {
	RulesFile      string
	SessionTimeout time.Duration
}

// LeaderboardConfig holds leaderboard-related configuration
type LeaderboardConfig struct {
	CacheTTL     time.Duration
	DefaultLimit int
	MaxEntries   int
}

// I18nConfig holds internationalization configuration
type I18nConfig struct {
	DefaultLanguage string
}

// Load loads the server configuration from .env files and the environment
func Load() (*Config, error) {
	return load((*Config).Validate)
}

// LoadStorage loads the configuration for commands that only touch storage,
// which need no auth settings
func LoadStorage() (*Config, error) {
	return load((*Config).ValidateStorage)
}

func load(validate func(*Config) error) (*Config, error) {
	// Try to load .env file from multiple possible locations
	envPaths := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Info("loaded environment variables", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Debug("no .env file found, using environment variables and defaults")
	}

	config := FromEnv()

	// Validate required configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FromEnv reads the configuration from the process environment without
// loading .env files or validating.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			Port:              getEnv("SERVER_PORT", "6060"),
			GinMode:           getEnv("GIN_MODE", "release"),
			EnableHealthCheck: getEnvBool("ENABLE_HEALTH_CHECK", true),
			CORSOrigins:       getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:6060"}),
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			AdminPlayerIDs:    getEnvSlice("ADMIN_PLAYER_IDS", nil),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 7*24*time.Hour),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverSQLite),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			Name:       getEnv("DB_NAME", "board2048"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			SSLMode:    getEnv("DB_SSL_MODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "data/board2048.db"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		OAuth2: OAuth2Config{
			Provider:     getEnv("OAUTH2_PROVIDER", "custom"),
			ClientID:     getEnv("OAUTH2_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH2_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH2_REDIRECT_URL", "http://localhost:6060/auth/callback"),

			// Custom OAuth2 endpoints
			AuthURL:     getEnv("OAUTH2_AUTH_URL", ""),
			TokenURL:    getEnv("OAUTH2_TOKEN_URL", ""),
			UserInfoURL: getEnv("OAUTH2_USERINFO_URL", ""),
			Scopes:      getEnvSlice("OAUTH2_SCOPES", []string{"openid", "profile", "email"}),

			// User info field mappings
			UserIDField:     getEnv("OAUTH2_USER_ID_FIELD", "id"),
			UserEmailField:  getEnv("OAUTH2_USER_EMAIL_FIELD", "email"),
			UserNameField:   getEnv("OAUTH2_USER_NAME_FIELD", "name"),
			UserAvatarField: getEnv("OAUTH2_USER_AVATAR_FIELD", "avatar"),
		},
		Game: GameConfig{
			RulesFile:      getEnv("GAME_RULES_FILE", ""),
			SessionTimeout: getEnvDuration("GAME_SESSION_TIMEOUT", time.Hour),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL:     getEnvDuration("LEADERBOARD_CACHE_TTL", 5*time.Minute),
			DefaultLimit: getEnvInt("LEADERBOARD_DEFAULT_LIMIT", 10),
			MaxEntries:   getEnvInt("MAX_LEADERBOARD_ENTRIES", 100),
		},
		I18n: I18nConfig{
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be set to at least 16 characters")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	if c.OAuth2.Enabled() {
		if c.OAuth2.ClientSecret == "" || c.OAuth2.AuthURL == "" || c.OAuth2.TokenURL == "" || c.OAuth2.UserInfoURL == "" {
			return fmt.Errorf("OAuth2 client secret and endpoints must be set when OAUTH2_CLIENT_ID is")
		}
	}

	return c.ValidateStorage()
}

// ValidateStorage checks the database, leaderboard and session settings
func (c *Config) ValidateStorage() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverPostgresGorm:
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration is incomplete")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	if c.Leaderboard.DefaultLimit <= 0 || c.Leaderboard.MaxEntries < c.Leaderboard.DefaultLimit {
		return fmt.Errorf("leaderboard limits must satisfy 0 < default <= max")
	}

	if c.Game.SessionTimeout <= 0 {
		return fmt.Errorf("GAME_SESSION_TIMEOUT must be positive")
	}

	return nil
}

// IsAdmin reports whether playerID may use admin endpoints
func (c *Config) IsAdmin(playerID string) bool {
	for _, id := range c.Server.AdminPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// GetRedisAddress returns the Redis host:port
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
