package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"board2048/internal/game"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	return FromEnv()
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := validConfig(t)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("default driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled by default")
	}
	if cfg.OAuth2.Enabled() {
		t.Error("oauth2 should be disabled without a client id")
	}
	if cfg.Leaderboard.DefaultLimit != 10 {
		t.Errorf("default leaderboard limit = %d, want 10", cfg.Leaderboard.DefaultLimit)
	}
	if cfg.GetServerAddress() != "0.0.0.0:6060" {
		t.Errorf("server address = %q", cfg.GetServerAddress())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("GAME_SESSION_TIMEOUT", "90")
	t.Setenv("LEADERBOARD_CACHE_TTL", "2m")
	t.Setenv("ADMIN_PLAYER_IDS", "alice, bob ,")
	t.Setenv("REDIS_ENABLED", "true")

	cfg := FromEnv()
	if cfg.Game.SessionTimeout != 90*time.Second {
		t.Errorf("session timeout = %v, want 90s", cfg.Game.SessionTimeout)
	}
	if cfg.Leaderboard.CacheTTL != 2*time.Minute {
		t.Errorf("cache ttl = %v, want 2m", cfg.Leaderboard.CacheTTL)
	}
	if !cfg.IsAdmin("bob") || cfg.IsAdmin("carol") {
		t.Errorf("admin ids parsed as %v", cfg.Server.AdminPlayerIDs)
	}
	if len(cfg.Server.AdminPlayerIDs) != 2 {
		t.Errorf("empty admin id kept: %v", cfg.Server.AdminPlayerIDs)
	}
	if !cfg.Redis.Enabled {
		t.Error("REDIS_ENABLED not honoured")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "JWT_SECRET"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"postgres without host", func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.Host = ""
		}, "database configuration"},
		{"oauth2 without endpoints", func(c *Config) { c.OAuth2.ClientID = "client" }, "OAuth2"},
		{"limit above max", func(c *Config) { c.Leaderboard.DefaultLimit = 500 }, "leaderboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestValidateStorageIgnoresAuth(t *testing.T) {
	cfg := validConfig(t)
	cfg.Auth.JWTSecret = ""
	if err := cfg.ValidateStorage(); err != nil {
		t.Errorf("ValidateStorage() = %v", err)
	}
	cfg.Database.SQLitePath = ""
	if err := cfg.ValidateStorage(); err == nil {
		t.Error("ValidateStorage() accepted sqlite without a path")
	}
}

func TestLoadRulesEmbeddedDefault(t *testing.T) {
	// run from an empty directory so ./configs/rules.yaml is absent
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules != game.DefaultRules() {
		t.Errorf("embedded rules = %+v, want %+v", rules, game.DefaultRules())
	}
}

func TestLoadRulesCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := "four_chance: 0.5\ninitial_tiles_min: 2\ninitial_tiles_max: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.FourChance != 0.5 || rules.InitialTilesMin != 2 || rules.InitialTilesMax != 2 {
		t.Errorf("custom rules not applied: %+v", rules)
	}
	if rules.DoubleSpawnChance != 0.2 {
		t.Errorf("omitted key lost its default: %+v", rules)
	}
}

func TestLoadRulesRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("initial_tiles_max: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Error("LoadRules accepted an initial tile range above 3")
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadRules accepted a missing custom file")
	}
}

func TestLoadRulesLocalFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "configs", "rules.yaml")
	t.Chdir(dir)

	if err := os.WriteFile(path, []byte("four_chance: 0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.FourChance != 0.25 {
		t.Errorf("local rules not applied: %+v", rules)
	}

	if err := os.WriteFile(path, []byte("initial_tiles_min: 3\ninitial_tiles_max: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(""); err == nil {
		t.Error("LoadRules fell back to the defaults over an invalid configs/rules.yaml")
	}

	if err := os.WriteFile(path, []byte("four_chance: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(""); err == nil {
		t.Error("LoadRules fell back to the defaults over an unparsable configs/rules.yaml")
	}
}
