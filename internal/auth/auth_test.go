package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"board2048/internal/cache"
	"board2048/internal/config"
	"board2048/internal/database"
	"board2048/internal/logging"
	"board2048/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "auth.db"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret-0123456789", TokenTTL: time.Hour},
	}
	s, err := NewService(cfg, db, cache.NewMemoryCache())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWTRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	token, err := s.GenerateJWT("player-1")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := s.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT() failed: %v", err)
	}
	if claims.PlayerID != "player-1" || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTRejections(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.ValidateJWT(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token error = %v", err)
	}

	other := newTestService(t)
	other.secret = []byte("a-different-secret-value")
	foreign, _ := other.GenerateJWT("player-1")
	if _, err := s.ValidateJWT(ctx, foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret error = %v", err)
	}

	issued := time.Now()
	s.now = func() time.Time { return issued }
	token, _ := s.GenerateJWT("player-1")
	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := s.ValidateJWT(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v", err)
	}
}

func TestRevoke(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	token, _ := s.GenerateJWT("player-1")
	claims, err := s.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Revoke(ctx, claims); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ValidateJWT(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("revoked token error = %v", err)
	}
}

func TestCreateGuest(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	player, token, err := s.CreateGuest(ctx, "  Ada  ")
	if err != nil {
		t.Fatal(err)
	}
	if player.Name != "Ada" || player.Provider != models.ProviderGuest {
		t.Errorf("guest = %+v", player)
	}

	claims, err := s.ValidateJWT(ctx, token)
	if err != nil || claims.PlayerID != player.ID {
		t.Errorf("guest token claims = %+v, %v", claims, err)
	}

	stored, err := s.Player(ctx, player.ID)
	if err != nil || stored.Name != "Ada" {
		t.Errorf("stored guest = %+v, %v", stored, err)
	}

	anon, _, err := s.CreateGuest(ctx, "   ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(anon.Name, "Guest-") {
		t.Errorf("blank guest name = %q", anon.Name)
	}
}

func TestOAuth2Disabled(t *testing.T) {
	s := newTestService(t)
	if s.OAuth2Enabled() {
		t.Fatal("provider created without client id")
	}
	if _, err := s.GetAuthURL(context.Background()); !errors.Is(err, ErrOAuth2Disabled) {
		t.Errorf("GetAuthURL() error = %v", err)
	}
	if _, _, err := s.HandleCallback(context.Background(), "code", "state"); !errors.Is(err, ErrOAuth2Disabled) {
		t.Errorf("HandleCallback() error = %v", err)
	}
}

func TestMapUserInfo(t *testing.T) {
	cfg := config.OAuth2Config{
		Provider:        "forum",
		UserIDField:     "user.id",
		UserEmailField:  "email",
		UserNameField:   "user.profile.name",
		UserAvatarField: "avatar",
	}
	doc := map[string]interface{}{
		"email": "ada@example.com",
		"user": map[string]interface{}{
			"id":      float64(42),
			"profile": map[string]interface{}{"name": "Ada"},
		},
	}

	info, err := mapUserInfo(doc, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "42" || info.Name != "Ada" || info.Email != "ada@example.com" || info.Provider != "forum" {
		t.Errorf("info = %+v", info)
	}

	delete(doc["user"].(map[string]interface{}), "profile")
	info, _ = mapUserInfo(doc, cfg)
	if info.Name != "ada@example.com" {
		t.Errorf("name fallback = %q, want email", info.Name)
	}

	if _, err := mapUserInfo(map[string]interface{}{}, cfg); err == nil {
		t.Error("missing id accepted")
	}
}

func TestCleanName(t *testing.T) {
	long := strings.Repeat("é", 40)
	if got := CleanName(long); len([]rune(got)) != maxNameLength {
		t.Errorf("CleanName kept %d runes", len([]rune(got)))
	}
}
