// Package auth issues and checks player tokens. Players sign in as guests
// or, when configured, through an external OAuth2 provider.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"board2048/internal/cache"
	"board2048/internal/config"
	"board2048/internal/database"
	"board2048/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	stateTTL      = 5 * time.Minute
	maxNameLength = 32
)

var (
	// ErrInvalidToken is returned for malformed, expired or revoked tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidState is returned when an OAuth2 callback state is unknown or reused
	ErrInvalidState = errors.New("invalid state parameter")
	// ErrOAuth2Disabled is returned when no OAuth2 provider is configured
	ErrOAuth2Disabled = errors.New("oauth2 login is not configured")
)

// Claims are the JWT claims issued to a player
type Claims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// Service handles authentication
type Service struct {
	secret   []byte
	ttl      time.Duration
	db       database.Database
	cache    cache.Cache
	provider OAuth2Provider
	now      func() time.Time
}

// NewService creates a new authentication service. The OAuth2 provider is
// only created when cfg.OAuth2 is enabled.
func NewService(cfg *config.Config, db database.Database, c cache.Cache) (*Service, error) {
	s := &Service{
		secret: []byte(cfg.Auth.JWTSecret),
		ttl:    cfg.Auth.TokenTTL,
		db:     db,
		cache:  c,
		now:    time.Now,
	}

	if cfg.OAuth2.Enabled() {
		provider, err := NewCustomProvider(cfg.OAuth2)
		if err != nil {
			return nil, fmt.Errorf("failed to create OAuth2 provider: %w", err)
		}
		s.provider = provider
	}

	return s, nil
}

// OAuth2Enabled reports whether external login is available
func (s *Service) OAuth2Enabled() bool {
	return s.provider != nil
}

// CreateGuest registers a guest player and returns it with a token. A
// blank name becomes "Guest-xxxx".
func (s *Service) CreateGuest(ctx context.Context, name string) (*models.Player, string, error) {
	guestID := uuid.NewString()
	name = CleanName(name)
	if name == "" {
		name = "Guest-" + guestID[:4]
	}

	player := &models.Player{
		ID:         guestID,
		Name:       name,
		Provider:   models.ProviderGuest,
		ProviderID: guestID,
	}
	if err := s.db.UpsertPlayer(ctx, player); err != nil {
		return nil, "", err
	}

	token, err := s.GenerateJWT(player.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate JWT: %w", err)
	}
	return player, token, nil
}

// GetAuthURL generates an OAuth2 authorization URL
func (s *Service) GetAuthURL(ctx context.Context) (string, error) {
	if s.provider == nil {
		return "", ErrOAuth2Disabled
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	if err := s.cache.SetOAuth2State(ctx, state, stateTTL); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return s.provider.GetAuthURL(state), nil
}

// HandleCallback handles the OAuth2 callback
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*models.Player, string, error) {
	if s.provider == nil {
		return nil, "", ErrOAuth2Disabled
	}

	if !s.cache.ValidateOAuth2State(ctx, state) {
		return nil, "", ErrInvalidState
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange code: %w", err)
	}

	userInfo, err := s.provider.GetUserInfo(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user info: %w", err)
	}

	player := &models.Player{
		ID:         uuid.NewString(),
		Email:      userInfo.Email,
		Name:       CleanName(userInfo.Name),
		Avatar:     userInfo.Avatar,
		Provider:   userInfo.Provider,
		ProviderID: userInfo.ID,
	}
	if err := s.db.UpsertPlayer(ctx, player); err != nil {
		return nil, "", err
	}

	jwtToken, err := s.GenerateJWT(player.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate JWT: %w", err)
	}

	return player, jwtToken, nil
}

// GenerateJWT generates a JWT token for the player
func (s *Service) GenerateJWT(playerID string) (string, error) {
	now := s.now()
	claims := Claims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateJWT validates a JWT token and returns its claims. Revoked tokens
// are rejected.
func (s *Service) ValidateJWT(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" && s.cache.IsJWTBlacklisted(ctx, claims.ID) {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	return claims, nil
}

// Revoke blacklists a token until it would have expired anyway
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.cache.BlacklistJWT(ctx, claims.ID, remaining)
}

// Player loads the player a token belongs to
func (s *Service) Player(ctx context.Context, playerID string) (*models.Player, error) {
	return s.db.GetPlayer(ctx, playerID)
}

// CleanName trims a display name and caps its length
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

// generateState generates a random state string
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
