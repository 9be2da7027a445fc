package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"board2048/internal/config"

	"golang.org/x/oauth2"
)

// OAuth2Provider represents an OAuth2 provider
type OAuth2Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// UserInfo represents user information from OAuth2 provider
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar_url"`
	Provider string `json:"provider"`
}

// CustomProvider implements OAuth2Provider for custom OAuth2 services
type CustomProvider struct {
	config *oauth2.Config
	cfg    config.OAuth2Config
}

// NewCustomProvider creates a new custom OAuth2 provider
func NewCustomProvider(cfg config.OAuth2Config) (*CustomProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("OAuth2 client ID and secret must be configured")
	}

	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("OAuth2 auth URL and token URL must be configured")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}

	return &CustomProvider{
		config: oauth2Config,
		cfg:    cfg,
	}, nil
}

// GetAuthURL returns the custom OAuth2 authorization URL
func (c *CustomProvider) GetAuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges the authorization code for a token
func (c *CustomProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// GetUserInfo gets user information from custom OAuth2 provider
func (c *CustomProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	if c.cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("user info URL not configured")
	}

	client := c.config.Client(ctx, token)
	resp, err := client.Get(c.cfg.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: %s", resp.Status)
	}

	var userResponse map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&userResponse); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return mapUserInfo(userResponse, c.cfg)
}

// mapUserInfo applies the configured field mappings to a user info document
func mapUserInfo(doc map[string]interface{}, cfg config.OAuth2Config) (*UserInfo, error) {
	userInfo := &UserInfo{
		Provider: cfg.Provider,
	}

	if id, ok := extractField(doc, cfg.UserIDField); ok {
		userInfo.ID = fmt.Sprintf("%v", id)
	} else {
		return nil, fmt.Errorf("user ID field '%s' not found in response", cfg.UserIDField)
	}

	if email, ok := extractField(doc, cfg.UserEmailField); ok {
		userInfo.Email = fmt.Sprintf("%v", email)
	}

	if name, ok := extractField(doc, cfg.UserNameField); ok {
		userInfo.Name = fmt.Sprintf("%v", name)
	} else if userInfo.Email != "" {
		userInfo.Name = userInfo.Email
	} else {
		userInfo.Name = userInfo.ID
	}

	if avatar, ok := extractField(doc, cfg.UserAvatarField); ok {
		userInfo.Avatar = fmt.Sprintf("%v", avatar)
	}

	return userInfo, nil
}

// extractField reads a field by dot path, e.g. "user.profile.name"
func extractField(data map[string]interface{}, fieldPath string) (interface{}, bool) {
	if fieldPath == "" {
		return nil, false
	}

	fields := strings.Split(fieldPath, ".")
	current := data
	for _, field := range fields[:len(fields)-1] {
		next, ok := current[field].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}

	value, exists := current[fields[len(fields)-1]]
	return value, exists
}
