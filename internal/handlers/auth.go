package handlers

import (
	"errors"
	"net/http"
	"strings"

	"board2048/internal/auth"
	"board2048/internal/config"
	"board2048/internal/database"
	"board2048/internal/i18n"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const (
	// AuthCookie holds the JWT for browser clients
	AuthCookie = "auth_token"

	playerIDKey = "player_id"
	claimsKey   = "claims"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *auth.Service
	cfg         *config.Config
	i18n        *i18n.I18n
	logger      *log.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, cfg *config.Config, tr *i18n.I18n, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		i18n:        tr,
		logger:      logger,
	}
}

// Guest creates a guest player and signs them in
func (h *AuthHandler) Guest(c *gin.Context) {
	var req models.GuestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.i18n, http.StatusBadRequest, "bad_request", i18n.KeyBadRequest)
			return
		}
	}

	player, token, err := h.authService.CreateGuest(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to create guest", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	h.setAuthCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{
		"player": player,
		"token":  token,
	})
}

// Login initiates the OAuth2 login flow
func (h *AuthHandler) Login(c *gin.Context) {
	authURL, err := h.authService.GetAuthURL(c.Request.Context())
	if errors.Is(err, auth.ErrOAuth2Disabled) {
		respondError(c, h.i18n, http.StatusNotFound, "oauth2_disabled", i18n.KeyOAuth2Disabled)
		return
	}
	if err != nil {
		h.logger.Error("failed to generate auth URL", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles the OAuth2 callback
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	// Check for OAuth2 errors
	if errorParam := c.Query("error"); errorParam != "" {
		h.logger.Warn("oauth2 provider returned an error", "error", errorParam)
		respondError(c, h.i18n, http.StatusBadRequest, "oauth2_error", i18n.KeyBadRequest)
		return
	}

	if code == "" || state == "" {
		respondError(c, h.i18n, http.StatusBadRequest, "bad_request", i18n.KeyBadRequest)
		return
	}

	player, token, err := h.authService.HandleCallback(c.Request.Context(), code, state)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrOAuth2Disabled):
		respondError(c, h.i18n, http.StatusNotFound, "oauth2_disabled", i18n.KeyOAuth2Disabled)
		return
	case errors.Is(err, auth.ErrInvalidState):
		respondError(c, h.i18n, http.StatusBadRequest, "invalid_state", i18n.KeyBadRequest)
		return
	default:
		h.logger.Error("oauth2 callback failed", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	h.logger.Info("player signed in", "player", player.ID, "provider", player.Provider)
	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"player": player,
		"token":  token,
	})
}

// Logout revokes the current token and clears the auth cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := c.Get(claimsKey); ok {
		if err := h.authService.Revoke(c.Request.Context(), claims.(*auth.Claims)); err != nil {
			h.logger.Warn("failed to revoke token", "error", err)
		}
	}

	c.SetCookie(AuthCookie, "", -1, "/", "", isHTTPS(c), true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the current player
func (h *AuthHandler) Me(c *gin.Context) {
	player, err := h.authService.Player(c.Request.Context(), PlayerID(c))
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, h.i18n, http.StatusNotFound, "player_not_found", i18n.KeyInvalidToken)
		return
	}
	if err != nil {
		h.logger.Error("failed to load player", "error", err)
		respondError(c, h.i18n, http.StatusInternalServerError, "internal", i18n.KeyInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player": player})
}

// AuthMiddleware validates JWT tokens
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := RequestToken(c)
		if token == "" {
			respondError(c, h.i18n, http.StatusUnauthorized, "auth_required", i18n.KeyAuthRequired)
			c.Abort()
			return
		}

		claims, err := h.authService.ValidateJWT(c.Request.Context(), token)
		if err != nil {
			respondError(c, h.i18n, http.StatusUnauthorized, "invalid_token", i18n.KeyInvalidToken)
			c.Abort()
			return
		}

		c.Set(playerIDKey, claims.PlayerID)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// AdminMiddleware admits only configured admin players. It must run after
// AuthMiddleware.
func (h *AuthHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.cfg.IsAdmin(PlayerID(c)) {
			respondError(c, h.i18n, http.StatusForbidden, "forbidden", i18n.KeyForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetCookie(AuthCookie, token, int(h.cfg.Auth.TokenTTL.Seconds()), "/", "", isHTTPS(c), true)
}

// RequestToken reads the JWT from the auth cookie, the Authorization
// header or the token query parameter, in that order
func RequestToken(c *gin.Context) string {
	if token, err := c.Cookie(AuthCookie); err == nil && token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// PlayerID returns the authenticated player set by AuthMiddleware
func PlayerID(c *gin.Context) string {
	return c.GetString(playerIDKey)
}

// isHTTPS determines if the request is using HTTPS
func isHTTPS(c *gin.Context) bool {
	return c.Request.TLS != nil ||
		c.GetHeader("X-Forwarded-Proto") == "https" ||
		c.GetHeader("X-Forwarded-Ssl") == "on"
}

// respondError writes a localized ErrorResponse
func respondError(c *gin.Context, tr *i18n.I18n, status int, code, key string) {
	c.JSON(status, models.ErrorResponse{
		Message: tr.T(i18n.GetLanguage(c), key),
		Code:    code,
	})
}
