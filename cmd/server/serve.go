package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"board2048/internal/auth"
	"board2048/internal/config"
	"board2048/internal/handlers"
	"board2048/internal/i18n"
	"board2048/internal/version"
	"board2048/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Start the game server.

Players sign in as guests (POST /auth/guest) or through the configured
OAuth2 provider, then play over the REST API under /api/game or over
the WebSocket at /ws. The schema is migrated on startup.

Examples:
  board2048 serve
  board2048 serve --addr :8080
  DB_DRIVER=postgres board2048 serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (host:port); overrides SERVER_HOST and SERVER_PORT")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config.Load)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	gin.SetMode(a.cfg.Server.GinMode)

	if err := a.db.Migrate(ctx); err != nil {
		return err
	}

	tr, err := i18n.New(a.cfg.I18n.DefaultLanguage)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(a.cfg, a.db, a.cache)
	if err != nil {
		return err
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(a.sessions, authService, tr, a.logger, a.cfg.Server.CORSOrigins)
	go hub.Run(ctx)

	go sweepSessions(ctx, a)

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:    a.cfg,
		I18n:      tr,
		Logger:    a.logger,
		Auth:      authService,
		Sessions:  a.sessions,
		WebSocket: hub.HandleWebSocket,
	})

	addr := a.cfg.GetServerAddress()
	if flagAddr != "" {
		addr = flagAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", addr, "version", version.Version, "rules", version.Rules(a.sessions.Rules()),
			"db", a.cfg.Database.Driver, "redis", a.cfg.Redis.Enabled, "oauth2", authService.OAuth2Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server forced to shutdown", "error", err)
	}
	return nil
}

// sweepSessions drops idle sessions from memory until ctx is done
func sweepSessions(ctx context.Context, a *app) {
	interval := a.cfg.Game.SessionTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Sweep(ctx, a.cfg.Game.SessionTimeout); n > 0 {
				a.logger.Debug("swept idle sessions", "count", n, "active", a.sessions.Active())
			}
		}
	}
}
