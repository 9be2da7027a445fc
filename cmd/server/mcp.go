package main

import (
	"context"

	"board2048/internal/config"
	"board2048/internal/i18n"
	"board2048/internal/mcp"
	"board2048/internal/version"

	"github.com/spf13/cobra"
)

var (
	flagPlayer string
	flagLang   string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Play over the Model Context Protocol on stdin/stdout",
	Long: `Serve MCP over stdio so an AI agent or editor can play.

All tool calls play one game as a local player; its scores go to the
same leaderboard as web players. Logs are written to stderr.

Example client configuration:
  {"command": "board2048", "args": ["mcp", "--player", "agent"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&flagPlayer, "player", "mcp", "Local player name")
	mcpCmd.Flags().StringVar(&flagLang, "lang", "", "Reply language (default DEFAULT_LANGUAGE)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, config.LoadStorage)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.db.Migrate(ctx); err != nil {
		return err
	}

	tr, err := i18n.New(a.cfg.I18n.DefaultLanguage)
	if err != nil {
		return err
	}
	lang := flagLang
	if lang == "" || !tr.IsSupported(lang) {
		lang = tr.DefaultLanguage()
	}

	player, err := mcp.LocalPlayer(ctx, a.db, flagPlayer)
	if err != nil {
		return err
	}

	a.logger.Info("serving MCP on stdio", "player", player.Name, "id", player.ID, "lang", lang)
	return mcp.NewServer(a.sessions, tr, lang, player.ID, version.Version, a.logger).Serve()
}
