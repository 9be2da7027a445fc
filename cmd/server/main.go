// board2048 serves the 2048 board game over HTTP, WebSocket and MCP.
//
// Usage:
//
//	board2048 serve                 - Start the HTTP and WebSocket server
//	board2048 migrate               - Create or update the database schema
//	board2048 leaderboard show      - Print a leaderboard
//	board2048 leaderboard clear     - Delete every saved score
//	board2048 mcp                   - Play over MCP on stdin/stdout
//
// Global flags:
//
//	--log-level <level>  - Override LOG_LEVEL
//	--rules <path>       - Override GAME_RULES_FILE
//	--seed <value>       - Set RNG seed for reproducible games
package main

import (
	"fmt"
	"os"

	"board2048/internal/version"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagLogLevel  string
	flagRulesFile string
	flagSeed      int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "board2048",
	Short: "2048 board game server",
	Long: `board2048 runs the 2048 sliding-tile game for browsers, scripts and
AI agents.

Configuration comes from the environment and an optional .env file.
See .env.example for every setting.

Examples:
  board2048 serve
  board2048 migrate
  board2048 leaderboard show --type weekly
  board2048 mcp --player agent`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&flagRulesFile, "rules", "", "Path to a rules YAML file; overrides GAME_RULES_FILE")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(mcpCmd)
}
