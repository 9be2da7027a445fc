package main

import (
	"context"
	"errors"
	"fmt"

	"board2048/internal/config"
	"board2048/internal/mcp"
	"board2048/pkg/models"

	"github.com/spf13/cobra"
)

var (
	flagBoardType  string
	flagBoardLimit int
	flagYes        bool
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show or clear the leaderboard",
}

var leaderboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the top scores of a period",
	Long: `Print the top scores of a period.

Examples:
  board2048 leaderboard show
  board2048 leaderboard show --type daily --limit 5`,
	Args: cobra.NoArgs,
	RunE: runLeaderboardShow,
}

var leaderboardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved score",
	Long: `Delete every saved score. Games are kept.

Examples:
  board2048 leaderboard clear --yes`,
	Args: cobra.NoArgs,
	RunE: runLeaderboardClear,
}

func init() {
	leaderboardShowCmd.Flags().StringVar(&flagBoardType, "type", "all", "Period: daily, weekly, monthly or all")
	leaderboardShowCmd.Flags().IntVar(&flagBoardLimit, "limit", 0, "Number of entries (0 = LEADERBOARD_DEFAULT_LIMIT)")
	leaderboardClearCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm deleting every score")

	leaderboardCmd.AddCommand(leaderboardShowCmd)
	leaderboardCmd.AddCommand(leaderboardClearCmd)
}

func runLeaderboardShow(cmd *cobra.Command, _ []string) error {
	lbType, err := models.ParseLeaderboardType(flagBoardType)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), config.LoadStorage)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	board, err := a.sessions.Leaderboard(cmd.Context(), lbType, flagBoardLimit)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), mcp.FormatLeaderboard(board))
	return nil
}

func runLeaderboardClear(cmd *cobra.Command, _ []string) error {
	if !flagYes {
		return errors.New("refusing to delete every score without --yes")
	}

	a, err := newApp(cmd.Context(), config.LoadStorage)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	removed, err := a.sessions.ClearLeaderboard(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d scores\n", removed)
	return nil
}
