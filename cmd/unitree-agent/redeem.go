package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/greenity-lab/unitree-agent/internal/backend"
	"github.com/greenity-lab/unitree-agent/internal/config"
	redisstore "github.com/greenity-lab/unitree-agent/internal/storage/redis"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var redeemYes bool

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeem points for a real tree",
	Long:  `Spend accumulated points on planting a real tree. The backend verifies the balance and queues the planting request.`,
	RunE:  runRedeem,
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the campus points leaderboard",
	RunE:  runLeaderboard,
}

func init() {
	redeemCmd.Flags().BoolVarP(&redeemYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(redeemCmd)
	rootCmd.AddCommand(leaderboardCmd)
}

func runRedeem(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := redisstore.Open(cfg.Storage.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	client := backend.New(cfg.Backend, store.Auth(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	cost, err := client.TreeCost(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tree cost: %w", err)
	}

	fmt.Printf("Balance: %d points. A real tree costs %d points.\n", profile.Points, cost)

	if !redeemYes {
		fmt.Print("Plant a real tree? [y/N]: ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	err = client.RedeemRealTree(ctx)
	switch {
	case errors.Is(err, backend.ErrInsufficientPoints):
		color.New(color.FgRed, color.Bold).Printf("Not enough points: you have %d, need %d.\n", profile.Points, cost)
		return nil
	case errors.Is(err, backend.ErrRedemptionPending):
		color.New(color.FgYellow, color.Bold).Println("A tree request is already pending. One at a time!")
		return nil
	case err != nil:
		return fmt.Errorf("redemption failed: %w", err)
	}

	color.New(color.FgGreen, color.Bold).Println("Tree request accepted! The campus team will plant it soon.")
	return nil
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := redisstore.Open(cfg.Storage.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	client := backend.New(cfg.Backend, store.Auth(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rows, err := client.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("CAMPUS LEADERBOARD")
	for _, row := range rows {
		fmt.Printf("%3d. %-30s %6d points\n", row.Rank, row.FullName, row.Points)
	}
	return nil
}
