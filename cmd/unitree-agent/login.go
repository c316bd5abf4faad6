package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/backend"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/session"
	redisstore "github.com/greenity-lab/unitree-agent/internal/storage/redis"
	"github.com/greenity-lab/unitree-agent/internal/timesync"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the UniTree backend",
	Long:  `Sign in with your UniTree account. The agent stores the session locally and tracks connection time for this user until logout.`,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and stop tracking",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	email := loginEmail
	if email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
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

	creds, err := client.SignIn(ctx, email, string(password))
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Printf("Signed in as %s. The agent will now track campus connection time.\n", creds.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := backend.New(cfg.Backend, store.Auth(), logger)

	// Flush and close any open session first so trailing minutes are not
	// stranded under a user id the agent can no longer resolve
	if creds, err := store.Auth().Current(ctx); err == nil {
		trusted := timesync.New(client, cfg.Campus.UTCOffsetHours, logger)
		reconciler := session.NewReconciler(store, client, trusted, session.Config{}, logger)
		sessions := session.NewClock(store.Sessions(), trusted, reconciler, logger)

		if err := sessions.End(ctx, creds.UserID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close session: %v\n", err)
		}
	}

	if err := client.SignOut(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Println("Signed out. Tracking is stopped until the next login.")
	return nil
}
