package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmodak/parlo/internal/clock"
	"github.com/tmodak/parlo/internal/config"
	"github.com/tmodak/parlo/internal/hearts"
	"github.com/tmodak/parlo/internal/mastery"
	"github.com/tmodak/parlo/internal/store"
	"github.com/tmodak/parlo/internal/streak"
)

var rootCmd = &cobra.Command{
	Use:   "parlo",
	Short: "Progress engine for a gamified language-learning client",
	Long: "Parlo tracks hearts, skill mastery, streaks, and daily goals,\n" +
		"recomputing each lazily from elapsed wall-clock time.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PARLO_DB env var)")
	rootCmd.PersistentFlags().String("tuning", "", "Path to JSON tuning file")
	rootCmd.PersistentFlags().String("user", "default", "User ID to operate on")

	rootCmd.AddCommand(heartsCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(earnCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is the assembled per-invocation context: store, config, and engines.
type env struct {
	store   *store.Store
	cfg     config.Config
	hearts  *hearts.Service
	mastery *mastery.Service
	streak  *streak.Service
	userID  string
}

// openEnv resolves configuration (flag > env > default), opens the store,
// and wires the engines against the system clock.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("tuning"); path != "" {
		cfg, err = config.ApplyTuning(cfg, path)
		if err != nil {
			return nil, err
		}
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.System()
	rows := st.Ledger()
	events := st.Events()
	userID, _ := cmd.Flags().GetString("user")

	return &env{
		store:   st,
		cfg:     cfg,
		hearts:  hearts.NewService(rows, clk, cfg.HeartsConfig()),
		mastery: mastery.NewService(rows, clk, cfg.MasteryConfig(), events),
		streak:  streak.NewService(rows, clk, cfg.GoalConfig(), events),
		userID:  userID,
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then PARLO_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return store.DefaultDBPath()
}
