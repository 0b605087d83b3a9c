package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmodak/parlo/internal/hearts"
)

const heartsResourceKey = "hearts"

var heartsCmd = &cobra.Command{
	Use:   "hearts",
	Short: "Show the current heart count",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.hearts.GetState(cmd.Context(), e.userID, heartsResourceKey)
		if err != nil {
			return err
		}
		printHearts(st)
		return nil
	},
}

var heartsSpendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Spend one heart",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.hearts.Consume(cmd.Context(), e.userID, heartsResourceKey)
		var insufficient *hearts.ErrInsufficientResource
		if errors.As(err, &insufficient) {
			fmt.Printf("No hearts left. Next heart in %s.\n", insufficient.NextAvailableIn.Round(time.Second))
			return nil
		}
		if err != nil {
			return err
		}
		printHearts(st)
		return nil
	},
}

var heartsRefillCmd = &cobra.Command{
	Use:   "refill",
	Short: "Refill hearts to capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.hearts.RefillFull(cmd.Context(), e.userID, heartsResourceKey)
		if err != nil {
			return err
		}
		printHearts(st)
		return nil
	},
}

var heartsGrowCmd = &cobra.Command{
	Use:   "grow",
	Short: "Permanently add heart slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		slots, _ := cmd.Flags().GetInt("slots")
		empty, _ := cmd.Flags().GetBool("empty")
		st, err := e.hearts.IncreaseCapacity(cmd.Context(), e.userID, heartsResourceKey, slots, !empty)
		if err != nil {
			return err
		}
		printHearts(st)
		return nil
	},
}

func printHearts(st hearts.State) {
	fmt.Printf("Hearts: %d/%d (regen %s per heart)\n", st.Current, st.Max, st.RegenPeriod)
}

func init() {
	heartsGrowCmd.Flags().Int("slots", 1, "Number of slots to add")
	heartsGrowCmd.Flags().Bool("empty", false, "Add the new slots empty instead of full")

	heartsCmd.AddCommand(heartsSpendCmd)
	heartsCmd.AddCommand(heartsRefillCmd)
	heartsCmd.AddCommand(heartsGrowCmd)
}
