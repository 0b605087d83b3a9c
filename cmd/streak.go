package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tmodak/parlo/internal/streak"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show streak and today's goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		progress, err := e.streak.Goal(cmd.Context(), e.userID)
		if err != nil {
			return err
		}
		printProgress(progress)
		return nil
	},
}

var earnCmd = &cobra.Command{
	Use:   "earn <xp>",
	Short: "Record earned XP toward today's goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid XP amount %q", args[0])
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		progress, err := e.streak.EarnXP(cmd.Context(), e.userID, amount)
		if err != nil {
			return err
		}
		printProgress(progress)
		if progress.Reward != nil {
			fmt.Printf("Goal complete! +%d XP, +%d coins", progress.Reward.XPDelta, progress.Reward.CurrencyDelta)
			for _, id := range progress.Reward.UnlockedRewardIDs {
				fmt.Printf(", unlocked %s", id)
			}
			fmt.Println()
		}
		return nil
	},
}

func printProgress(p streak.GoalProgress) {
	fmt.Printf("Streak: %d days (longest %d, multiplier %.1fx)\n",
		p.Streak.CurrentStreak, p.Streak.LongestStreak, streak.Multiplier(p.Streak.CurrentStreak))
	fmt.Printf("Today: %d/%d XP", p.Goal.CurrentXP, p.Goal.TargetXP)
	if p.Goal.Completed {
		fmt.Print(" (goal complete)")
	}
	fmt.Println()
}
