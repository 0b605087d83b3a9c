package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmodak/parlo/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent practice sessions and rewards",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		events := e.store.Events()

		practices, err := events.QueryPractice(ctx, e.userID, store.QueryOpts{Limit: 10})
		if err != nil {
			return err
		}
		fmt.Println("Recent practice:")
		if len(practices) == 0 {
			fmt.Println("  (none)")
		}
		for _, p := range practices {
			fmt.Printf("  %s  %-24s strength %3d  %d mistakes\n",
				p.Timestamp.Format("2006-01-02 15:04"), p.SkillID, p.StrengthAfter, p.Mistakes)
		}

		rewards, err := events.QueryRewards(ctx, e.userID, store.QueryOpts{Limit: 10})
		if err != nil {
			return err
		}
		fmt.Println("Recent rewards:")
		if len(rewards) == 0 {
			fmt.Println("  (none)")
		}
		for _, r := range rewards {
			fmt.Printf("  %s  +%d XP, +%d coins (streak %d, x%.1f)\n",
				r.GoalDate, r.XPDelta, r.CurrencyDelta, r.StreakDays, r.Multiplier)
		}
		return nil
	},
}
