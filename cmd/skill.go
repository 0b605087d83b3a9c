package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect and practice skills",
}

var skillDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List skills due for review, weakest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		due, err := e.mastery.ListDue(cmd.Context(), e.userID)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			fmt.Println("Nothing due. Nice.")
			return nil
		}
		for _, st := range due {
			fmt.Printf("%-24s strength %3d  due %s\n",
				st.SkillID, st.Strength, st.NextDueAt.Format(time.RFC3339))
		}
		return nil
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <skill-id>",
	Short: "Show a skill's current strength",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.mastery.GetStrength(cmd.Context(), e.userID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: strength %d/100, last practiced %s, next due %s\n",
			st.SkillID, st.Strength,
			st.LastPracticedAt.Format(time.RFC3339),
			st.NextDueAt.Format(time.RFC3339))
		return nil
	},
}

var skillPracticeCmd = &cobra.Command{
	Use:   "practice <skill-id>",
	Short: "Record a practice session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		score, _ := cmd.Flags().GetInt("score")
		seconds, _ := cmd.Flags().GetInt("seconds")
		mistakes, _ := cmd.Flags().GetInt("mistakes")

		result, err := e.mastery.RecordPractice(cmd.Context(), e.userID, args[0], score, seconds, mistakes)
		if err != nil {
			return err
		}
		fmt.Printf("Practiced %s: strength now %d/100 (%d mistakes, %ds)\n",
			result.SkillID, result.Strength, result.Mistakes, result.TimeSpentSeconds)
		return nil
	},
}

func init() {
	skillPracticeCmd.Flags().Int("score", 0, "Session score")
	skillPracticeCmd.Flags().Int("seconds", 60, "Time spent in seconds")
	skillPracticeCmd.Flags().Int("mistakes", 0, "Mistake count")

	skillCmd.AddCommand(skillDueCmd)
	skillCmd.AddCommand(skillShowCmd)
	skillCmd.AddCommand(skillPracticeCmd)
}
