package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tariktoplu/Opti-LogistiX/internal/allocator"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

var allocScenario string

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Assign the fleet to the active scenario's demand zones",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := activateFlag(cmd.Context(), env, allocScenario); err != nil {
			return err
		}

		plan, err := env.Engine.Allocate(cmd.Context(), nil)
		if err != nil {
			return err
		}
		formatPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print strategic recommendations for the current state",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := activateFlag(cmd.Context(), env, allocScenario); err != nil {
			return err
		}
		if allocScenario != "" {
			if _, err := env.Engine.Allocate(cmd.Context(), nil); err != nil {
				return err
			}
		}

		recs, err := env.Engine.Recommendations(cmd.Context())
		if err != nil {
			return err
		}
		formatRecommendations(cmd.OutOrStdout(), recs)
		return nil
	},
}

func formatPlan(out io.Writer, plan *allocator.Plan) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RESOURCE\tTYPE\tZONE\tETA\tMATCH")
	_, _ = fmt.Fprintln(w, "--------\t----\t----\t---\t-----")
	for _, a := range plan.Assignments {
		match := "fallback"
		if a.ExactMatch {
			match = "exact"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f min\t%s\n",
			a.ResourceID, a.ResourceType, a.ZoneID, a.Minutes, match)
	}
	_ = w.Flush()

	if len(plan.Unmatched) > 0 {
		fmt.Fprintf(out, "Unserved zones: %v\n", plan.Unmatched)
	}
	if plan.Exhausted {
		fmt.Fprintln(out, "Fleet exhausted before all zones were served")
	}
}

func formatRecommendations(out io.Writer, recs []model.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "No recommendations")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "[%s]\t%s\t%s\n", r.Priority, r.Kind, r.Message)
	}
	_ = w.Flush()
}

func init() {
	allocateCmd.Flags().StringVar(&allocScenario, "scenario", "", "archived scenario to activate first")
	recommendCmd.Flags().StringVar(&allocScenario, "scenario", "", "archived scenario to activate first")
	rootCmd.AddCommand(allocateCmd, recommendCmd)
}
