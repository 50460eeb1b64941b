package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
	"github.com/tariktoplu/Opti-LogistiX/internal/store"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Generate and manage damage scenarios",
}

var (
	scMagnitude float64
	scLat       float64
	scLon       float64
	scDepth     float64
	scSeed      int64
)

var scenarioApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Generate an earthquake scenario and archive it",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Engine.ApplyScenario(cmd.Context(), scenario.Params{
			Magnitude: scMagnitude,
			Epicenter: model.LatLon{Lat: scLat, Lon: scLon},
			DepthKm:   scDepth,
			Seed:      scSeed,
		})
		if err != nil {
			return err
		}
		formatScenario(cmd.OutOrStdout(), sc)
		return nil
	},
}

var scenarioPresetCmd = &cobra.Command{
	Use:   "preset <name>",
	Short: "Generate a scenario from a named preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Engine.ApplyPreset(cmd.Context(), args[0], scSeed)
		if err != nil {
			return err
		}
		formatScenario(cmd.OutOrStdout(), sc)
		return nil
	},
}

var (
	listType   string
	listMinMag float64
	listLimit  int
)

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Engine.ArchivedScenarios(cmd.Context(), store.Filter{
			Type:         listType,
			MinMagnitude: listMinMag,
			Limit:        listLimit,
		})
		if err != nil {
			return err
		}
		formatScenarioList(cmd.OutOrStdout(), records)
		return nil
	},
}

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Archive.DeleteScenario(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func formatScenario(out io.Writer, sc *scenario.Scenario) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Scenario:\t%s\n", sc.ID)
	_, _ = fmt.Fprintf(w, "Magnitude:\t%.1f\n", sc.Magnitude)
	_, _ = fmt.Fprintf(w, "Epicenter:\t%.5f, %.5f\n", sc.Epicenter.Lat, sc.Epicenter.Lon)
	_, _ = fmt.Fprintf(w, "Affected roads:\t%d\n", sc.AffectedRoads)
	_, _ = fmt.Fprintf(w, "Affected bridges:\t%d\n", sc.AffectedBridges)
	for _, z := range sc.Zones {
		_, _ = fmt.Fprintf(w, "  %s:\t%s (score %.2f, radius %.0f m)\n", z.ID, z.Level, z.Score, z.RadiusM)
	}
	_ = w.Flush()
}

func formatScenarioList(out io.Writer, records []store.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tMAG\tROADS\tBRIDGES\tMAX\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t-----\t-------\t---\t-------")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%d\t%.2f\t%s\n",
			r.ID,
			r.Type,
			r.Magnitude,
			r.AffectedRoads,
			r.AffectedBridges,
			r.MaxDamage,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	scenarioApplyCmd.Flags().Float64Var(&scMagnitude, "magnitude", 6.5, "earthquake magnitude")
	scenarioApplyCmd.Flags().Float64Var(&scLat, "lat", 0, "epicenter latitude (0 = graph centroid)")
	scenarioApplyCmd.Flags().Float64Var(&scLon, "lon", 0, "epicenter longitude (0 = graph centroid)")
	scenarioApplyCmd.Flags().Float64Var(&scDepth, "depth", 10, "hypocenter depth in km")
	scenarioApplyCmd.Flags().Int64Var(&scSeed, "seed", 0, "random seed (0 = fresh)")
	scenarioPresetCmd.Flags().Int64Var(&scSeed, "seed", 0, "random seed (0 = fresh)")

	scenarioListCmd.Flags().StringVar(&listType, "type", "", "filter by disaster type")
	scenarioListCmd.Flags().Float64Var(&listMinMag, "min-magnitude", 0, "minimum magnitude")
	scenarioListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum rows")

	scenarioCmd.AddCommand(scenarioApplyCmd, scenarioPresetCmd, scenarioListCmd, scenarioDeleteCmd)
	rootCmd.AddCommand(scenarioCmd)
}
