package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
)

var (
	routeFrom     string
	routeTo       string
	routeVehicle  string
	routeUrgency  float64
	routeCompare  bool
	routeScenario string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Compute a risk-weighted route between two coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseLatLon(routeFrom)
		if err != nil {
			return eris.Wrap(err, "parse --from")
		}
		end, err := parseLatLon(routeTo)
		if err != nil {
			return eris.Wrap(err, "parse --to")
		}
		vehicle := model.ResourceType(routeVehicle)
		if vehicle != "" && !vehicle.Known() {
			return eris.Errorf("unknown vehicle type %q", routeVehicle)
		}
		if routeUrgency < 0 || routeUrgency > 1 {
			return eris.Errorf("urgency %.2f out of [0, 1]", routeUrgency)
		}

		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := activateFlag(cmd.Context(), env, routeScenario); err != nil {
			return err
		}

		res, err := env.Engine.FindRoute(cmd.Context(), router.Request{
			Start:           start,
			End:             end,
			Vehicle:         vehicle,
			Urgency:         routeUrgency,
			WithAlternative: routeCompare,
		})
		if err != nil {
			return err
		}

		formatRoute(cmd.OutOrStdout(), "Route", res.Route)
		if res.Alternative != nil {
			formatRoute(cmd.OutOrStdout(), "Fastest ignoring risk", res.Alternative)
			fmt.Fprintf(cmd.OutOrStdout(), "Risk-aware detour costs %.1f min extra\n",
				res.Route.Minutes-res.Alternative.Minutes)
		}
		return nil
	},
}

// parseLatLon parses "lat,lon" into a coordinate.
func parseLatLon(s string) (model.LatLon, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.LatLon{}, eris.Errorf("want lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.LatLon{}, eris.Errorf("bad latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.LatLon{}, eris.Errorf("bad longitude %q", parts[1])
	}
	return model.LatLon{Lat: lat, Lon: lon}, nil
}

func formatRoute(out io.Writer, label string, rt *router.Route) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s:\t%d nodes\n", label, len(rt.Nodes))
	_, _ = fmt.Fprintf(w, "  Distance:\t%.2f km\n", rt.DistanceKm)
	_, _ = fmt.Fprintf(w, "  Time:\t%.1f min\n", rt.Minutes)
	_, _ = fmt.Fprintf(w, "  Risk:\t%.2f\n", rt.Risk)
	_ = w.Flush()
}

func init() {
	routeCmd.Flags().StringVar(&routeFrom, "from", "", "start coordinate as lat,lon")
	routeCmd.Flags().StringVar(&routeTo, "to", "", "end coordinate as lat,lon")
	routeCmd.Flags().StringVar(&routeVehicle, "vehicle", "", "vehicle type capping speed")
	routeCmd.Flags().Float64Var(&routeUrgency, "urgency", 0.5, "risk tolerance in [0, 1]")
	routeCmd.Flags().BoolVar(&routeCompare, "compare", false, "also compute the fastest route ignoring risk")
	routeCmd.Flags().StringVar(&routeScenario, "scenario", "", "archived scenario to activate first")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(routeCmd)
}
