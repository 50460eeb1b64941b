package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "optilogistix",
	Short: "Damage-aware routing and allocation for disaster response",
	Long:  "Simulates earthquake damage over a road network, computes risk-weighted routes, and allocates emergency resources to demand zones.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
