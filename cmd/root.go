package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "kyoto-geodata",
	Short: "Fetch open geospatial datasets for Kyoto City",
	Long:  "Fetches OpenStreetMap POIs through the Overpass API and PLATEAU city-model archives, normalizes them into GeoJSON FeatureCollections and writes one file per dataset.",
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
