package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/kyoto-geodata/internal/dataset"
)

var osmCmd = &cobra.Command{
	Use:   "osm",
	Short: "Fetch OpenStreetMap POI datasets",
	Long: `Runs every OpenStreetMap dataset in the catalog against the Overpass API
and writes one GeoJSON file per dataset under <base_dir>/osm/.

Requests are spaced by overpass.pause_secs. A dataset that fails is logged
and skipped; the remaining datasets still run.
Use --datasets to run only some of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseGeometryFlag(cmd)
		if err != nil {
			return err
		}
		names, _ := cmd.Flags().GetString("datasets")
		return runBatch(cmd, mode, dataset.RunOpts{
			Source: dataset.SourceOSM,
			Names:  parseNames(names),
		})
	},
}

func init() {
	osmCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., restaurants,transport)")
	osmCmd.Flags().String("way-geometry", "first-point", "way geometry: first-point or shape")
	rootCmd.AddCommand(osmCmd)
}
