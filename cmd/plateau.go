package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/kyoto-geodata/internal/dataset"
	"github.com/sells-group/kyoto-geodata/internal/osm"
)

var plateauCmd = &cobra.Command{
	Use:   "plateau",
	Short: "Fetch and merge PLATEAU datasets",
	Long: `Downloads and extracts the PLATEAU archives in the catalog, then merges the
per-locality files of each category into <base_dir>/plateau/<category>.geojson.

Archives that are already extracted are reused unless --force is given.
A category with no matching files writes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		names, _ := cmd.Flags().GetString("datasets")
		return runBatch(cmd, osm.GeometryFirstPoint, dataset.RunOpts{
			Source: dataset.SourcePlateau,
			Names:  parseNames(names),
			Force:  force,
		})
	},
}

func init() {
	plateauCmd.Flags().Bool("force", false, "re-download archives that are already extracted")
	plateauCmd.Flags().String("datasets", "", "comma-separated archive or category names (e.g., related,shelters)")
	rootCmd.AddCommand(plateauCmd)
}
