package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/kyoto-geodata/internal/dataset"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Fetch every dataset",
	Long:  "Runs the OpenStreetMap datasets and then the PLATEAU archives and categories.",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseGeometryFlag(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return runBatch(cmd, mode, dataset.RunOpts{Force: force})
	},
}

func init() {
	allCmd.Flags().Bool("force", false, "re-download PLATEAU archives that are already extracted")
	allCmd.Flags().String("way-geometry", "first-point", "way geometry: first-point or shape")
	rootCmd.AddCommand(allCmd)
}
