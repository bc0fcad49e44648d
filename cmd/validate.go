package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsatlink/termtrack/internal/model"
)

var validateProbe []float64

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Inspect the configured boundary dataset",
	Long:  "Loads the boundary dataset, prints its catalog summary, and optionally resolves a probe coordinate to its administrative region.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		ix, err := loadBoundaryIndex(cfg)
		if err != nil {
			return err
		}

		states := ix.States()
		fmt.Printf("dataset: %s\n", cfg.Boundary.Path)
		fmt.Printf("districts: %d across %d states\n", ix.Len(), len(states))
		for _, state := range states {
			fmt.Printf("  %s: %d districts\n", state, len(ix.Districts(state)))
		}

		if len(validateProbe) == 2 {
			region := ix.Resolve(model.Point{Lat: validateProbe[0], Lon: validateProbe[1]})
			fmt.Printf("probe (%.4f, %.4f): %s / %s\n",
				validateProbe[0], validateProbe[1], region.State, region.District)
		}

		return nil
	},
}

func init() {
	validateCmd.Flags().Float64SliceVar(&validateProbe, "probe", nil, "lat,lon coordinate to resolve")
	rootCmd.AddCommand(validateCmd)
}
