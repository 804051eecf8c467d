package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarmnet-sim/internal/config"
)

var (
	validateConfigPath string
	validateSchemaPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a simulation configuration",
	Long:  "validate checks the YAML configuration against the CUE schema and reports link model sanity warnings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}

		params := cfg.CommsModel.Params()
		warnings := params.SanityWarnings()
		robots := 0
		for _, f := range cfg.Fleets {
			robots += f.Count
		}

		fmt.Printf("%s: OK (%d fleets, %d robots, %d obstacles)\n",
			validateConfigPath, len(cfg.Fleets), robots, len(cfg.Field.Obstacles))
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "", "Path to CUE schema file (defaults to the embedded schema)")
}
