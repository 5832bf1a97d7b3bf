package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lodging-cli/internal/report"
)

var describeFormat string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "List the tables, metrics, categories and years of the dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("query"); err != nil {
			return err
		}
		format, err := report.ParseFormat(describeFormat)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context(), cfg)
		if err != nil {
			return eris.Wrap(err, "load dataset")
		}

		catalog := report.Describe(snap)
		if format == report.FormatJSON {
			return report.JSON(cmd.OutOrStdout(), catalog)
		}
		return report.WriteCatalog(cmd.OutOrStdout(), catalog)
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeFormat, "format", "o", "markdown", "output format: markdown (table) or json")
	rootCmd.AddCommand(describeCmd)
}
