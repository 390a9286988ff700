package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/MeKo-Tech/boxseed/internal/report"
	"github.com/spf13/cobra"
)

// labelsCmd represents the labels command.
var labelsCmd = &cobra.Command{
	Use:   "labels [dataset.yaml]",
	Short: "List the label names a dataset's annotation source uses",
	Long: `Print the sorted, de-duplicated label names found in the dataset's
annotation source, resolved through its label map and class names.

Examples:
  boxseed labels pets.yaml
  boxseed labels --dataset pets.yaml --format json`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != report.FormatText && format != report.FormatJSON {
			return fmt.Errorf("invalid labels format: %s (must be %s or %s)", format, report.FormatText, report.FormatJSON)
		}

		cfg := GetConfig()
		def, err := loadDefinition(cfg, args)
		if err != nil {
			return err
		}

		engine := defaults.NewEngine(cfg.EngineOptions(slog.Default(), nil)...)
		names := engine.LabelNamesFromSource(cmd.Context(), def.Dataset())
		out, err := report.FormatLabels(names, format)
		if err != nil {
			return fmt.Errorf("format %s failed: %w", format, err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().StringP("format", "f", report.FormatText, "output format (text, json)")
}
