package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/boxseed/internal/config"
	"github.com/MeKo-Tech/boxseed/internal/dataset"
	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/MeKo-Tech/boxseed/internal/metrics"
	"github.com/MeKo-Tech/boxseed/internal/report"
	"github.com/spf13/cobra"
)

// errNoDataset is returned when neither an argument, --dataset nor the
// configuration names a dataset definition.
var errNoDataset = errors.New("no dataset definition given (pass a path, --dataset or set dataset in the config file)")

// resolveCmd represents the resolve command.
var resolveCmd = &cobra.Command{
	Use:   "resolve [dataset.yaml]",
	Short: "Resolve default annotations for every candidate file of a dataset",
	Long: `Scan the dataset's data folder for candidate files and resolve the default
boxes its annotation source provides for each of them.

Files without defaults are left out of the report. A broken or missing
annotation source is not an error: it simply yields no defaults.

Examples:
  boxseed resolve pets.yaml
  boxseed resolve --dataset pets.yaml --format csv --output defaults.csv
  boxseed resolve pets.yaml --workers 8 --metrics-file boxseed.prom`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get configuration (includes CLI flags, config file, env vars, and defaults)
		cfg := GetConfig()
		def, err := loadDefinition(cfg, args)
		if err != nil {
			return err
		}
		files, err := def.Files()
		if err != nil {
			return fmt.Errorf("failed to list dataset files: %w", err)
		}

		recorder, err := metrics.NewRecorder()
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		// The engine tags its own records with the dataset name.
		engine := defaults.NewEngine(cfg.EngineOptions(slog.Default(), recorder)...)
		res := engine.DefaultsForFiles(cmd.Context(), def.Dataset(), files)
		if err := cmd.Context().Err(); err != nil {
			return fmt.Errorf("resolution interrupted: %w", err)
		}

		out, err := report.Format(res, report.Summary{Dataset: def.Name, Candidates: len(files)}, cfg.Output.Format)
		if err != nil {
			return fmt.Errorf("format %s failed: %w", cfg.Output.Format, err)
		}
		if err := writeOutput(cmd, out, cfg.Output.File); err != nil {
			return err
		}

		if cfg.Metrics.File != "" {
			if err := recorder.WriteTextfile(cfg.Metrics.File); err != nil {
				return err
			}
		}

		slog.Info("Resolved default annotations",
			"dataset", def.Name, "candidates", len(files), "with_defaults", len(res), "format", def.Dataset().Source.Format)
		return nil
	},
}

// loadDefinition loads the dataset definition named by the first argument,
// falling back to the configured dataset.
func loadDefinition(cfg *config.Config, args []string) (*dataset.Definition, error) {
	path := cfg.Dataset
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errNoDataset
	}
	return dataset.Load(path)
}

// writeOutput prints out or writes it to file.
func writeOutput(cmd *cobra.Command, out, file string) error {
	if file != "" {
		if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", file); err != nil {
			return err
		}
		return nil
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("failed to write final output: %w", err)
	}
	return nil
}

// bindResolveFlags binds the resolve flags to viper configuration keys.
func bindResolveFlags(cmd *cobra.Command) {
	bindings := []struct {
		key  string
		flag string
	}{
		{"output.format", "format"},
		{"output.file", "output"},
		{"engine.workers", "workers"},
		{"engine.auto_orient", "auto-orient"},
		{"metrics.file", "metrics-file"},
	}

	for _, binding := range bindings {
		bindFlag(binding.key, cmd.Flags().Lookup(binding.flag))
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringP("format", "f", report.FormatText, "output format (text, json, csv)")
	resolveCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	resolveCmd.Flags().IntP("workers", "w", 1, "number of sidecar files parsed concurrently")
	resolveCmd.Flags().Bool("auto-orient", false, "read image dimensions in EXIF display orientation")
	resolveCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format to this file")

	bindResolveFlags(resolveCmd)
}

// GetResolveCommand returns the resolve command for testing purposes.
func GetResolveCommand() *cobra.Command {
	return resolveCmd
}
