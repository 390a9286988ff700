package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the configuration after merging defaults, the config file,
BOXSEED_* environment variables and command-line flags, followed by the
locations searched for a config file.

Examples:
  boxseed config
  BOXSEED_ENGINE_WORKERS=4 boxseed config
  boxseed config --config ./boxseed.yaml`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		bts, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}

		used := GetConfigLoader().GetConfigFileUsed()
		if used == "" {
			used = "none"
		}

		var out strings.Builder
		fmt.Fprintf(&out, "# Config file: %s\n", used)
		out.Write(bts)
		out.WriteString("# Search paths:\n")
		for _, p := range config.GetConfigSearchPaths() {
			fmt.Fprintf(&out, "#   %s\n", p)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out.String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
