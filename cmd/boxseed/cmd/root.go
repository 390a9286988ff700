package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/boxseed/internal/config"
	"github.com/MeKo-Tech/boxseed/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Error of the last configuration load, reported before any command runs.
	configErr error
	// Configuration file path.
	cfgFile string
	// Flags that override configuration keys.
	flagBindings []flagBinding
)

type flagBinding struct {
	key  string
	flag *pflag.Flag
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "boxseed",
	Short: "Resolve existing detection annotations into default boxes",
	Long: `boxseed reads the annotations a dataset already carries and turns them into
default bounding boxes for every candidate image, ready to pre-fill a labeling tool.

Supported annotation sources:
- Folder of YOLO .txt sidecars or Pascal-VOC .xml sidecars
- A single JSON document with per-image box lists
- A CSV file or XLSX workbook with one annotation per row

Boxes are emitted as fractions of the image size with the top-left corner as origin.

Examples:
  boxseed resolve pets.yaml
  boxseed resolve --dataset pets.yaml --format json --output defaults.json
  boxseed labels pets.yaml`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// ResetFlags restores every flag of the command tree to its default and drops
// the context of the previous run so an in-process harness can execute the
// root command repeatedly. Cobra only hands the root context down to commands
// whose context is unset.
func ResetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.SetContext(nil) //nolint:staticcheck // SA1012: clears the previous run's context
		reset(c.PersistentFlags())
		reset(c.Flags())
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func init() {
	// Initialize configuration loader
	cobra.OnInitialize(initConfig)

	// Global flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/boxseed, /etc/boxseed)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("dataset", "d", "", "dataset definition file (YAML or JSON)")

	// Version flag for tests and usability
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	bindFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	bindFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag("dataset", rootCmd.PersistentFlags().Lookup("dataset"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Initialize configuration if not already done
		if globalConfig == nil && configErr == nil {
			initConfig()
		}
		if configErr != nil {
			return configErr
		}

		// Set up structured logging; reports own stdout
		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: globalConfig.SlogLevel(),
		}))
		slog.SetDefault(logger)
		return nil
	}
}

// bindFlag registers flag as an override of the configuration key.
func bindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("failed to bind flag for %s: flag not defined", key))
	}
	flagBindings = append(flagBindings, flagBinding{key: key, flag: flag})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configErr = nil
	configLoader = config.NewLoader()
	for _, b := range flagBindings {
		if err := configLoader.GetViper().BindPFlag(b.key, b.flag); err != nil {
			configErr = fmt.Errorf("failed to bind flag %s: %w", b.flag.Name, err)
			return
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		globalConfig, configErr = configLoader.LoadWithFile(cfgFile)
	} else {
		// Search for config in default locations
		globalConfig, configErr = configLoader.Load()
	}
	if configErr != nil {
		configErr = fmt.Errorf("error loading configuration: %w", configErr)
	}
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	if globalConfig == nil {
		return config.DefaultConfig()
	}

	// Reload configuration to ensure CLI flags are included
	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		slog.Warn("Error unmarshaling updated configuration", "error", err)
		return globalConfig
	}
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
