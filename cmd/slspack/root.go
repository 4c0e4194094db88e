package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/scadu/serverless/internal/config"
	"github.com/scadu/serverless/internal/logging"
	"github.com/scadu/serverless/internal/packager"
	"github.com/scadu/serverless/internal/version"
)

var (
	configPath string
	logLevel   = logging.LevelInfo
	logFormat  = logging.FormatText

	log *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "slspack",
		Short: "Build deployment artifacts for a serverless service",
		Long: `slspack reads a service configuration and packages the service's
functions and layers into reproducible zip archives, applying the
configured include / exclude patterns on top of the built-in defaults.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.NewLogger(logging.Config{Level: logLevel, Format: logFormat})
			log.Debugf("Command %q started.", cmd.Name())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

var logLevelIds = map[logging.Level][]string{
	logging.LevelError: {"error"},
	logging.LevelWarn:  {"warn"},
	logging.LevelInfo:  {"info"},
	logging.LevelDebug: {"debug"},
}

var logFormatIds = map[logging.Format][]string{
	logging.FormatText: {"text"},
	logging.FormatJSON: {"json"},
}

// Execute is called by main.main(). It only needs to happen once.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "service configuration file (default: serverless.yml or serverless.yaml)")
	rootCmd.PersistentFlags().Var(
		enumflag.New(&logLevel, "level", logLevelIds, enumflag.EnumCaseInsensitive),
		"log-level", "log verbosity: error, warn, info or debug")
	rootCmd.PersistentFlags().Var(
		enumflag.New(&logFormat, "format", logFormatIds, enumflag.EnumCaseInsensitive),
		"log-format", "log encoding: text or json")

	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves and parses the service configuration, returning the
// parsed root together with the file it came from.
func loadConfig() (*config.Root, string, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.Discover("."); err != nil {
			return nil, "", err
		}
	}

	cfg, err := config.ParseFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slspack version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the service configuration without building anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		plan, err := packager.BuildPlan(cfg, filepath.Base(path), "")
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: configuration OK, %d units to package\n", filepath.Base(path), len(plan.Units))
		return nil
	},
}
