// Package cmd implements the kosinter command line.
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kosinter/kosinter/internal/config"
	"github.com/kosinter/kosinter/internal/observability"
)

const appName = "kosinter"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "OSINT username enumeration across social platforms",
	Long: `kosinter checks whether a handle, and the split or joined spellings
derived from it, exist on a set of social platforms.

Every check answers exists, not found or uncertain. Uncertain is reported
whenever a platform's response cannot be read confidently.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx and returns the first error.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/kosinter/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(ExitUsage, err)
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	observability.InitCLILogger(appName, verbose)

	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, appName))
		} else if verbose {
			observability.CLILogger.Warn("Could not resolve user config directory", zap.Error(err))
		}

		// Also search in current directory
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set defaults and KOSINTER_* environment overrides
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	} else {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile != "":
			ExitWithCode(observability.CLILogger, ExitConfigInvalid, "Failed to read config file", err)
		case errors.As(err, &notFound):
			// It's OK if config file doesn't exist, we have defaults
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		default:
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}
}

// setDefaults sets default configuration values
func setDefaults() {
	config.ApplyDefaults(viper.GetViper())
}
