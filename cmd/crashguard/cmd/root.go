package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	dataDir   string
	output    string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
	appBranch  string
)

var rootCmd = &cobra.Command{
	Use:   "crashguard",
	Short: "Crash detection and recovery bookkeeping for a long-running process",
	Long: `crashguard detects whether the previous run of a process crashed, records
every crash in a bounded ledger, preserves native crash dumps, raises a daily
alert when crashes become frequent and builds shareable crash reports.

A launcher that restarts a crashed process passes crashRecovery:<pid> to
'crashguard serve'. Without it, a running marker left behind by the previous
run is reported as an unexpected shutdown.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// SetVersion injects build metadata.
func SetVersion(version, commit, date, branch string) {
	appVersion = version
	appCommit = commit
	appDate = date
	appBranch = branch
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./crashguard.yaml or ~/.config/crashguard/crashguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data",
		"directory holding the marker, ledger, archive and alerts")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table",
		"output format for listings (table, json, yaml)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("crashguard")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/crashguard")
	}

	viper.SetEnvPrefix("CRASHGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}
