// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/jdfalk/anime-organizer/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var databasePath string
var databaseType string
var enableSQLite bool
var animeFolders []string
var debug bool
var logFile string
var metricsFile string

// closeLog undoes setupLogging after a command finishes.
var closeLog = func() {}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anime-organizer",
	Short: "Identify anime episodes from filenames and release titles",
	Long: `Anime Organizer matches video filenames, release feed titles and media
player window titles against the AniList catalog.

It extracts episode numbers, follows sequel chains when an episode number
runs past the end of a season, tells batch releases apart from single
episodes, and keeps an index of which episodes exist on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(config.AppConfig); err != nil {
			return err
		}
		closer, err := setupLogging(config.AppConfig)
		if err != nil {
			return err
		}
		closeLog = closer
		metrics.Register()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer closeLog()
		if path := config.AppConfig.MetricsFile; path != "" {
			if err := metrics.WriteFile(path); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			log.Printf("[DEBUG] metrics written to %s", path)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.anime-organizer.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&animeFolders, "folder", nil, "anime folder to scan (repeatable)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "anime-organizer.pebble", "path to database (default: anime-organizer.pebble for PebbleDB)")
	rootCmd.PersistentFlags().StringVar(&databaseType, "db-type", "pebble", "database type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cross-compilation issues, PebbleDB recommended)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "show [DEBUG] log lines")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this rotating file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each command")
	rootCmd.PersistentFlags().Float64("threshold", 0.8, "minimum confidence to accept a match")
	rootCmd.PersistentFlags().String("policy", "best_metric", "matcher policy: best_metric or consensus")
	rootCmd.PersistentFlags().Bool("rewind", false, "treat overflowing episode numbers as counted from the first season")

	viper.BindPFlag("anime_folders", rootCmd.PersistentFlags().Lookup("folder"))
	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("metrics_file", rootCmd.PersistentFlags().Lookup("metrics-file"))
	viper.BindPFlag("similarity_threshold", rootCmd.PersistentFlags().Lookup("threshold"))
	viper.BindPFlag("matcher_policy", rootCmd.PersistentFlags().Lookup("policy"))
	viper.BindPFlag("rewind_to_first_prequel", rootCmd.PersistentFlags().Lookup("rewind"))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(episodesCmd)
	rootCmd.AddCommand(regressCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".anime-organizer")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()

	// Ensure database directory exists
	if dbDir := filepath.Dir(config.AppConfig.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
		}
	}
}
