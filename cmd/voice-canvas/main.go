package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jclarke67/voice-canvas-scribe/internal/config"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voice-canvas",
		Short: "Voice note repository with a local API and weekly summaries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newSummarizeCommand(), newNotesCommand(), newPruneAudioCommand())
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("storage-driver", defaults.GetString("storage.driver"), "Storage driver (sqlite, redis)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("redis-url", defaults.GetString("redis.url"), "Redis connection URL")
	flags.String("redis-prefix", defaults.GetString("redis.prefix"), "Prefix applied to every Redis key")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	flags.String("ids", defaults.GetString("ids.kind"), "Identifier scheme (uuid, ulid)")
	flags.Duration("summary-interval", defaults.GetDuration("summary.interval"), "Interval between weekly summary checks")
	flags.Bool("summary-enabled", defaults.GetBool("summary.enabled"), "Enable automatic weekly summaries when no setting is stored")
	flags.StringSlice("allowed-origins", defaults.GetStringSlice("api.allowed_origins"), "Origins allowed by CORS (all when empty)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.url", "redis-url")
	bindFlag(cmd, "redis.prefix", "redis-prefix")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "ids.kind", "ids")
	bindFlag(cmd, "summary.interval", "summary-interval")
	bindFlag(cmd, "summary.enabled", "summary-enabled")
	bindFlag(cmd, "api.allowed_origins", "allowed-origins")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	return readConfigFile(viper.GetViper(), cfgFile)
}

// readConfigFile merges the configuration file into v. An explicit path must exist and parse;
// without one only a missing file is tolerated.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
