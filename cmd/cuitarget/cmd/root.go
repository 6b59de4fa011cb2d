package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/cuitarget/internal/core/config"
	"github.com/solatis/cuitarget/internal/core/db"
	"github.com/solatis/cuitarget/internal/core/logging"
)

// Version is reported by the serve command.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "cuitarget",
	Short:         "Select UMLS concept targets with composable filters",
	Long:          `cuitarget imports a UMLS Metathesaurus into a concept store and selects (CUI, name) targets by type, CUI, name or hierarchy.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig applies persistent flag overrides on top of file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and builds the logger every command needs.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format).With().Str("cmd", cmd.Name()).Logger()
	return cfg, log, nil
}

// openStore opens and migrates the database and wraps it in a Store.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sqlx.DB, *db.Store, error) {
	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	applied, err := db.MigrateUp(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, id := range applied {
		log.Info().Str("migration", id).Msg("migration applied")
	}
	store, err := db.NewStore(database, log)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, store, nil
}
