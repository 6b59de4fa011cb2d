package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/cuitarget/internal/core/db"
	"github.com/solatis/cuitarget/internal/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "list migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		statuses, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		pending := 0
		for _, s := range statuses {
			state := "pending"
			if s.Applied && s.AppliedAt != nil {
				state = "applied " + s.AppliedAt.UTC().Format(time.RFC3339)
			} else {
				pending++
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", s.ID, shortChecksum(s.Checksum), state)
		}
		if pending > 0 {
			return nil
		}
		return printOntologySummary(cmd, database, log)
	}

	applied, err := db.MigrateUp(ctx, database)
	if err != nil {
		return err
	}
	for _, id := range applied {
		log.Info().Str("migration", id).Msg("migration applied")
	}
	log.Info().Int("applied", len(applied)).Msg("database up to date")
	return nil
}

// printOntologySummary reports the imported ontology of a migrated database.
func printOntologySummary(cmd *cobra.Command, database *sqlx.DB, log zerolog.Logger) error {
	store, err := db.NewStore(database, log)
	if err != nil {
		return err
	}
	sum, err := store.Summary(cmd.Context())
	if errors.Is(err, types.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "ontology\tnot imported")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ontology\t%d concepts\thierarchy=%t\timported %s\n",
		sum.Concepts, sum.Hierarchy, sum.ImportedAt.UTC().Format(time.RFC3339))
	return nil
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
