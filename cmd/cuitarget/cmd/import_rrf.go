package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/cuitarget/internal/ontology/umls"
)

var importCmd = &cobra.Command{
	Use:   "import-rrf <META directory>",
	Short: "Import MRCONSO, MRSTY and MRREL into the concept store",
	Long: `import-rrf reads a UMLS Metathesaurus META directory and replaces the stored
ontology. MRREL.RRF is optional; without it hierarchy filters match no descendants.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringSlice("lang", umls.DefaultOptions().Languages, "MRCONSO languages (LAT) to import; empty imports all")
	importCmd.Flags().StringSlice("sab", nil, "source vocabularies (SAB) to import; empty imports all")
	importCmd.Flags().Bool("keep-suppressed", false, "import suppressed atoms")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	var opts umls.Options
	if opts.Languages, err = cmd.Flags().GetStringSlice("lang"); err != nil {
		return err
	}
	if opts.Sources, err = cmd.Flags().GetStringSlice("sab"); err != nil {
		return err
	}
	if opts.KeepSuppressed, err = cmd.Flags().GetBool("keep-suppressed"); err != nil {
		return err
	}

	reader, err := umls.NewReader(args[0], log)
	if err != nil {
		return err
	}
	tables, _, err := reader.ReadTables(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to read metathesaurus: %w", err)
	}

	database, store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := store.SaveTables(ctx, tables); err != nil {
		return fmt.Errorf("failed to save ontology: %w", err)
	}
	return nil
}
