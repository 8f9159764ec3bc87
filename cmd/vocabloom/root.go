package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags; non-empty values override config.
type rootOptions struct {
	configPath string
	dbPath     string
	lang       string
	sourceLang string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "vocabloom",
		Short:        "Learn vocabulary from the pages you read",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default vocabloom.yaml in . or ./config)")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides database.path)")
	pf.StringVar(&opts.lang, "lang", "", "language being learned (overrides languages.target)")
	pf.StringVar(&opts.sourceLang, "source-lang", "", "language pages are written in (overrides languages.source)")

	root.AddCommand(
		newQuizCmd(opts),
		newScanCmd(opts),
		newLookupCmd(opts),
		newReviewCmd(opts),
		newDueCmd(opts),
		newStatsCmd(opts),
		newResetCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newCustomCmd(opts),
	)
	return root
}
