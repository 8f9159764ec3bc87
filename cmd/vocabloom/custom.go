package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocabloom/pkg/db"
	"github.com/japaniel/vocabloom/pkg/dictionary"
)

func newCustomCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Manage your own dictionary entries",
	}
	cmd.AddCommand(newCustomAddCmd(opts), newCustomListCmd(opts), newCustomRemoveCmd(opts))
	return cmd
}

func newCustomAddCmd(opts *rootOptions) *cobra.Command {
	var pos string
	var examples []string
	cmd := &cobra.Command{
		Use:   "add <word> <translation>...",
		Short: "Add or replace an entry; it wins over every other source",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			e := dictionary.Entry{
				Word:         args[0],
				Translations: args[1:],
				PartOfSpeech: pos,
				Examples:     examples,
			}
			if err := a.gate.PutCustom(cmd.Context(), a.language, e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s → %s\n", args[0], strings.Join(args[1:], ", "))
			return nil
		}),
	}
	cmd.Flags().StringVar(&pos, "pos", "", "part of speech")
	cmd.Flags().StringArrayVar(&examples, "example", nil, "example sentence (repeatable)")
	return cmd
}

func newCustomListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your entries for the learning language",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			entries, err := db.NewCustomEntryStore(a.conn).List(cmd.Context(), a.language)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s → %s\n", e.Word, strings.Join(e.Translations, ", "))
			}
			return nil
		}),
	}
}

func newCustomRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <word>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.gate.DeleteCustom(cmd.Context(), a.language, args[0]); err != nil {
				return fmt.Errorf("remove %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
			return nil
		}),
	}
}
