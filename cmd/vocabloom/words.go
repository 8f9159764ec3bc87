package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocabloom/pkg/srs"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <word>",
		Short: "Translate a word the way quizzes do",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			e := a.gate.GetWordData(cmd.Context(), args[0], a.language, a.sourceLanguage)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s → %s (%s)\n", args[0], strings.Join(e.Translations, ", "), e.Source)
			if e.PartOfSpeech != "" {
				fmt.Fprintf(out, "  part of speech: %s\n", e.PartOfSpeech)
			}
			for _, ex := range e.Examples {
				fmt.Fprintf(out, "  e.g. %s\n", ex)
			}
			return nil
		}),
	}
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "review <word> <performance>",
		Short: "Record a review of a word",
		Long:  "Performance is a score between 0 and 1, or between 0 and 5 with --raw.",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			perf, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("performance %q is not a number", args[1])
			}
			if raw {
				perf = srs.FromRawScore(perf)
			}
			rec, err := a.sched.ProcessReview(cmd.Context(), args[0], a.language, perf)
			if err != nil {
				return err
			}
			a.gov.RecordActivity(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: next review in %d day(s) on %s (ease %.2f, streak %d)\n",
				rec.Word, rec.IntervalDays, rec.NextReviewAt.Local().Format(time.DateOnly), rec.EaseFactor, rec.Streak)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "performance is a 0–5 quality score")
	return cmd
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List words due for review, most overdue first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			due, err := a.sched.DueWords(cmd.Context(), a.language, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "Nothing is due.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORD\tDUE\tINTERVAL\tREVIEWS")
			for _, rec := range due {
				when := "new"
				if rec.Reviewed() {
					when = rec.NextReviewAt.Local().Format(time.DateOnly)
				}
				fmt.Fprintf(w, "%s\t%s\t%dd\t%d\n", rec.Word, when, rec.IntervalDays, rec.ReviewCount)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum words to list (0 for all)")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning progress and usage",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			st, err := a.sched.Stats(cmd.Context(), a.language)
			if err != nil {
				return err
			}
			c := a.gov.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Language:  %s\n", a.language)
			fmt.Fprintf(out, "Words:     %d (%d new, %d learning, %d mature)\n", st.Total, st.New, st.Learning, st.Mature)
			fmt.Fprintf(out, "Due:       %d\n", st.Due)
			fmt.Fprintf(out, "Quizzes:   %d today (limit %d)\n", c.QuizzesToday, a.cfg.Usage.MaxQuizzesPerDay)
			fmt.Fprintf(out, "Streak:    %d day(s), longest %d, %d freeze(s)\n",
				c.Streak.CurrentStreak, c.Streak.LongestStreak, c.Streak.FreezesAvailable)
			return nil
		}),
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <word>",
		Short: "Forget the review history of a word",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.sched.Reset(cmd.Context(), args[0], a.language); err != nil {
				return fmt.Errorf("reset %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset.\n", srs.NormalizeWord(args[0]))
			return nil
		}),
	}
}
