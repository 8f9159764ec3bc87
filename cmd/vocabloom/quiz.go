package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocabloom/pkg/quiz"
)

func newQuizCmd(opts *rootOptions) *cobra.Command {
	var pf pageFlags
	var sessions int
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Quiz yourself on words from a page",
		Long: "Reads a page, records its candidate words and runs multiple-choice quizzes on them.\n" +
			"Answer with the option number or the option text.",
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			p, err := loadPage(cmd, a, pf)
			if err != nil {
				return err
			}
			return runQuizzes(cmd.Context(), a, p, cmd.InOrStdin(), cmd.OutOrStdout(), sessions)
		}),
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&sessions, "sessions", 1, "quizzes to run on this page, waiting quiz.next_quiz_delay between them")
	return cmd
}

func runQuizzes(ctx context.Context, a *app, p *page, in io.Reader, out io.Writer, sessions int) error {
	qc := a.cfg.QuizOptions()
	qc.OnComplete = func(r quiz.Result) {
		fmt.Fprintf(out, "Quiz complete: %d/%d correct (%.0f%%)\n", r.CorrectCount, r.Total, r.ScorePercentage)
	}
	ctrl, err := quiz.NewController(qc, a.sched, a.gate, a.gov, a.log)
	if err != nil {
		return err
	}
	// The page is dropped when the command returns.
	defer ctrl.Dismiss()

	lines := bufio.NewScanner(in)
	var timer quiz.Timer
	for i := 0; i < sessions; i++ {
		if i > 0 {
			if err := waitNext(ctx, &timer, a); err != nil {
				return err
			}
		}
		err := runSequence(ctx, ctrl, p, a.language, lines, out)
		switch {
		case errors.Is(err, quiz.ErrNoCandidates):
			fmt.Fprintln(out, "No quiz words found on this page.")
			return nil
		case errors.Is(err, quiz.ErrSessionCap):
			fmt.Fprintln(out, "That's enough quizzes for this page.")
			return nil
		case errors.Is(err, quiz.ErrDailyQuota):
			fmt.Fprintln(out, "Daily quiz limit reached. Come back tomorrow!")
			return nil
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "\nQuiz abandoned.")
			return nil
		case err != nil:
			return err
		}
	}
	return nil
}

// waitNext blocks until the next-quiz timer fires or ctx is done.
func waitNext(ctx context.Context, timer *quiz.Timer, a *app) error {
	ready := make(chan struct{})
	timer.ScheduleNext(a.cfg.Quiz.NextQuizDelay, func() { close(ready) })
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		timer.Cancel()
		return ctx.Err()
	}
}

func runSequence(ctx context.Context, ctrl *quiz.Controller, p *page, language string, lines *bufio.Scanner, out io.Writer) error {
	q, err := ctrl.Start(ctx, p.candidates, language, p.sourceLanguage)
	if err != nil {
		return err
	}
	for {
		printQuestion(out, q)
		selected, err := readAnswer(lines, q.Options)
		if err != nil {
			ctrl.Dismiss()
			return err
		}
		fb, err := ctrl.Answer(ctx, selected)
		if err != nil {
			return err
		}
		if fb.Correct {
			fmt.Fprintf(out, "✓ %s\n", fb.Explanation)
		} else {
			fmt.Fprintf(out, "✗ %s\n", fb.Explanation)
		}
		if fb.Result != nil {
			return nil
		}
		if q, err = ctrl.Next(); err != nil {
			return err
		}
	}
}

func printQuestion(out io.Writer, q quiz.Question) {
	fmt.Fprintf(out, "\n[%d/%d] %s\n", q.Index+1, q.Total, q.Prompt)
	if q.Sentence != "" {
		fmt.Fprintf(out, "    %s\n", q.Sentence)
	}
	for i, o := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o)
	}
	fmt.Fprint(out, "> ")
}

// readAnswer maps an option number to its text; other input is passed
// through as typed. Blank lines are skipped.
func readAnswer(lines *bufio.Scanner, options []string) (string, error) {
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		return text, nil
	}
	if err := lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
