package srs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// Priority tiers. The bases are tuning knobs; only their order matters.
// Adjacent tiers are at least tierGap apart so jitter never reorders them.
const (
	overdueBase      = 1000.0
	overduePerDay    = 10.0
	overdueMaxBonus  = 500.0
	strugglingBase   = 800.0
	strugglingRatio  = 0.7
	learningBase     = 400.0
	learningMaxBonus = 100.0
	newBase          = 200.0
	tierGap          = 130.0
)

type scoredWord struct {
	word  string
	score float64
}

// PrioritizeWords ranks candidate words for a quiz: overdue words first
// (more overdue ranks higher), then struggling words, then partially learned
// ones, and never-seen words last. Small jitter varies the order within a
// tier between calls. count ≤ 0 returns every candidate.
func (s *Scheduler) PrioritizeWords(ctx context.Context, candidates []string, language string, count int) ([]string, error) {
	language = NormalizeLanguage(language)
	words := lo.Uniq(lo.Filter(
		lo.Map(candidates, func(w string, _ int) string { return NormalizeWord(w) }),
		func(w string, _ int) bool { return w != "" },
	))

	scored := make([]scoredWord, 0, len(words))
	for _, w := range words {
		rec, err := s.store.Get(ctx, language, w)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load record %s/%s: %w", language, w, err)
		}
		scored = append(scored, scoredWord{word: w, score: s.baseScore(rec, err == nil) + s.jitter()})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if count > 0 && len(scored) > count {
		scored = scored[:count]
	}
	return lo.Map(scored, func(sw scoredWord, _ int) string { return sw.word }), nil
}

func (s *Scheduler) baseScore(rec WordRecord, found bool) float64 {
	if !found || !rec.Reviewed() {
		return newBase
	}
	now := s.cfg.Now()
	if rec.Due(now) {
		return overdueBase + math.Min(rec.OverdueDays(now)*overduePerDay, overdueMaxBonus)
	}
	if ratio := rec.SuccessRatio(); ratio < strugglingRatio {
		return strugglingBase + (strugglingRatio-ratio)*100
	}
	progress := float64(rec.IntervalDays) / float64(s.cfg.MaxIntervalDays)
	return learningBase + learningMaxBonus*(1-math.Min(progress, 1))
}
