package srs

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *clock) AdvanceDays(d int) {
	c.Set(c.Now().Add(time.Duration(d) * 24 * time.Hour))
}

func mustScheduler(t *testing.T, cfg Config, store Store) (*Scheduler, *clock) {
	t.Helper()
	clk := &clock{now: t0}
	cfg.Now = clk.Now
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(42))
	}
	if store == nil {
		store = NewMemoryStore()
	}
	s, err := NewScheduler(cfg, store, nil)
	require.NoError(t, err)
	return s, clk
}

func TestNewSchedulerRejectsInvalidConfig(t *testing.T) {
	cases := map[string]Config{
		"threshold above one":   {SuccessThreshold: 1.5},
		"poor above success":    {SuccessThreshold: 0.5, PoorThreshold: 0.7},
		"reset factor too big":  {PartialResetFactor: 1.2},
		"inverted ease bounds":  {MinEase: 2.0, MaxEase: 1.5, InitialEase: 1.8},
		"max interval too long": {MaxIntervalDays: 40000},
		"jitter crosses tiers":  {Jitter: 500},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewScheduler(cfg, NewMemoryStore(), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewScheduler(Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCasaScenario(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{}, nil)

	rec, err := s.ProcessReview(ctx, "casa", "es", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.IntervalDays)
	assert.Equal(t, t0.Add(24*time.Hour), rec.NextReviewAt)

	clk.AdvanceDays(1)
	rec, err = s.ProcessReview(ctx, "casa", "es", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.IntervalDays)

	clk.Set(t0.Add(7 * 24 * time.Hour))
	rec, err = s.ProcessReview(ctx, "casa", "es", 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.IntervalDays, "poor score resets to the minimum, not 6*ease")
	assert.Equal(t, 0, rec.Streak)
	assert.Equal(t, 3, rec.ReviewCount)
	assert.Len(t, rec.History, 3)
}

func TestNextReviewInvariantHolds(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{}, nil)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		perf := rng.Float64()*1.4 - 0.2 // includes out-of-range values
		rec, err := s.ProcessReview(ctx, "perro", "es", perf)
		require.NoError(t, err)
		want := rec.LastReviewedAt.Add(time.Duration(rec.IntervalDays) * 24 * time.Hour)
		require.Equal(t, want.Unix(), rec.NextReviewAt.Unix(), "review %d", i)
		clk.Set(clk.Now().Add(time.Duration(rng.Intn(72)) * time.Hour))
	}
}

func TestIntervalMonotonicAcrossSuccesses(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{MinEase: 2.0, MaxEase: 2.0, InitialEase: 2.0, MaxIntervalDays: 365}, nil)

	prev := 0
	for i := 0; i < 15; i++ {
		rec, err := s.ProcessReview(ctx, "gato", "es", 0.9)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.IntervalDays, prev, "review %d", i)
		assert.Equal(t, 2.0, rec.EaseFactor)
		prev = rec.IntervalDays
		clk.AdvanceDays(rec.IntervalDays)
	}
	assert.Equal(t, 365, prev, "interval is capped")

	rec, err := s.ProcessReview(ctx, "gato", "es", 0.0)
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.IntervalDays, prev)
}

func TestNearMissIsPartialReset(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{}, nil)

	var rec WordRecord
	var err error
	for i := 0; i < 4; i++ {
		rec, err = s.ProcessReview(ctx, "libro", "es", 1.0)
		require.NoError(t, err)
		clk.AdvanceDays(rec.IntervalDays)
	}
	prior := rec.IntervalDays
	require.Greater(t, prior, 6)

	rec, err = s.ProcessReview(ctx, "libro", "es", 0.45)
	require.NoError(t, err)
	assert.Equal(t, int(math.Round(float64(prior)*0.5)), rec.IntervalDays)
	assert.GreaterOrEqual(t, rec.Streak, 2, "mature streak survives a near miss")
}

func TestNearMissOnYoungWordFloorsAtOneDay(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	_, err := s.ProcessReview(ctx, "mesa", "es", 1.0)
	require.NoError(t, err)
	rec, err := s.ProcessReview(ctx, "mesa", "es", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.IntervalDays)
	assert.Equal(t, 0, rec.Streak)
}

func TestEaseStaysWithinBounds(t *testing.T) {
	ctx := context.Background()
	for _, perf := range []float64{0, 1, -10, 10, math.NaN()} {
		s, clk := mustScheduler(t, Config{}, nil)
		for i := 0; i < 100; i++ {
			rec, err := s.ProcessReview(ctx, "agua", "es", perf)
			require.NoError(t, err)
			require.GreaterOrEqual(t, rec.EaseFactor, 1.3)
			require.LessOrEqual(t, rec.EaseFactor, 2.5)
			clk.AdvanceDays(rec.IntervalDays)
		}
	}
}

func TestPerformanceIsClamped(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	rec, err := s.ProcessReview(ctx, "sol", "es", 7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.History[0].Performance)
	assert.True(t, rec.History[0].Success)

	rec, err = s.ProcessReview(ctx, "luna", "es", -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.History[0].Performance)
	assert.False(t, rec.History[0].Success)
}

func TestFromRawScore(t *testing.T) {
	assert.Equal(t, 1.0, FromRawScore(5))
	assert.Equal(t, 0.6, FromRawScore(3))
	assert.Equal(t, 0.0, FromRawScore(-1))
	assert.Equal(t, 1.0, FromRawScore(9))
}

func TestHistoryIsTrimmed(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{HistoryLimit: 5}, nil)
	var rec WordRecord
	var err error
	for i := 0; i < 12; i++ {
		rec, err = s.ProcessReview(ctx, "flor", "es", float64(i%2))
		require.NoError(t, err)
	}
	assert.Len(t, rec.History, 5)
	assert.Equal(t, 12, rec.ReviewCount)
}

func TestWordsAreNormalized(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	_, err := s.ProcessReview(ctx, "  Casa ", "es-MX", 1)
	require.NoError(t, err)
	rec, err := s.Record(ctx, "casa", "es")
	require.NoError(t, err)
	assert.Equal(t, "casa", rec.Word)
	assert.Equal(t, "es", rec.Language)

	_, err = s.ProcessReview(ctx, "   ", "es", 1)
	assert.ErrorIs(t, err, ErrEmptyWord)
}

func TestConcurrentReviewsOfSameWordAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ProcessReview(ctx, "tren", "es", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := s.Record(ctx, "tren", "es")
	require.NoError(t, err)
	assert.Equal(t, 32, rec.ReviewCount)
}

func TestTrackAndReset(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	rec, created, err := s.Track(ctx, "nube", "es")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, rec.Reviewed())

	_, created, err = s.Track(ctx, "nube", "es")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.Reset(ctx, "nube", "es"))
	_, err = s.Record(ctx, "nube", "es")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Reset(ctx, "nube", "es"), ErrNotFound)
}

func TestDueWordsOrdering(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{}, nil)

	// "uno": interval 1, reviewed at t0 → due t0+1d.
	_, err := s.ProcessReview(ctx, "uno", "es", 1)
	require.NoError(t, err)
	// "dos": interval 6, due t0+6d.
	_, err = s.ProcessReview(ctx, "dos", "es", 1)
	require.NoError(t, err)
	clk.Set(t0)
	_, err = s.ProcessReview(ctx, "dos", "es", 1)
	require.NoError(t, err)
	// "tres": not due until much later.
	for i := 0; i < 4; i++ {
		_, err = s.ProcessReview(ctx, "tres", "es", 1)
		require.NoError(t, err)
	}
	_, _, err = s.Track(ctx, "cuatro", "es")
	require.NoError(t, err)
	_, err = s.ProcessReview(ctx, "house", "en", 1)
	require.NoError(t, err)

	clk.Set(t0.Add(10 * 24 * time.Hour))
	due, err := s.DueWords(ctx, "es", 0)
	require.NoError(t, err)

	words := make([]string, 0, len(due))
	for _, r := range due {
		words = append(words, r.Word)
	}
	// uno: 9 days over a 1-day interval; dos: 4 days over 6.
	assert.Equal(t, []string{"uno", "dos", "cuatro"}, words)

	limited, err := s.DueWords(ctx, "es", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "uno", limited[0].Word)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	_, _, err := s.Track(ctx, "nuevo", "es")
	require.NoError(t, err)
	_, err = s.ProcessReview(ctx, "medio", "es", 1)
	require.NoError(t, err)
	rec := WordRecord{Word: "viejo", Language: "es", EaseFactor: 2.5, IntervalDays: 30, ReviewCount: 5,
		LastReviewedAt: t0, NextReviewAt: t0.Add(30 * 24 * time.Hour)}
	require.NoError(t, s.store.Put(ctx, rec))

	st, err := s.Stats(ctx, "es")
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Due: 1, New: 1, Learning: 1, Mature: 1}, st)
}

func TestExportImportReproducesDecisions(t *testing.T) {
	ctx := context.Background()
	src, clk := mustScheduler(t, Config{}, nil)

	words := []string{"casa", "perro", "gato", "libro"}
	perfs := []float64{1, 0.4, 0.8, 0.1, 1, 0.65}
	for day := 0; day < 10; day++ {
		for i, w := range words {
			_, err := src.ProcessReview(ctx, w, "es", perfs[(day+i)%len(perfs)])
			require.NoError(t, err)
		}
		clk.AdvanceDays(1)
	}

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf)
	require.NoError(t, err)
	require.Equal(t, len(words), n)

	dst, dstClk := mustScheduler(t, Config{}, nil)
	dstClk.Set(clk.Now())
	n, err = dst.Import(ctx, &buf)
	require.NoError(t, err)
	require.Equal(t, len(words), n)

	for step := 0; step < 5; step++ {
		for i, w := range words {
			perf := perfs[(step*3+i)%len(perfs)]
			a, err := src.ProcessReview(ctx, w, "es", perf)
			require.NoError(t, err)
			b, err := dst.ProcessReview(ctx, w, "es", perf)
			require.NoError(t, err)
			assert.Equal(t, a.IntervalDays, b.IntervalDays)
			assert.Equal(t, a.EaseFactor, b.EaseFactor)
			assert.Equal(t, a.Streak, b.Streak)
			assert.True(t, a.NextReviewAt.Equal(b.NextReviewAt))
		}
		clk.AdvanceDays(2)
		dstClk.AdvanceDays(2)
	}
}

func TestImportRejectsBadSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	_, err := s.Import(ctx, bytes.NewBufferString("not json"))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	_, err = s.Import(ctx, bytes.NewBufferString(`{"version": 9, "records": []}`))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	_, err = s.Import(ctx, bytes.NewBufferString(`{"version": 1, "records": [{"word": "", "language": "es"}]}`))
	assert.ErrorIs(t, err, ErrBadSnapshot)
}

func TestImportRestoresScheduleInvariant(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	snapshot := `{"version": 1, "records": [
	  {"word": "Casa", "language": "ES", "ease_factor": 9, "interval_days": 4, "review_count": 2, "streak": 2,
	   "last_reviewed_at": "2025-06-10T10:00:00Z", "next_review_at": "2030-01-01T00:00:00Z"},
	  {"word": "libro", "language": "es", "ease_factor": 2.1, "interval_days": 5000, "review_count": 7,
	   "last_reviewed_at": "2025-06-01T10:00:00Z", "next_review_at": "2025-06-02T10:00:00Z"},
	  {"word": "nuevo", "language": "es"}
	]}`
	n, err := s.Import(ctx, bytes.NewBufferString(snapshot))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	casa, err := s.Record(ctx, "casa", "es")
	require.NoError(t, err)
	assert.Equal(t, 2.5, casa.EaseFactor)
	assert.Equal(t, time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC), casa.NextReviewAt.UTC())

	libro, err := s.Record(ctx, "libro", "es")
	require.NoError(t, err)
	assert.Equal(t, 365, libro.IntervalDays)
	assert.True(t, libro.NextReviewAt.Equal(libro.LastReviewedAt.Add(365*24*time.Hour)))

	nuevo, err := s.Record(ctx, "nuevo", "es")
	require.NoError(t, err)
	assert.False(t, nuevo.Reviewed())
	assert.Equal(t, s.Config().InitialEase, nuevo.EaseFactor)
}

func TestImportRejectsReviewedRecordWithoutReviewTime(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	_, err := s.Import(ctx, bytes.NewBufferString(
		`{"version": 1, "records": [{"word": "casa", "language": "es", "interval_days": 6, "review_count": 2}]}`))
	assert.ErrorIs(t, err, ErrBadSnapshot)
	_, err = s.Record(ctx, "casa", "es")
	assert.ErrorIs(t, err, ErrNotFound)
}
