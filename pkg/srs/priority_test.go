package srs

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedTiers stores one word per priority tier, as seen at t0+30d.
func seedTiers(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	day := 24 * time.Hour
	now := t0.Add(30 * day)

	overdue := WordRecord{Word: "vencido", Language: "es", EaseFactor: 2.5, IntervalDays: 6, ReviewCount: 2, Streak: 2,
		LastReviewedAt: now.Add(-10 * day), NextReviewAt: now.Add(-4 * day),
		History: []ReviewEntry{{Success: true}, {Success: true}}}
	struggling := WordRecord{Word: "dificil", Language: "es", EaseFactor: 1.4, IntervalDays: 1, ReviewCount: 4,
		LastReviewedAt: now.Add(-12 * time.Hour), NextReviewAt: now.Add(12 * time.Hour),
		History: []ReviewEntry{{Success: false}, {Success: false}, {Success: true}, {Success: false}}}
	learning := WordRecord{Word: "aprendido", Language: "es", EaseFactor: 2.5, IntervalDays: 15, ReviewCount: 3, Streak: 3,
		LastReviewedAt: now.Add(-day), NextReviewAt: now.Add(14 * day),
		History: []ReviewEntry{{Success: true}, {Success: true}, {Success: true}}}

	for _, rec := range []WordRecord{overdue, struggling, learning} {
		require.NoError(t, store.Put(ctx, rec))
	}
}

func TestPrioritizeWordsTierOrder(t *testing.T) {
	ctx := context.Background()
	for seed := int64(0); seed < 25; seed++ {
		store := NewMemoryStore()
		seedTiers(t, store)
		s, clk := mustScheduler(t, Config{Rand: rand.New(rand.NewSource(seed))}, store)
		clk.Set(t0.Add(30 * 24 * time.Hour))

		got, err := s.PrioritizeWords(ctx, []string{"nuevo", "aprendido", "dificil", "vencido"}, "es", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"vencido", "dificil", "aprendido", "nuevo"}, got, "seed %d", seed)
	}
}

func TestPrioritizeWordsPastDueBeatsNew(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{}, nil)

	_, err := s.ProcessReview(ctx, "viejo", "es", 1)
	require.NoError(t, err)
	clk.AdvanceDays(1) // exactly due, zero days overdue

	for i := 0; i < 20; i++ {
		got, err := s.PrioritizeWords(ctx, []string{"fresco", "viejo"}, "es", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"viejo"}, got)
	}
}

func TestPrioritizeWordsMoreOverdueFirst(t *testing.T) {
	ctx := context.Background()
	s, clk := mustScheduler(t, Config{Jitter: -1}, nil)

	_, err := s.ProcessReview(ctx, "antiguo", "es", 1)
	require.NoError(t, err)
	clk.AdvanceDays(1)
	_, err = s.ProcessReview(ctx, "reciente", "es", 1)
	require.NoError(t, err)
	clk.AdvanceDays(10)

	got, err := s.PrioritizeWords(ctx, []string{"reciente", "antiguo"}, "es", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"antiguo", "reciente"}, got)
}

func TestPrioritizeWordsDedupesAndTruncates(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{}, nil)

	got, err := s.PrioritizeWords(ctx, []string{"Casa", "casa ", "", "  ", "perro", "gato"}, "es", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NotContains(t, got, "")

	all, err := s.PrioritizeWords(ctx, []string{"Casa", "casa ", "perro", "gato"}, "es", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"casa", "perro", "gato"}, all)
}

func TestPrioritizeWordsJitterVariesNewWords(t *testing.T) {
	ctx := context.Background()
	s, _ := mustScheduler(t, Config{Rand: rand.New(rand.NewSource(3))}, nil)
	candidates := []string{"uno", "dos", "tres", "cuatro", "cinco", "seis"}

	seen := map[string]bool{}
	for i := 0; i < 30; i++ {
		got, err := s.PrioritizeWords(ctx, candidates, "es", 1)
		require.NoError(t, err)
		seen[got[0]] = true
	}
	assert.Greater(t, len(seen), 1, "jitter should vary the leading new word")
}
