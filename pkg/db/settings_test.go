package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/japaniel/vocabloom/pkg/usage"
)

func TestSettingsGetSet(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	defer conn.Close()
	s := NewSettings(conn)

	var missing map[string]int
	if err := s.Get(ctx, "nope", &missing); !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("expected ErrSettingNotFound, got %v", err)
	}

	if err := s.Set(ctx, "prefs", map[string]int{"a": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "prefs", map[string]int{"a": 2}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	var got map[string]int
	if err := s.Get(ctx, "prefs", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["a"] != 2 {
		t.Fatalf("expected overwritten value, got %v", got)
	}
}

func TestSettingsCounterStore(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	defer conn.Close()
	s := NewSettings(conn)

	if _, err := s.LoadCounters(ctx); !errors.Is(err, usage.ErrNoCounters) {
		t.Fatalf("expected ErrNoCounters, got %v", err)
	}

	want := usage.Counters{
		RequestsThisWindow: 7,
		WindowResetAt:      t0.Add(time.Minute),
		QuizzesToday:       2,
		Day:                "2024-03-01",
		Streak:             usage.StreakInfo{CurrentStreak: 3, LongestStreak: 5, LastActiveDate: "2024-03-01", FreezesAvailable: 1},
	}
	if err := s.SaveCounters(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadCounters(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RequestsThisWindow != 7 || got.QuizzesToday != 2 || got.Streak != want.Streak || !got.WindowResetAt.Equal(want.WindowResetAt) {
		t.Fatalf("unexpected counters %+v", got)
	}
}

func TestSettingsBackedGovernorSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	defer conn.Close()

	now := t0
	cfg := usage.Config{MaxRequestsPerMinute: 3, Location: time.UTC, Now: func() time.Time { return now }}
	g, err := usage.NewGovernor(cfg, NewSettings(conn), nil)
	if err != nil {
		t.Fatalf("governor: %v", err)
	}
	if err := g.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !g.Allow(ctx) {
			t.Fatalf("request %d denied", i)
		}
	}
	g.RecordQuiz(ctx)

	restarted, err := usage.NewGovernor(cfg, NewSettings(conn), nil)
	if err != nil {
		t.Fatalf("governor: %v", err)
	}
	if err := restarted.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if restarted.Allow(ctx) {
		t.Fatalf("expected quota to carry over the restart")
	}
	if snap := restarted.Snapshot(); snap.QuizzesToday != 1 {
		t.Fatalf("expected 1 quiz today, got %d", snap.QuizzesToday)
	}
}
