// Package usage caps outbound lookups per time window and tracks daily
// activity: quizzes taken today and the learner's streak.
package usage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoCounters is returned by a CounterStore that has nothing persisted yet.
var ErrNoCounters = errors.New("usage: no counters stored")

const dayLayout = "2006-01-02"

// Config configures a Governor. Zero values produce defaults.
type Config struct {
	MaxRequestsPerMinute int            // zero → 60
	Window               time.Duration  // zero → 1m
	MaxQuizzesPerDay     int            // zero → 20; negative → unlimited
	FreezeEvery          int            // zero → 7 streak days earn one freeze
	MaxFreezes           int            // zero → 2
	Location             *time.Location // nil → time.Local; defines calendar days
	Now                  func() time.Time
}

// StreakInfo describes consecutive active days.
type StreakInfo struct {
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActiveDate   string `json:"last_active_date"`
	FreezesAvailable int    `json:"freezes_available"`
}

// Counters is the persisted governor state.
type Counters struct {
	RequestsThisWindow int        `json:"requests_this_window"`
	WindowResetAt      time.Time  `json:"window_reset_at"`
	QuizzesToday       int        `json:"quizzes_today"`
	Day                string     `json:"day"`
	Streak             StreakInfo `json:"streak"`
}

// CounterStore persists Counters between process restarts.
type CounterStore interface {
	LoadCounters(ctx context.Context) (Counters, error)
	SaveCounters(ctx context.Context, c Counters) error
}

// Governor is safe for concurrent use. Every operation first rolls expired
// windows and days, then compares against the quota, all under one lock.
type Governor struct {
	mu    sync.Mutex
	cfg   Config
	store CounterStore
	log   logrus.FieldLogger
	c     Counters
}

// NewGovernor builds a Governor. store may be nil for an in-memory governor.
func NewGovernor(cfg Config, store CounterStore, log logrus.FieldLogger) (*Governor, error) {
	if cfg.MaxRequestsPerMinute == 0 {
		cfg.MaxRequestsPerMinute = 60
	}
	if cfg.MaxRequestsPerMinute < 0 {
		return nil, fmt.Errorf("usage: max requests per minute %d must be positive", cfg.MaxRequestsPerMinute)
	}
	if cfg.Window == 0 {
		cfg.Window = time.Minute
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("usage: window %s must be positive", cfg.Window)
	}
	if cfg.MaxQuizzesPerDay == 0 {
		cfg.MaxQuizzesPerDay = 20
	}
	if cfg.FreezeEvery <= 0 {
		cfg.FreezeEvery = 7
	}
	if cfg.MaxFreezes <= 0 {
		cfg.MaxFreezes = 2
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Governor{cfg: cfg, store: store, log: log}, nil
}

// Load restores persisted counters. A store with nothing saved is not an error.
func (g *Governor) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	c, err := g.store.LoadCounters(ctx)
	if errors.Is(err, ErrNoCounters) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load usage counters: %w", err)
	}
	g.mu.Lock()
	g.c = c
	g.mu.Unlock()
	return nil
}

// Allow reports whether one more external request fits into the current
// window and, if so, counts it.
func (g *Governor) Allow(ctx context.Context) bool {
	g.mu.Lock()
	g.rollLocked(g.cfg.Now())
	if g.c.RequestsThisWindow >= g.cfg.MaxRequestsPerMinute {
		resetAt := g.c.WindowResetAt
		g.mu.Unlock()
		g.log.WithField("reset_at", resetAt).Debug("request rate limited")
		return false
	}
	g.c.RequestsThisWindow++
	g.persistLocked(ctx)
	g.mu.Unlock()
	return true
}

// Requests returns the number of requests counted in the current window.
func (g *Governor) Requests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked(g.cfg.Now())
	return g.c.RequestsThisWindow
}

// CanStartQuiz reports whether the daily quiz quota still has room.
func (g *Governor) CanStartQuiz() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked(g.cfg.Now())
	return g.cfg.MaxQuizzesPerDay < 0 || g.c.QuizzesToday < g.cfg.MaxQuizzesPerDay
}

// RecordQuiz counts a completed quiz and marks today as active.
func (g *Governor) RecordQuiz(ctx context.Context) {
	g.mu.Lock()
	now := g.cfg.Now()
	g.rollLocked(now)
	g.c.QuizzesToday++
	g.touchStreakLocked(now)
	g.persistLocked(ctx)
	g.mu.Unlock()
}

// RecordActivity marks today as active and returns the updated streak.
func (g *Governor) RecordActivity(ctx context.Context) StreakInfo {
	g.mu.Lock()
	now := g.cfg.Now()
	g.rollLocked(now)
	g.touchStreakLocked(now)
	g.persistLocked(ctx)
	streak := g.c.Streak
	g.mu.Unlock()
	return streak
}

// Snapshot returns a copy of the current counters.
func (g *Governor) Snapshot() Counters {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked(g.cfg.Now())
	return g.c
}

// rollLocked resets the request window and the daily counter when their
// boundaries have passed. Windows are aligned to multiples of cfg.Window.
func (g *Governor) rollLocked(now time.Time) {
	if !now.Before(g.c.WindowResetAt) {
		g.c.RequestsThisWindow = 0
		g.c.WindowResetAt = now.Truncate(g.cfg.Window).Add(g.cfg.Window)
	}
	today := now.In(g.cfg.Location).Format(dayLayout)
	if g.c.Day != today {
		g.c.Day = today
		g.c.QuizzesToday = 0
	}
}

func (g *Governor) touchStreakLocked(now time.Time) {
	s := &g.c.Streak
	today := now.In(g.cfg.Location).Format(dayLayout)
	if s.LastActiveDate == today {
		return
	}

	switch gap := g.daysBetween(s.LastActiveDate, today); {
	case s.LastActiveDate == "" || gap < 1:
		s.CurrentStreak = 1
	case gap == 1:
		s.CurrentStreak++
	case gap == 2 && s.FreezesAvailable > 0:
		s.FreezesAvailable--
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}

	s.LastActiveDate = today
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	if s.CurrentStreak%g.cfg.FreezeEvery == 0 && s.FreezesAvailable < g.cfg.MaxFreezes {
		s.FreezesAvailable++
	}
}

func (g *Governor) daysBetween(from, to string) int {
	a, err := time.ParseInLocation(dayLayout, from, g.cfg.Location)
	if err != nil {
		return 0
	}
	b, err := time.ParseInLocation(dayLayout, to, g.cfg.Location)
	if err != nil {
		return 0
	}
	// Round absorbs DST shifts between local midnights.
	return int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
}

// persistLocked saves under the lock so snapshots reach the store in order.
func (g *Governor) persistLocked(ctx context.Context) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveCounters(ctx, g.c); err != nil {
		g.log.WithError(err).Warn("failed to persist usage counters")
	}
}
