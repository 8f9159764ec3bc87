// Package srs implements an SM-2 style spaced-repetition scheduler for
// vocabulary words.
//
// Basic usage:
//
//	s, err := srs.NewScheduler(srs.Config{}, srs.NewMemoryStore(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := s.ProcessReview(ctx, "casa", "es", 1.0)
package srs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const secondInterval = 6

// Scheduler computes review intervals and keeps WordRecords in a Store.
// It is safe for concurrent use; reviews of the same word are serialized.
type Scheduler struct {
	cfg   Config
	store Store
	log   logrus.FieldLogger
	locks *keyLocks
	rngMu sync.Mutex
}

// NewScheduler creates a Scheduler from the given config.
// Zero-value fields are filled with defaults; invalid values return an error.
func NewScheduler(cfg Config, store Store, log logrus.FieldLogger) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Scheduler{cfg: cfg, store: store, log: log, locks: newKeyLocks()}, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// FromRawScore maps a 0–5 quality score onto the normalized [0, 1] scale.
func FromRawScore(q float64) float64 {
	return clampPerformance(q / 5)
}

// ProcessReview grades one review of word in language and persists the
// updated record. Out-of-range performance is clamped; unknown words get a
// fresh record.
func (s *Scheduler) ProcessReview(ctx context.Context, word, language string, performance float64) (WordRecord, error) {
	word, language = NormalizeWord(word), NormalizeLanguage(language)
	if word == "" {
		return WordRecord{}, ErrEmptyWord
	}

	unlock := s.locks.lock(recordKey{language, word})
	defer unlock()

	rec, err := s.store.Get(ctx, language, word)
	if errors.Is(err, ErrNotFound) {
		rec = s.newRecord(word, language)
	} else if err != nil {
		return WordRecord{}, fmt.Errorf("load record %s/%s: %w", language, word, err)
	}

	rec = s.Apply(rec, performance, s.cfg.Now())
	if err := s.store.Put(ctx, rec); err != nil {
		return WordRecord{}, fmt.Errorf("save record %s/%s: %w", language, word, err)
	}

	s.log.WithFields(logrus.Fields{
		"word":          word,
		"language":      language,
		"performance":   rec.History[len(rec.History)-1].Performance,
		"interval_days": rec.IntervalDays,
		"ease":          rec.EaseFactor,
	}).Debug("review processed")
	return rec, nil
}

// Apply returns rec after a review with the given performance at now.
// The input record is not mutated and nothing is persisted.
func (s *Scheduler) Apply(rec WordRecord, performance float64, now time.Time) WordRecord {
	c := rec.clone()
	if c.EaseFactor == 0 {
		c.EaseFactor = s.cfg.InitialEase
	}
	p := clampPerformance(performance)
	success := p >= s.cfg.SuccessThreshold
	prior := c.IntervalDays

	delta := clamp((p-0.5)*s.cfg.EaseSensitivity, -s.cfg.MaxEaseDelta, s.cfg.MaxEaseDelta)
	c.EaseFactor = clamp(c.EaseFactor+delta, s.cfg.MinEase, s.cfg.MaxEase)

	var interval int
	switch {
	case success:
		c.Streak++
		switch c.Streak {
		case 1:
			interval = s.cfg.MinIntervalDays
		case 2:
			interval = secondInterval
		default:
			interval = int(math.Round(float64(prior) * c.EaseFactor))
		}
		if interval < prior {
			interval = prior
		}
	case p < s.cfg.PoorThreshold:
		c.Streak = 0
		interval = s.cfg.MinIntervalDays
	default:
		// Near miss keeps part of the interval; a young streak restarts.
		if c.Streak < 2 {
			c.Streak = 0
		}
		interval = int(math.Round(float64(prior) * s.cfg.PartialResetFactor))
	}
	if interval < s.cfg.MinIntervalDays {
		interval = s.cfg.MinIntervalDays
	}
	if interval > s.cfg.MaxIntervalDays {
		interval = s.cfg.MaxIntervalDays
	}

	c.IntervalDays = interval
	c.ReviewCount++
	c.LastReviewedAt = now
	c.NextReviewAt = now.Add(time.Duration(interval) * 24 * time.Hour)

	c.History = append(c.History, ReviewEntry{
		ReviewedAt:   now,
		Performance:  p,
		Success:      success,
		IntervalDays: interval,
		EaseFactor:   c.EaseFactor,
	})
	if extra := len(c.History) - s.cfg.HistoryLimit; extra > 0 {
		c.History = append([]ReviewEntry(nil), c.History[extra:]...)
	}
	return c
}

// Record returns the stored record for word, or ErrNotFound.
func (s *Scheduler) Record(ctx context.Context, word, language string) (WordRecord, error) {
	word, language = NormalizeWord(word), NormalizeLanguage(language)
	if word == "" {
		return WordRecord{}, ErrEmptyWord
	}
	return s.store.Get(ctx, language, word)
}

// Track makes sure a record exists for word, creating a never-reviewed one
// when missing. It reports whether a record was created.
func (s *Scheduler) Track(ctx context.Context, word, language string) (WordRecord, bool, error) {
	word, language = NormalizeWord(word), NormalizeLanguage(language)
	if word == "" {
		return WordRecord{}, false, ErrEmptyWord
	}

	unlock := s.locks.lock(recordKey{language, word})
	defer unlock()

	rec, err := s.store.Get(ctx, language, word)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return WordRecord{}, false, fmt.Errorf("load record %s/%s: %w", language, word, err)
	}
	rec = s.newRecord(word, language)
	if err := s.store.Put(ctx, rec); err != nil {
		return WordRecord{}, false, fmt.Errorf("save record %s/%s: %w", language, word, err)
	}
	return rec, true, nil
}

// Reset deletes the record for word.
func (s *Scheduler) Reset(ctx context.Context, word, language string) error {
	word, language = NormalizeWord(word), NormalizeLanguage(language)
	if word == "" {
		return ErrEmptyWord
	}
	unlock := s.locks.lock(recordKey{language, word})
	defer unlock()
	return s.store.Delete(ctx, language, word)
}

// DueWords lists records due at now, most overdue first. Records that were
// never reviewed come after every reviewed due record. limit ≤ 0 returns all.
func (s *Scheduler) DueWords(ctx context.Context, language string, limit int) ([]WordRecord, error) {
	records, err := s.store.List(ctx, NormalizeLanguage(language))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	now := s.cfg.Now()
	due := make([]WordRecord, 0, len(records))
	for _, rec := range records {
		if rec.Due(now) {
			due = append(due, rec)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.Reviewed() != b.Reviewed() {
			return a.Reviewed()
		}
		fa, fb := overdueFactor(a, now), overdueFactor(b, now)
		if fa != fb {
			return fa > fb
		}
		return a.Word < b.Word
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Stats summarizes the records of one language.
type Stats struct {
	Total    int `json:"total"`
	Due      int `json:"due"`
	New      int `json:"new"`
	Learning int `json:"learning"`
	Mature   int `json:"mature"`
}

// matureInterval is the interval from which a word counts as learned.
const matureInterval = 21

// Stats counts records by learning stage.
func (s *Scheduler) Stats(ctx context.Context, language string) (Stats, error) {
	records, err := s.store.List(ctx, NormalizeLanguage(language))
	if err != nil {
		return Stats{}, fmt.Errorf("list records: %w", err)
	}
	now := s.cfg.Now()
	var st Stats
	for _, rec := range records {
		st.Total++
		if rec.Due(now) {
			st.Due++
		}
		switch {
		case !rec.Reviewed():
			st.New++
		case rec.IntervalDays >= matureInterval:
			st.Mature++
		default:
			st.Learning++
		}
	}
	return st, nil
}

func (s *Scheduler) newRecord(word, language string) WordRecord {
	return WordRecord{
		Word:       word,
		Language:   language,
		EaseFactor: s.cfg.InitialEase,
		History:    []ReviewEntry{},
	}
}

func (s *Scheduler) jitter() float64 {
	if s.cfg.Jitter == 0 {
		return 0
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.cfg.Rand.Float64() * s.cfg.Jitter
}

func overdueFactor(rec WordRecord, now time.Time) float64 {
	interval := rec.IntervalDays
	if interval < 1 {
		interval = 1
	}
	return rec.OverdueDays(now) / float64(interval)
}

func clampPerformance(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return clamp(p, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
