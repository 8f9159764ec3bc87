package srs

import (
	"fmt"
	"math/rand"
	"time"
)

// Config configures a Scheduler.
// Zero values produce sensible defaults; see field comments.
type Config struct {
	SuccessThreshold   float64 `json:"success_threshold"`    // zero → 0.6
	PoorThreshold      float64 `json:"poor_threshold"`       // zero → 0.3; below it a failure is a full reset
	PartialResetFactor float64 `json:"partial_reset_factor"` // zero → 0.5
	InitialEase        float64 `json:"initial_ease"`         // zero → 2.5
	MinEase            float64 `json:"min_ease"`             // zero → 1.3
	MaxEase            float64 `json:"max_ease"`             // zero → 2.5
	EaseSensitivity    float64 `json:"ease_sensitivity"`     // zero → 0.3
	MaxEaseDelta       float64 `json:"max_ease_delta"`       // zero → 0.15
	MinIntervalDays    int     `json:"min_interval_days"`    // zero → 1
	MaxIntervalDays    int     `json:"max_interval_days"`    // zero → 365
	HistoryLimit       int     `json:"history_limit"`        // zero → 50
	Jitter             float64 `json:"jitter"`               // zero → 50; negative → none

	Now  func() time.Time `json:"-"` // nil → time.Now
	Rand *rand.Rand       `json:"-"` // nil → time-seeded
}

func (c Config) withDefaults() (Config, error) {
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 0.6
	}
	if c.PoorThreshold == 0 {
		c.PoorThreshold = 0.3
	}
	if c.PartialResetFactor == 0 {
		c.PartialResetFactor = 0.5
	}
	if c.InitialEase == 0 {
		c.InitialEase = 2.5
	}
	if c.MinEase == 0 {
		c.MinEase = 1.3
	}
	if c.MaxEase == 0 {
		c.MaxEase = 2.5
	}
	if c.EaseSensitivity == 0 {
		c.EaseSensitivity = 0.3
	}
	if c.MaxEaseDelta == 0 {
		c.MaxEaseDelta = 0.15
	}
	if c.MinIntervalDays == 0 {
		c.MinIntervalDays = 1
	}
	if c.MaxIntervalDays == 0 {
		c.MaxIntervalDays = 365
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
	if c.Jitter == 0 {
		c.Jitter = 50
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	switch {
	case c.SuccessThreshold <= 0 || c.SuccessThreshold > 1:
		return c, fmt.Errorf("%w: success threshold %f out of range (0, 1]", ErrInvalidConfig, c.SuccessThreshold)
	case c.PoorThreshold < 0 || c.PoorThreshold > c.SuccessThreshold:
		return c, fmt.Errorf("%w: poor threshold %f must be within [0, %f]", ErrInvalidConfig, c.PoorThreshold, c.SuccessThreshold)
	case c.PartialResetFactor <= 0 || c.PartialResetFactor >= 1:
		return c, fmt.Errorf("%w: partial reset factor %f out of range (0, 1)", ErrInvalidConfig, c.PartialResetFactor)
	case c.MinEase < 1 || c.MaxEase < c.MinEase:
		return c, fmt.Errorf("%w: ease bounds [%f, %f]", ErrInvalidConfig, c.MinEase, c.MaxEase)
	case c.InitialEase < c.MinEase || c.InitialEase > c.MaxEase:
		return c, fmt.Errorf("%w: initial ease %f outside [%f, %f]", ErrInvalidConfig, c.InitialEase, c.MinEase, c.MaxEase)
	case c.MinIntervalDays < 1 || c.MaxIntervalDays < c.MinIntervalDays || c.MaxIntervalDays > 36500:
		return c, fmt.Errorf("%w: interval bounds [%d, %d]", ErrInvalidConfig, c.MinIntervalDays, c.MaxIntervalDays)
	case c.Jitter >= tierGap:
		return c, fmt.Errorf("%w: jitter %f must stay below %f", ErrInvalidConfig, c.Jitter, tierGap)
	case c.HistoryLimit < 1:
		return c, fmt.Errorf("%w: history limit %d must be positive", ErrInvalidConfig, c.HistoryLimit)
	}
	return c, nil
}
