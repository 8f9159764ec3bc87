package srs

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ReviewEntry is one graded review kept in a record's history.
type ReviewEntry struct {
	ReviewedAt   time.Time `json:"reviewed_at"`
	Performance  float64   `json:"performance"`
	Success      bool      `json:"success"`
	IntervalDays int       `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
}

// WordRecord holds the scheduling state of one word in one language.
type WordRecord struct {
	Word           string        `json:"word"`
	Language       string        `json:"language"`
	EaseFactor     float64       `json:"ease_factor"`
	IntervalDays   int           `json:"interval_days"`
	ReviewCount    int           `json:"review_count"`
	Streak         int           `json:"streak"` // consecutive successful reviews
	LastReviewedAt time.Time     `json:"last_reviewed_at"`
	NextReviewAt   time.Time     `json:"next_review_at"`
	History        []ReviewEntry `json:"history"`
}

// Reviewed reports whether the record has been graded at least once.
func (r WordRecord) Reviewed() bool { return r.ReviewCount > 0 }

// Due reports whether the word should be reviewed at now.
// Never-reviewed records are always due.
func (r WordRecord) Due(now time.Time) bool {
	return !r.Reviewed() || !r.NextReviewAt.After(now)
}

// SuccessRatio is the share of successful reviews in the kept history.
// A record without history reports 1.
func (r WordRecord) SuccessRatio() float64 {
	if len(r.History) == 0 {
		return 1
	}
	ok := 0
	for _, h := range r.History {
		if h.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(r.History))
}

// OverdueDays is how many days past NextReviewAt the record is at now.
func (r WordRecord) OverdueDays(now time.Time) float64 {
	if !r.Reviewed() || now.Before(r.NextReviewAt) {
		return 0
	}
	return now.Sub(r.NextReviewAt).Hours() / 24
}

func (r WordRecord) clone() WordRecord {
	out := r
	if r.History != nil {
		out.History = make([]ReviewEntry, len(r.History))
		copy(out.History, r.History)
	}
	return out
}

// NormalizeWord trims and lower-cases a word token.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// NormalizeLanguage reduces a language tag to its base code ("es-MX" → "es").
// Unparseable input is returned lower-cased and trimmed.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
