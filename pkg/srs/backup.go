package srs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const snapshotVersion = 1

// Snapshot is the portable form of every stored WordRecord.
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	Records    []WordRecord `json:"records"`
}

// Export writes all records (every language) as a JSON snapshot to w.
func (s *Scheduler) Export(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}
	snap := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: s.cfg.Now().UTC(),
		Records:    records,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(records), nil
}

// Import reads a snapshot written by Export and upserts every record.
// Records already stored under the same key are overwritten. Intervals and
// ease are clamped to the configured bounds and NextReviewAt is recomputed
// from LastReviewedAt, so an edited snapshot cannot break the schedule.
func (s *Scheduler) Import(ctx context.Context, r io.Reader) (int, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, snap.Version)
	}

	for i, rec := range snap.Records {
		rec, err := s.sanitizeImported(rec)
		if err != nil {
			return i, fmt.Errorf("%w: record %d: %v", ErrBadSnapshot, i, err)
		}
		if err := s.putRecord(ctx, rec); err != nil {
			return i, fmt.Errorf("save record %s/%s: %w", rec.Language, rec.Word, err)
		}
	}
	return len(snap.Records), nil
}

func (s *Scheduler) sanitizeImported(rec WordRecord) (WordRecord, error) {
	rec.Word, rec.Language = NormalizeWord(rec.Word), NormalizeLanguage(rec.Language)
	if rec.Word == "" || rec.Language == "" {
		return rec, fmt.Errorf("no word or language")
	}
	if rec.ReviewCount < 0 || rec.Streak < 0 {
		return rec, fmt.Errorf("%s: negative review count or streak", rec.Word)
	}
	if rec.EaseFactor == 0 {
		rec.EaseFactor = s.cfg.InitialEase
	}
	rec.EaseFactor = clamp(rec.EaseFactor, s.cfg.MinEase, s.cfg.MaxEase)
	if rec.History == nil {
		rec.History = []ReviewEntry{}
	}
	if !rec.Reviewed() {
		return rec, nil
	}
	if rec.LastReviewedAt.IsZero() {
		return rec, fmt.Errorf("%s: reviewed but no last review time", rec.Word)
	}
	rec.IntervalDays = max(s.cfg.MinIntervalDays, min(rec.IntervalDays, s.cfg.MaxIntervalDays))
	rec.NextReviewAt = rec.LastReviewedAt.Add(time.Duration(rec.IntervalDays) * 24 * time.Hour)
	return rec, nil
}

func (s *Scheduler) putRecord(ctx context.Context, rec WordRecord) error {
	unlock := s.locks.lock(recordKey{rec.Language, rec.Word})
	defer unlock()
	return s.store.Put(ctx, rec)
}
