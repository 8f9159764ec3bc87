package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/japaniel/vocabloom/pkg/srs"
)

// RecordStore is an srs.Store backed by the word_records table.
type RecordStore struct {
	db DBExecutor
}

var _ srs.Store = (*RecordStore)(nil)

// NewRecordStore returns a RecordStore using db, which may be a *sql.Tx.
func NewRecordStore(db DBExecutor) *RecordStore {
	return &RecordStore{db: db}
}

const recordColumns = `language, word, ease_factor, interval_days, review_count, streak,
	last_reviewed_at, next_review_at, history`

func (s *RecordStore) Get(ctx context.Context, language, word string) (srs.WordRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM word_records WHERE language = ? AND word = ?`, language, word)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return srs.WordRecord{}, srs.ErrNotFound
	}
	if err != nil {
		return srs.WordRecord{}, fmt.Errorf("get record %s/%s: %w", language, word, err)
	}
	return rec, nil
}

func (s *RecordStore) Put(ctx context.Context, rec srs.WordRecord) error {
	history := rec.History
	if history == nil {
		history = []srs.ReviewEntry{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO word_records (`+recordColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(language, word) DO UPDATE SET
	  ease_factor = excluded.ease_factor,
	  interval_days = excluded.interval_days,
	  review_count = excluded.review_count,
	  streak = excluded.streak,
	  last_reviewed_at = excluded.last_reviewed_at,
	  next_review_at = excluded.next_review_at,
	  history = excluded.history`,
		rec.Language, rec.Word, rec.EaseFactor, rec.IntervalDays, rec.ReviewCount, rec.Streak,
		nullableTime(rec.LastReviewedAt), nullableTime(rec.NextReviewAt), string(hist))
	if err != nil {
		return fmt.Errorf("put record %s/%s: %w", rec.Language, rec.Word, err)
	}
	return nil
}

func (s *RecordStore) List(ctx context.Context, language string) ([]srs.WordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM word_records`
	var args []any
	if language != "" {
		query += ` WHERE language = ?`
		args = append(args, language)
	}
	query += ` ORDER BY language, word`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []srs.WordRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordStore) Delete(ctx context.Context, language, word string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM word_records WHERE language = ? AND word = ?`, language, word)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", language, word, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return srs.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (srs.WordRecord, error) {
	var rec srs.WordRecord
	var last, next sql.NullString
	var hist string
	if err := row.Scan(&rec.Language, &rec.Word, &rec.EaseFactor, &rec.IntervalDays, &rec.ReviewCount,
		&rec.Streak, &last, &next, &hist); err != nil {
		return srs.WordRecord{}, err
	}
	var err error
	if rec.LastReviewedAt, err = parseTime(last.String); err != nil {
		return srs.WordRecord{}, err
	}
	if rec.NextReviewAt, err = parseTime(next.String); err != nil {
		return srs.WordRecord{}, err
	}
	if err := json.Unmarshal([]byte(hist), &rec.History); err != nil {
		return srs.WordRecord{}, fmt.Errorf("decode history: %w", err)
	}
	if rec.History == nil {
		rec.History = []srs.ReviewEntry{}
	}
	return rec, nil
}
