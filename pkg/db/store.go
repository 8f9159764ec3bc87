package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
// Sources are identified by (url, title).
func CreateOrGetSource(ctx context.Context, db DBExecutor, src Source) (int64, error) {
	sourceType := strings.TrimSpace(src.SourceType)
	if sourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRowContext(ctx,
			`SELECT id FROM sources WHERE url = ? AND title = ?`,
			src.URL, src.Title,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}

		res, err := db.ExecContext(ctx,
			`INSERT INTO sources (source_type, title, site_name, url, language) VALUES (?, ?, ?, ?, ?)`,
			sourceType, src.Title, src.SiteName, src.URL, src.Language,
		)
		if err != nil {
			// Another writer inserted the same source; retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// GetSource loads one source by id.
func GetSource(ctx context.Context, db DBExecutor, id int64) (Source, error) {
	var s Source
	var added sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT id, source_type, title, site_name, url, language, added_at FROM sources WHERE id = ?`, id,
	).Scan(&s.ID, &s.SourceType, &s.Title, &s.SiteName, &s.URL, &s.Language, &added)
	if err != nil {
		return Source{}, err
	}
	if added.Valid {
		s.AddedAt = added.Time
	}
	return s, nil
}

func getOrCreateSentence(ctx context.Context, db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	if err := db.QueryRowContext(ctx, `SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	// Concurrent-safe via the UNIQUE constraint.
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	if err := db.QueryRowContext(ctx, `SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// RecordSighting records that word was seen on source, creating the sighting
// or bumping its occurrence count. A non-empty sentence or translation
// replaces the stored one.
func RecordSighting(ctx context.Context, db DBExecutor, s Sighting, now time.Time) error {
	if strings.TrimSpace(s.Word) == "" {
		return fmt.Errorf("word must be non-empty")
	}
	if s.SourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if s.OccurrenceCount == 0 {
		s.OccurrenceCount = 1
	}
	if s.OccurrenceCount < 1 {
		return fmt.Errorf("occurrence count must be positive, got %d", s.OccurrenceCount)
	}

	sentenceID, err := getOrCreateSentence(ctx, db, s.Sentence)
	if err != nil {
		return fmt.Errorf("get/create sentence: %w", err)
	}

	ts := formatTime(now)
	_, err = db.ExecContext(ctx, `INSERT INTO word_sightings
	  (language, word, source_id, sentence_id, translation, occurrence_count, first_seen_at, last_seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(language, word, source_id) DO UPDATE SET
	  occurrence_count = word_sightings.occurrence_count + excluded.occurrence_count,
	  sentence_id = COALESCE(excluded.sentence_id, word_sightings.sentence_id),
	  translation = COALESCE(NULLIF(excluded.translation, ''), word_sightings.translation),
	  last_seen_at = excluded.last_seen_at`,
		s.Language, s.Word, s.SourceID, nullableInt64(sentenceID), s.Translation, s.OccurrenceCount, ts, ts)
	if err != nil {
		return fmt.Errorf("upsert sighting %s/%s: %w", s.Language, s.Word, err)
	}
	return nil
}

// GetSightingsBySource returns the words seen on a source, most frequent first.
func GetSightingsBySource(ctx context.Context, db DBExecutor, sourceID int64) ([]Sighting, error) {
	rows, err := db.QueryContext(ctx, `SELECT ws.id, ws.language, ws.word, ws.source_id, s.text, ws.translation,
	  ws.occurrence_count, ws.first_seen_at, ws.last_seen_at
	FROM word_sightings ws LEFT JOIN sentences s ON s.id = ws.sentence_id
	WHERE ws.source_id = ?
	ORDER BY ws.occurrence_count DESC, ws.word`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSightings(rows)
}

// GetSightingsByWord returns every page a word was seen on.
func GetSightingsByWord(ctx context.Context, db DBExecutor, language, word string) ([]Sighting, error) {
	rows, err := db.QueryContext(ctx, `SELECT ws.id, ws.language, ws.word, ws.source_id, s.text, ws.translation,
	  ws.occurrence_count, ws.first_seen_at, ws.last_seen_at
	FROM word_sightings ws LEFT JOIN sentences s ON s.id = ws.sentence_id
	WHERE ws.language = ? AND ws.word = ?
	ORDER BY ws.last_seen_at DESC`, language, word)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSightings(rows)
}

func scanSightings(rows *sql.Rows) ([]Sighting, error) {
	var out []Sighting
	for rows.Next() {
		var s Sighting
		var sentence sql.NullString
		var first, last string
		if err := rows.Scan(&s.ID, &s.Language, &s.Word, &s.SourceID, &sentence, &s.Translation,
			&s.OccurrenceCount, &first, &last); err != nil {
			return nil, err
		}
		if sentence.Valid {
			s.Sentence = sentence.String
		}
		var err error
		if s.FirstSeenAt, err = parseTime(first); err != nil {
			return nil, err
		}
		if s.LastSeenAt, err = parseTime(last); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// Times are stored as RFC3339Nano in UTC; the zero time is stored as NULL.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
