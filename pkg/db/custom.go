package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/japaniel/vocabloom/pkg/dictionary"
)

// CustomEntryStore is a dictionary.CustomStore backed by the custom_entries table.
type CustomEntryStore struct {
	db  DBExecutor
	now func() time.Time
}

var _ dictionary.CustomStore = (*CustomEntryStore)(nil)

func NewCustomEntryStore(db DBExecutor) *CustomEntryStore {
	return &CustomEntryStore{db: db, now: time.Now}
}

func (s *CustomEntryStore) Lookup(ctx context.Context, language, word string) (dictionary.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT word, translations, part_of_speech, difficulty, examples
	FROM custom_entries WHERE language = ? AND word = ?`, language, word)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dictionary.Entry{}, dictionary.ErrNotFound
	}
	if err != nil {
		return dictionary.Entry{}, fmt.Errorf("lookup custom entry %s/%s: %w", language, word, err)
	}
	return e, nil
}

func (s *CustomEntryStore) List(ctx context.Context, language string) ([]dictionary.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word, translations, part_of_speech, difficulty, examples
	FROM custom_entries WHERE language = ? ORDER BY word`, language)
	if err != nil {
		return nil, fmt.Errorf("list custom entries: %w", err)
	}
	defer rows.Close()
	var out []dictionary.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CustomEntryStore) Put(ctx context.Context, language string, e dictionary.Entry) error {
	translations, err := json.Marshal(nonNil(e.Translations))
	if err != nil {
		return err
	}
	examples, err := json.Marshal(nonNil(e.Examples))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO custom_entries
	  (language, word, translations, part_of_speech, difficulty, examples, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(language, word) DO UPDATE SET
	  translations = excluded.translations,
	  part_of_speech = excluded.part_of_speech,
	  difficulty = excluded.difficulty,
	  examples = excluded.examples,
	  updated_at = excluded.updated_at`,
		language, e.Word, string(translations), e.PartOfSpeech, e.Difficulty, string(examples), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("put custom entry %s/%s: %w", language, e.Word, err)
	}
	return nil
}

func (s *CustomEntryStore) Delete(ctx context.Context, language, word string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_entries WHERE language = ? AND word = ?`, language, word)
	if err != nil {
		return fmt.Errorf("delete custom entry %s/%s: %w", language, word, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return dictionary.ErrNotFound
	}
	return nil
}

func scanEntry(row scanner) (dictionary.Entry, error) {
	var e dictionary.Entry
	var translations, examples string
	if err := row.Scan(&e.Word, &translations, &e.PartOfSpeech, &e.Difficulty, &examples); err != nil {
		return dictionary.Entry{}, err
	}
	if err := json.Unmarshal([]byte(translations), &e.Translations); err != nil {
		return dictionary.Entry{}, fmt.Errorf("decode translations: %w", err)
	}
	if err := json.Unmarshal([]byte(examples), &e.Examples); err != nil {
		return dictionary.Entry{}, fmt.Errorf("decode examples: %w", err)
	}
	e.Source = dictionary.SourceCustom
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
