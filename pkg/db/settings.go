package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/japaniel/vocabloom/pkg/usage"
)

// ErrSettingNotFound is returned by Settings.Get for unknown keys.
var ErrSettingNotFound = errors.New("db: setting not found")

// usageKey is the settings key usage counters are stored under.
const usageKey = "usage"

// Settings is a JSON key/value namespace in the settings table.
// It also serves as the usage.CounterStore.
type Settings struct {
	db  DBExecutor
	now func() time.Time
}

var _ usage.CounterStore = (*Settings)(nil)

func NewSettings(db DBExecutor) *Settings {
	return &Settings{db: db, now: time.Now}
}

// Get decodes the value stored under key into dest.
func (s *Settings) Get(ctx context.Context, key string, dest any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSettingNotFound
	}
	if err != nil {
		return fmt.Errorf("get setting %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode setting %q: %w", key, err)
	}
	return nil
}

// Set stores value as JSON under key, replacing any previous value.
func (s *Settings) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Settings) LoadCounters(ctx context.Context) (usage.Counters, error) {
	var c usage.Counters
	err := s.Get(ctx, usageKey, &c)
	if errors.Is(err, ErrSettingNotFound) {
		return usage.Counters{}, usage.ErrNoCounters
	}
	return c, err
}

func (s *Settings) SaveCounters(ctx context.Context, c usage.Counters) error {
	return s.Set(ctx, usageKey, c)
}
