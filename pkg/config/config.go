// Package config loads vocabloom settings from a YAML file, VOCABLOOM_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/japaniel/vocabloom/pkg/extract"
	"github.com/japaniel/vocabloom/pkg/quiz"
	"github.com/japaniel/vocabloom/pkg/srs"
	"github.com/japaniel/vocabloom/pkg/usage"
)

// Config holds all configuration for the application.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Languages LanguagesConfig `mapstructure:"languages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Usage     UsageConfig     `mapstructure:"usage"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LanguagesConfig names the language pages are read in and the one being learned.
type LanguagesConfig struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
}

type SchedulerConfig struct {
	SuccessThreshold float64 `mapstructure:"success_threshold"`
	InitialEase      float64 `mapstructure:"initial_ease"`
	MinEase          float64 `mapstructure:"min_ease"`
	MaxEase          float64 `mapstructure:"max_ease"`
	MinIntervalDays  int     `mapstructure:"min_interval_days"`
	MaxIntervalDays  int     `mapstructure:"max_interval_days"`
	HistoryLimit     int     `mapstructure:"history_limit"`
}

type GatewayConfig struct {
	CacheSize     int            `mapstructure:"cache_size"`
	DictionaryDir string         `mapstructure:"dictionary_dir"`
	Provider      ProviderConfig `mapstructure:"provider"`
}

// ProviderConfig points at an external translation service. An empty
// endpoint disables it.
type ProviderConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type UsageConfig struct {
	MaxRequestsPerMinute int    `mapstructure:"max_requests_per_minute"`
	MaxQuizzesPerDay     int    `mapstructure:"max_quizzes_per_day"`
	Timezone             string `mapstructure:"timezone"`
}

type QuizConfig struct {
	MaxQuestions       int           `mapstructure:"max_questions"`
	MaxSessionsPerPage int           `mapstructure:"max_sessions_per_page"`
	Distractors        int           `mapstructure:"distractors"`
	NextQuizDelay      time.Duration `mapstructure:"next_quiz_delay"`
}

type ExtractorConfig struct {
	MinTextLength         int      `mapstructure:"min_text_length"`
	MinSentenceLength     int      `mapstructure:"min_sentence_length"`
	MinWordLength         int      `mapstructure:"min_word_length"`
	MinJapaneseWordLength int      `mapstructure:"min_japanese_word_length"`
	MaxCandidates         int      `mapstructure:"max_candidates"`
	Language              string   `mapstructure:"language"` // empty → detect from the page
	DenyPatterns          []string `mapstructure:"deny_patterns"`
}

type IngestConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

// Load reads configuration from path (or vocabloom.yaml in . or ./config
// when path is empty) and from environment variables. A missing default
// file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vocabloom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("VOCABLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.path", "vocabloom.db")

	v.SetDefault("languages.source", "en")
	v.SetDefault("languages.target", "es")

	v.SetDefault("scheduler.success_threshold", 0.6)
	v.SetDefault("scheduler.initial_ease", 2.5)
	v.SetDefault("scheduler.min_ease", 1.3)
	v.SetDefault("scheduler.max_ease", 2.5)
	v.SetDefault("scheduler.min_interval_days", 1)
	v.SetDefault("scheduler.max_interval_days", 365)
	v.SetDefault("scheduler.history_limit", 50)

	v.SetDefault("gateway.cache_size", 1000)
	v.SetDefault("gateway.dictionary_dir", "dictionaries")
	v.SetDefault("gateway.provider.endpoint", "")
	v.SetDefault("gateway.provider.api_key", "")
	v.SetDefault("gateway.provider.timeout", "5s")

	v.SetDefault("usage.max_requests_per_minute", 60)
	v.SetDefault("usage.max_quizzes_per_day", 20)
	v.SetDefault("usage.timezone", "Local")

	v.SetDefault("quiz.max_questions", 5)
	v.SetDefault("quiz.max_sessions_per_page", 3)
	v.SetDefault("quiz.distractors", 3)
	v.SetDefault("quiz.next_quiz_delay", "30s")

	v.SetDefault("extractor.min_text_length", 20)
	v.SetDefault("extractor.min_sentence_length", 10)
	v.SetDefault("extractor.min_word_length", 4)
	v.SetDefault("extractor.min_japanese_word_length", 2)
	v.SetDefault("extractor.max_candidates", 50)
	v.SetDefault("extractor.language", "")
	v.SetDefault("extractor.deny_patterns", []string{})

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.batch_size", 50)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path must be set")
	}
	if strings.TrimSpace(c.Languages.Source) == "" || strings.TrimSpace(c.Languages.Target) == "" {
		return errors.New("config: languages.source and languages.target must be set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Quiz.NextQuizDelay < 0 {
		return fmt.Errorf("config: quiz.next_quiz_delay must not be negative, got %s", c.Quiz.NextQuizDelay)
	}
	return nil
}

// Location resolves usage.timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Usage.Timezone
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: usage.timezone: %w", err)
	}
	return loc, nil
}

// SchedulerOptions maps the scheduler section onto srs.Config.
func (c *Config) SchedulerOptions() srs.Config {
	s := c.Scheduler
	return srs.Config{
		SuccessThreshold: s.SuccessThreshold,
		InitialEase:      s.InitialEase,
		MinEase:          s.MinEase,
		MaxEase:          s.MaxEase,
		MinIntervalDays:  s.MinIntervalDays,
		MaxIntervalDays:  s.MaxIntervalDays,
		HistoryLimit:     s.HistoryLimit,
	}
}

// UsageOptions maps the usage section onto usage.Config.
func (c *Config) UsageOptions() (usage.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return usage.Config{}, err
	}
	return usage.Config{
		MaxRequestsPerMinute: c.Usage.MaxRequestsPerMinute,
		MaxQuizzesPerDay:     c.Usage.MaxQuizzesPerDay,
		Location:             loc,
	}, nil
}

func (c *Config) QuizOptions() quiz.Config {
	return quiz.Config{
		MaxQuestions:       c.Quiz.MaxQuestions,
		MaxSessionsPerPage: c.Quiz.MaxSessionsPerPage,
		Distractors:        c.Quiz.Distractors,
	}
}

// ExtractorOptions maps the extractor section onto extract.Config.
func (c *Config) ExtractorOptions() extract.Config {
	e := c.Extractor
	return extract.Config{
		MinTextLength:         e.MinTextLength,
		MinSentenceLength:     e.MinSentenceLength,
		MinWordLength:         e.MinWordLength,
		MinJapaneseWordLength: e.MinJapaneseWordLength,
		MaxCandidates:         e.MaxCandidates,
		Language:              e.Language,
		DenyPatterns:          e.DenyPatterns,
	}
}
