package main

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/japaniel/vocabloom/pkg/config"
	"github.com/japaniel/vocabloom/pkg/db"
	"github.com/japaniel/vocabloom/pkg/dictionary"
	"github.com/japaniel/vocabloom/pkg/srs"
	"github.com/japaniel/vocabloom/pkg/usage"
)

// app is everything a command needs, built from config and flags.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	conn  *sql.DB
	sched *srs.Scheduler
	gov   *usage.Governor
	gate  *dictionary.Gateway

	language       string
	sourceLanguage string
	sourceForced   bool // --source-lang was given
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.lang != "" {
		cfg.Languages.Target = opts.lang
	}
	if opts.sourceLang != "" {
		cfg.Languages.Source = opts.sourceLang
		cfg.Extractor.Language = opts.sourceLang
	}

	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sched, err := srs.NewScheduler(cfg.SchedulerOptions(), db.NewRecordStore(conn), logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	uc, err := cfg.UsageOptions()
	if err != nil {
		conn.Close()
		return nil, err
	}
	gov, err := usage.NewGovernor(uc, db.NewSettings(conn), logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("usage: %w", err)
	}
	if err := gov.Load(ctx); err != nil {
		logger.WithError(err).Warn("starting with fresh usage counters")
	}

	var provider dictionary.Provider
	if p := cfg.Gateway.Provider; p.Endpoint != "" {
		provider = dictionary.NewHTTPProvider(p.Endpoint, p.APIKey, p.Timeout)
	}
	gate := dictionary.NewGateway(dictionary.Options{
		Custom:          db.NewCustomEntryStore(conn),
		Bundles:         dictionary.NewBundlesDir(cfg.Gateway.DictionaryDir, logger),
		Provider:        provider,
		Limiter:         gov,
		ProviderTimeout: cfg.Gateway.Provider.Timeout,
		CacheSize:       cfg.Gateway.CacheSize,
		Logger:          logger,
	})

	return &app{
		cfg:            cfg,
		log:            logger,
		conn:           conn,
		sched:          sched,
		gov:            gov,
		gate:           gate,
		language:       srs.NormalizeLanguage(cfg.Languages.Target),
		sourceLanguage: srs.NormalizeLanguage(cfg.Languages.Source),
		sourceForced:   opts.sourceLang != "",
	}, nil
}

func (a *app) Close() error {
	return a.conn.Close()
}

// withApp opens the app for the duration of one command.
func withApp(opts *rootOptions, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}
