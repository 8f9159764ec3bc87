// Package ingest records where candidate words were seen and warms the
// dictionary cache for them.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/japaniel/vocabloom/pkg/db"
	"github.com/japaniel/vocabloom/pkg/dictionary"
	"github.com/japaniel/vocabloom/pkg/extract"
	"github.com/japaniel/vocabloom/pkg/srs"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Translator resolves a word; *dictionary.Gateway satisfies it.
type Translator interface {
	GetWordData(ctx context.Context, word, language, sourceLanguage string) dictionary.Entry
}

// Tracker registers words for review; *srs.Scheduler satisfies it.
type Tracker interface {
	Track(ctx context.Context, word, language string) (srs.WordRecord, bool, error)
}

// Ingester saves a page and its candidate words.
type Ingester struct {
	DB        *sql.DB
	Dict      Translator // nil skips prefetching
	Sched     Tracker    // nil skips tracking
	BatchSize int
	Workers   int
	Log       logrus.FieldLogger
	Now       func() time.Time

	// OnProgress is called with the number of candidates written so far.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// Report summarizes one Ingest call.
type Report struct {
	SourceID   int64 `json:"source_id"`
	Sightings  int   `json:"sightings"`
	Words      int   `json:"words"`
	NewWords   int   `json:"new_words"`
	Translated int   `json:"translated"`
}

// NewIngester creates an Ingester with default batching and concurrency.
func NewIngester(conn *sql.DB, dict Translator, sched Tracker, log logrus.FieldLogger) *Ingester {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Ingester{
		DB:        conn,
		Dict:      dict,
		Sched:     sched,
		BatchSize: 50,
		Workers:   4,
		Log:       log,
		Now:       time.Now,
	}
}

// prefetched is one candidate after its translation lookup.
type prefetched struct {
	Index       int
	Word        string
	Sentence    string
	Translation string
}

// Ingest saves doc as a source, then for every candidate fills in a missing
// Translation, records the sighting and tracks the word in language. The
// translation lookups run on a worker pool; sightings are written in
// batches in candidate order.
func (ig *Ingester) Ingest(ctx context.Context, doc *extract.Document, candidates []extract.Candidate, language, sourceLanguage string) (Report, error) {
	if doc == nil {
		return Report{}, errors.New("ingest: nil document")
	}
	language = srs.NormalizeLanguage(language)
	sourceLanguage = srs.NormalizeLanguage(sourceLanguage)
	now := ig.now()

	sourceID, err := db.CreateOrGetSource(ctx, ig.DB, db.Source{
		SourceType: "web",
		Title:      doc.Title,
		SiteName:   doc.SiteName,
		URL:        doc.URL,
		Language:   sourceLanguage,
		AddedAt:    now,
	})
	if err != nil {
		return Report{}, fmt.Errorf("save source: %w", err)
	}
	rep := Report{SourceID: sourceID}
	total := len(candidates)
	if total == 0 {
		return rep, nil
	}

	workers := ig.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan prefetched, workers*2)

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)
	bw.Log = ig.Log

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- ig.consume(ctx, cancel, resultCh, bw, &rep, sourceID, language, now, total)
	}()

	var submitErr error
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		idx := i
		job := func(ctx context.Context) error {
			res := ig.prefetch(ctx, idx, &candidates[idx], language, sourceLanguage)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrPoolClosed) {
				break
			}
			submitErr = fmt.Errorf("submit lookup: %w", err)
			cancel()
			break
		}
	}

	// No worker sends after Close returns.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh
	closeErr := bw.Close()

	switch {
	case submitErr != nil:
		return rep, submitErr
	case consumerErr != nil:
		return rep, consumerErr
	case closeErr != nil:
		return rep, fmt.Errorf("write sightings: %w", closeErr)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	ig.Log.WithFields(logrus.Fields{
		"source":    sourceID,
		"sightings": rep.Sightings,
		"words":     rep.Words,
		"new_words": rep.NewWords,
	}).Info("page ingested")
	return rep, nil
}

// prefetch runs on a worker. Each job owns one candidate, so writing the
// translation back does not race.
func (ig *Ingester) prefetch(ctx context.Context, index int, cand *extract.Candidate, language, sourceLanguage string) prefetched {
	res := prefetched{Index: index, Word: srs.NormalizeWord(cand.Word), Sentence: cand.Sentence, Translation: cand.Translation}
	if res.Translation != "" || ig.Dict == nil || res.Word == "" {
		return res
	}
	// A fallback entry only echoes the word back.
	if entry := ig.Dict.GetWordData(ctx, res.Word, language, sourceLanguage); entry.Source != dictionary.SourceFallback {
		cand.Translation = entry.Primary()
		res.Translation = cand.Translation
	}
	return res
}

// consume writes results in candidate order and returns when resultCh is
// closed, or early on the first write error.
func (ig *Ingester) consume(ctx context.Context, cancel context.CancelFunc, resultCh <-chan prefetched, bw *BatchWriter, rep *Report, sourceID int64, language string, now time.Time, total int) error {
	buffer := make(map[int]prefetched)
	seen := make(map[string]bool)
	next := 0

	for res := range resultCh {
		buffer[res.Index] = res
		for {
			item, ok := buffer[next]
			if !ok {
				break
			}
			delete(buffer, next)
			next++
			if item.Word == "" {
				continue
			}
			if err := ig.write(ctx, bw, item, rep, seen, sourceID, language, now); err != nil {
				cancel()
				for range resultCh {
				}
				return err
			}
			if ig.OnProgress != nil {
				ig.OnProgress(next, total)
			}
		}
	}
	return nil
}

func (ig *Ingester) write(ctx context.Context, bw *BatchWriter, item prefetched, rep *Report, seen map[string]bool, sourceID int64, language string, now time.Time) error {
	sighting := db.Sighting{
		Language:    language,
		Word:        item.Word,
		SourceID:    sourceID,
		Sentence:    item.Sentence,
		Translation: item.Translation,
	}
	if err := bw.RecordSighting(sighting, now); err != nil {
		return fmt.Errorf("queue sighting %s: %w", item.Word, err)
	}
	rep.Sightings++
	if item.Translation != "" {
		rep.Translated++
	}

	if seen[item.Word] {
		return nil
	}
	seen[item.Word] = true
	rep.Words++
	if ig.Sched == nil {
		return nil
	}
	_, created, err := ig.Sched.Track(ctx, item.Word, language)
	if err != nil {
		return fmt.Errorf("track %s: %w", item.Word, err)
	}
	if created {
		rep.NewWords++
	}
	return nil
}

func (ig *Ingester) now() time.Time {
	if ig.Now != nil {
		return ig.Now()
	}
	return time.Now()
}
