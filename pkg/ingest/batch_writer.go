package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/japaniel/vocabloom/pkg/db"
)

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = errors.New("ingest: batch writer closed")

// WriteFunc performs database writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// queuedBatches is how many full batches may wait for the committer
// before Submit blocks.
const queuedBatches = 2

// BatchWriter groups sighting writes into transactions. Each batch commits
// or rolls back as a whole; a failed batch does not stop later ones.
type BatchWriter struct {
	conn *sql.DB
	size int

	mu      sync.Mutex
	pending []WriteFunc
	closed  bool

	queue  chan []WriteFunc
	abort  chan struct{}
	aborts sync.Once
	ticker *time.Ticker
	wg     sync.WaitGroup

	// OnError is called for every failed or dropped batch.
	OnError func(error)
	Log     logrus.FieldLogger

	statsMu   sync.Mutex
	firstErr  error
	committed int
}

// NewBatchWriter starts a writer that commits every size writes and, when
// interval > 0, whatever is pending on each tick. A nil conn runs writes
// with a nil transaction.
func NewBatchWriter(conn *sql.DB, size int, interval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	bw := &BatchWriter{
		conn:    conn,
		size:    size,
		pending: make([]WriteFunc, 0, size),
		queue:   make(chan []WriteFunc, queuedBatches),
		abort:   make(chan struct{}),
		Log:     l,
	}

	bw.wg.Add(1)
	go bw.commitLoop()
	if interval > 0 {
		bw.ticker = time.NewTicker(interval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// RecordSighting queues one sighting upsert.
func (bw *BatchWriter) RecordSighting(s db.Sighting, now time.Time) error {
	return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return db.RecordSighting(ctx, tx, s, now)
	})
}

// Submit queues a write. It blocks while the committer is queuedBatches
// batches behind.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, w)
	if len(bw.pending) >= bw.size {
		bw.enqueueLocked()
	}
	return nil
}

// Abort stops accepting queued batches: anything that cannot be handed to
// the committer from now on is dropped and reported.
func (bw *BatchWriter) Abort() {
	bw.aborts.Do(func() { close(bw.abort) })
}

// Err returns the first failed or dropped batch error.
func (bw *BatchWriter) Err() error {
	bw.statsMu.Lock()
	defer bw.statsMu.Unlock()
	return bw.firstErr
}

// Batches returns how many batches were committed.
func (bw *BatchWriter) Batches() int {
	bw.statsMu.Lock()
	defer bw.statsMu.Unlock()
	return bw.committed
}

// Close commits what is pending, waits for the committer and returns Err.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.enqueueLocked()
	bw.mu.Unlock()

	bw.Abort()
	close(bw.queue)
	bw.wg.Wait()
	return bw.Err()
}

func (bw *BatchWriter) enqueueLocked() {
	if len(bw.pending) == 0 {
		return
	}
	batch := bw.pending
	bw.pending = make([]WriteFunc, 0, bw.size)

	select {
	case bw.queue <- batch:
	case <-bw.abort:
		bw.report(fmt.Errorf("batch writer: dropping batch of %d writes after abort", len(batch)))
	}
}

func (bw *BatchWriter) report(err error) {
	bw.statsMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.statsMu.Unlock()
	bw.Log.WithError(err).Warn("sighting batch failed")
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.queue {
		if err := bw.commit(batch); err != nil {
			bw.report(err)
			continue
		}
		bw.statsMu.Lock()
		bw.committed++
		bw.statsMu.Unlock()
	}
}

// commit runs batch in one transaction. Queued batches still commit while
// the writer is closing, so the transaction is not tied to abort.
func (bw *BatchWriter) commit(batch []WriteFunc) error {
	ctx := context.Background()
	if bw.conn == nil {
		for _, w := range batch {
			if err := w(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := bw.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sighting batch: %w", err)
	}
	for i, w := range batch {
		if err := w(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				bw.Log.WithError(rbErr).Warn("rollback failed")
			}
			return fmt.Errorf("sighting batch write %d of %d: %w", i+1, len(batch), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sighting batch (%d writes): %w", len(batch), err)
	}
	bw.Log.WithField("writes", len(batch)).Debug("sighting batch committed")
	return nil
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.abort:
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.enqueueLocked()
			bw.mu.Unlock()
		}
	}
}
