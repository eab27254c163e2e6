package market

import (
	"context"
	"sync"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/interfaces"
	"market-simulator/src/logger"
	"market-simulator/src/models"
	"market-simulator/src/utils"
)

const (
	journalQueueSize     = 1024
	journalFlushInterval = 5 * time.Second
	journalRetries       = 3
)

// Journal batches tick records off the tick path and writes them to the
// database from a single worker goroutine.
type Journal struct {
	DB     interfaces.IDatabase
	Logger *logger.Logger

	errHandler      *helpers.ErrorHandler
	queue           chan models.MTickRecord
	batchSize       int
	flushInterval   time.Duration
	cleanupInterval time.Duration

	mu      sync.Mutex
	dropped int
	wg      sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewJournal(db interfaces.IDatabase, log *logger.Logger) *Journal {
	if log == nil {
		log = logger.NewLogger(nil, "Journal")
	}
	return &Journal{
		DB:              db,
		Logger:          log,
		errHandler:      helpers.NewErrorHandler(log),
		queue:           make(chan models.MTickRecord, journalQueueSize),
		batchSize:       utils.DefaultJournalBatch,
		flushInterval:   journalFlushInterval,
		cleanupInterval: utils.DefaultCleanupInterval,
	}
}

// -----------------------------------------------------------------------------

// Record enqueues rec without blocking. When the queue is full the record is
// dropped and counted.
func (j *Journal) Record(rec models.MTickRecord) {
	select {
	case j.queue <- rec:
	default:
		j.mu.Lock()
		j.dropped++
		n := j.dropped
		j.mu.Unlock()
		if n == 1 || n%100 == 0 {
			j.Logger.Warning("Journal queue full, %d records dropped so far", n)
		}
	}
}

// Dropped returns how many records never reached the database, either lost to
// a full queue or to failed writes.
func (j *Journal) Dropped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// -----------------------------------------------------------------------------

// Start runs the writer until ctx is cancelled. Wait blocks until the final
// flush is done.
func (j *Journal) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.run(ctx)
}

func (j *Journal) Wait() {
	j.wg.Wait()
}

// -----------------------------------------------------------------------------

func (j *Journal) run(ctx context.Context) {
	defer j.wg.Done()

	flushTicker := time.NewTicker(j.flushInterval)
	defer flushTicker.Stop()
	cleanupTicker := time.NewTicker(j.cleanupInterval)
	defer cleanupTicker.Stop()

	batch := make([]models.MTickRecord, 0, j.batchSize)
	flush := func() {
		j.write(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// drain what is already queued
			for {
				select {
				case rec := <-j.queue:
					batch = append(batch, rec)
				default:
					flush()
					j.Logger.Info("Journal stopped")
					return
				}
			}

		case rec := <-j.queue:
			batch = append(batch, rec)
			if len(batch) >= j.batchSize {
				flush()
			}

		case <-flushTicker.C:
			flush()

		case <-cleanupTicker.C:
			j.rearm()
			flush()
			j.errHandler.Handle(j.DB.CleanupOldData(), "journal cleanup")
		}
	}
}

// -----------------------------------------------------------------------------

// write stores one batch. Once the error handler has seen too many failed
// batches the journal stops touching the database and drops batches until
// rearm is called from the next cleanup tick.
func (j *Journal) write(batch []models.MTickRecord) {
	if len(batch) == 0 {
		return
	}
	if j.errHandler.TooManyErrors() {
		j.lose(len(batch))
		return
	}

	err := j.errHandler.ExecuteWithRetry("save ticks", func() error {
		return j.DB.SaveTicks(batch)
	}, journalRetries)
	if err == nil {
		return
	}

	j.Logger.Error("Dropping %d ticks: %v", len(batch), err)
	j.lose(len(batch))
	if j.errHandler.TooManyErrors() {
		j.Logger.Error("Journal suspended after %d failed batches, retrying at the next cleanup", j.errHandler.ErrorCount)
	}
}

// rearm lifts a suspension so the next batch tries the database again.
func (j *Journal) rearm() {
	if j.errHandler.TooManyErrors() {
		j.errHandler.ResetErrorCount()
		j.Logger.Info("Journal resumed")
	}
}

func (j *Journal) lose(n int) {
	j.mu.Lock()
	j.dropped += n
	j.mu.Unlock()
}
