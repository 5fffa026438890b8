package writer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mina-zahir/CryptIT/internal/model"
)

const insertEventSQL = `
	INSERT INTO events (
		ingest_id, address, topics, data,
		block_number, block_hash, tx_hash, log_index,
		removed, received_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT DO NOTHING`

// EventWriter consumes decoded events and writes them to the events table
// in batches.
type EventWriter struct {
	cfg    Config
	logger *slog.Logger

	db    *pgxpool.Pool
	input chan *model.Event

	// Batching
	batch   []eventRow
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	enqueued atomic.Int64
	written  atomic.Int64
	dropped  atomic.Int64
	flushes  atomic.Int64
}

// NewEventWriter creates a new EventWriter.
func NewEventWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *EventWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan *model.Event, cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *EventWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("event writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop flushes the remaining batch and shuts down.
func (w *EventWriter) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("writer shutdown timeout")
	}

	w.flush()
	w.logger.Info("event writer stopped", "written", w.written.Load())
	return nil
}

// Enqueue hands one event to the writer. Nil events (decode misses) are
// not persisted. The call never blocks; a full buffer drops the event.
func (w *EventWriter) Enqueue(ev *model.Event) {
	if ev == nil {
		return
	}
	w.enqueued.Add(1)
	select {
	case w.input <- ev:
	default:
		w.dropped.Add(1)
		w.logger.Warn("writer buffer full, dropping event", "tx_hash", ev.TxHash)
	}
}

// Metrics returns current counters.
func (w *EventWriter) Metrics() Metrics {
	return Metrics{
		Enqueued: w.enqueued.Load(),
		Written:  w.written.Load(),
		Dropped:  w.dropped.Load(),
		Flushes:  w.flushes.Load(),
	}
}

func (w *EventWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev := <-w.input:
			w.handleEvent(ev)
		}
	}
}

func (w *EventWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent adds an event to the batch, flushing when the batch is full.
func (w *EventWriter) handleEvent(ev *model.Event) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	full := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if full {
		w.flush()
	}
}

// transform flattens a model.Event into an insert row and assigns its
// ingest id.
func (w *EventWriter) transform(ev *model.Event) eventRow {
	id := ev.IngestID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return eventRow{
		IngestID:    id,
		Address:     ev.Address,
		Topics:      ev.Topics,
		Data:        ev.Data,
		BlockNumber: int64(ev.BlockNumber),
		BlockHash:   ev.BlockHash,
		TxHash:      ev.TxHash,
		LogIndex:    int64(ev.LogIndex),
		Removed:     ev.Removed,
		ReceivedAt:  ev.ReceivedAt.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *EventWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	rows := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		w.dropped.Add(int64(len(rows)))
		w.logger.Warn("no database configured, dropping batch", "rows", len(rows))
		return
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertEventSQL,
			r.IngestID, r.Address, r.Topics, r.Data,
			r.BlockNumber, r.BlockHash, r.TxHash, r.LogIndex,
			r.Removed, r.ReceivedAt,
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	br := w.db.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			w.logger.Error("batch insert failed", "error", err, "rows", len(rows))
			return
		}
	}

	w.written.Add(int64(len(rows)))
	w.flushes.Add(1)
	w.logger.Debug("flushed events", "rows", len(rows))
}
