package writer

import (
	"time"

	"github.com/google/uuid"
)

// Config configures the event writer.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flushing
	BufferSize    int           // Input channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// eventRow is the flattened shape written to the events table.
type eventRow struct {
	IngestID    uuid.UUID
	Address     string
	Topics      []string
	Data        string
	BlockNumber int64
	BlockHash   string
	TxHash      string
	LogIndex    int64
	Removed     bool
	ReceivedAt  int64 // µs since epoch
}

// Metrics contains writer counters.
type Metrics struct {
	Enqueued int64
	Written  int64
	Dropped  int64
	Flushes  int64
}
