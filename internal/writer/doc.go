// Package writer persists decoded events to PostgreSQL in batches.
//
// Events are buffered on an input channel and flushed when either the batch
// fills or the flush interval elapses. Inserts are idempotent via
// ON CONFLICT DO NOTHING, so replays after a reconnect do not duplicate rows.
package writer
