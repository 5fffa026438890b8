package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is a decoded contract log event delivered by the listener.
type Event struct {
	IngestID uuid.UUID // Assigned locally when the event is persisted

	Address string   // Emitting contract address (0x-prefixed hex)
	Topics  []string // Indexed topics; topic 0 is the event signature hash
	Data    string   // ABI-encoded non-indexed fields (0x-prefixed hex)

	BlockNumber uint64
	BlockHash   string
	TxHash      string
	LogIndex    uint64

	// Removed is true when the log was reverted by a chain reorganization.
	Removed bool

	ReceivedAt time.Time // Local timestamp when the notification arrived
}

// Signature returns the event signature topic, or "" for anonymous events.
func (e *Event) Signature() string {
	if len(e.Topics) == 0 {
		return ""
	}
	return e.Topics[0]
}
