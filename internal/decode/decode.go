package decode

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mina-zahir/CryptIT/internal/model"
)

// rawLog mirrors the log object carried in an eth_subscription notification.
type rawLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	BlockHash   string   `json:"blockHash"`
	TxHash      string   `json:"transactionHash"`
	LogIndex    string   `json:"logIndex"`
	Removed     bool     `json:"removed"`
}

// Log decodes a raw subscription payload into a model.Event.
// It returns nil when the payload is not a recognizable log object,
// matching the listener's decode contract. ReceivedAt is left zero;
// the listener stamps it with the wire arrival time.
func Log(payload json.RawMessage) *model.Event {
	var raw rawLog
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil
	}
	if raw.Address == "" {
		return nil
	}

	blockNumber, err := ParseQuantity(raw.BlockNumber)
	if err != nil {
		return nil
	}

	// logIndex may legitimately be absent on pending logs
	logIndex, _ := ParseQuantity(raw.LogIndex)

	return &model.Event{
		Address:     strings.ToLower(raw.Address),
		Topics:      raw.Topics,
		Data:        raw.Data,
		BlockNumber: blockNumber,
		BlockHash:   raw.BlockHash,
		TxHash:      raw.TxHash,
		LogIndex:    logIndex,
		Removed:     raw.Removed,
	}
}

// ParseQuantity parses a 0x-prefixed hex quantity (e.g. "0x1b4").
func ParseQuantity(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseUint(s, 16, 64)
}
