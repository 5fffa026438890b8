// Package model defines the domain types shared across packages.
//
// Conventions:
//   - Hex fields keep their 0x prefix as received from the node
//   - IDs: uuid.UUID for locally assigned ingest IDs
//   - Timestamps: time.Time for local clocks, uint64 for chain quantities
package model
