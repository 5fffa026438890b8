// Package listener implements the self-healing log subscription client.
//
// The Listener:
//   - Dials the node's WebSocket endpoint and subscribes to contract logs
//   - Probes liveness with an application-level round trip and forces a
//     reconnect when the probe deadline passes unanswered
//   - Reconnects with exponential backoff (doubling, capped), resetting the
//     delay on every successful open
//   - Correlates request/response pairs by fixed integer ids and drops
//     everything it cannot match
//   - Treats an HTTP-level rejection before the upgrade as fatal and stops
package listener
