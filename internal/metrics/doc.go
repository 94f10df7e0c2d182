// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Pairing requests by outcome and current waiting set size
//   - Relayed and dropped messages
//   - Live websocket connections, disconnects and inbound frame drops
//   - TTL evictions from the waiting set
package metrics
