// Package model defines shared data types used across the pairing server.
//
// Conventions:
//   - Connection ids: transport-assigned opaque strings
//   - Event and session ids: uuid.UUID
//   - Timestamps: time.Time in memory, int64 microseconds since Unix epoch in storage
//   - Message content never appears in any type here
package model
