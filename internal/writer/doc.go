// Package writer implements the pairing journal batch writer.
//
// The JournalWriter:
//   - Drains pairing events from the router's journal buffer
//   - Accumulates rows and flushes by batch size or interval
//   - Inserts with pgx.Batch and ON CONFLICT (event_id) DO NOTHING
//   - Never stores chat message content
//
// Writes are append-only. Timestamps are stored as microseconds since Unix epoch.
package writer
