// Package database provides the PostgreSQL connection pool and schema for the
// pairing journal.
//
// The journal is optional. When enabled, a single pool backs the journal
// writer and the pairing_events table is created at startup if missing.
package database
