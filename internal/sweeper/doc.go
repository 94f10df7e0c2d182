// Package sweeper implements the waiting set TTL sweeper.
//
// The Sweeper:
//   - Wakes on a fixed interval
//   - Evicts connections that have waited longer than the TTL
//   - Sends each evicted connection no_partner_available so it can retry
//   - Records an "evicted" pairing event per connection
//   - Is disabled when the TTL is zero
package sweeper
