// Package match implements the Matchmaking Registry.
//
// The Registry:
//   - Holds every connection currently waiting for a partner, with its filters
//   - Keeps at most one entry per connection (re-requests replace the entry)
//   - Pairs a requester with a uniformly random compatible waiting peer
//   - Removes both sides of a pairing under the same lock that found them
//
// Filters are country, state and interest. The empty string is the "any"
// wildcard and is compatible with every value.
package match
