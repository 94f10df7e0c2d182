// Package session turns Registry outcomes into client notifications and
// relays chat messages between paired connections.
//
// The Service:
//   - Notifies both sides of a pairing with partner_found
//   - Notifies a requester left waiting with no_partner_available
//   - Relays trimmed, non-empty messages to a named partner, best effort
//   - Purges a disconnected connection from the waiting set without telling its partner
//
// Every pairing issues a match.Session that the Service remembers until either
// side re-requests or disconnects. With Config.RequirePairing set, Relay only
// forwards between the two sides of a live session; otherwise any connection
// may message any other connection whose id it knows.
package session
