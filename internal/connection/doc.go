// Package connection implements the websocket transport.
//
// The Connection Manager:
//   - Upgrades HTTP requests to websocket connections and assigns each a unique id
//   - Runs a read loop, a write loop and a ping/pong heartbeat per connection
//   - Publishes connect, frame and disconnect events on one channel, in per-connection order
//   - Delivers outbound frames best effort, dropping them for unknown connections or full queues
//   - Rate limits inbound frames per connection
package connection
