// Package protocol defines the websocket wire events.
//
// Every frame is a JSON text message of the form
//
//	{"event": "<name>", "data": <payload>}
//
// Client → server: find_partner, send_message.
// Server → client: connected, partner_found, no_partner_available, receive_message.
package protocol
