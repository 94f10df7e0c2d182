package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/protocol"
)

// client holds one websocket session with the server.
type client struct {
	conn   *websocket.Conn
	out    io.Writer
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	id      string
	partner string
	filters match.Filters
	closed  chan struct{}
}

func dial(url string, out io.Writer, logger *slog.Logger) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newClient(conn, out, logger), nil
}

func newClient(conn *websocket.Conn, out io.Writer, logger *slog.Logger) *client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		conn:   conn,
		out:    out,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// FindPartner asks the server for a new partner, leaving any current one.
func (c *client) FindPartner(f match.Filters) error {
	data, err := protocol.EncodeFindPartner(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.partner = ""
	c.filters = f
	c.mu.Unlock()

	return c.write(data)
}

// Next repeats the last search.
func (c *client) Next() error {
	c.mu.Lock()
	f := c.filters
	c.mu.Unlock()
	return c.FindPartner(f)
}

// Send relays text to the current partner.
func (c *client) Send(text string) error {
	partner := c.Partner()
	if partner == "" {
		return errNoPartner
	}

	data, err := protocol.EncodeSendMessage(partner, text)
	if err != nil {
		return err
	}
	return c.write(data)
}

// Partner returns the current partner id, or "" while searching.
func (c *client) Partner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partner
}

// ID returns the id the server assigned to this connection.
func (c *client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Close closes the connection.
func (c *client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Done is closed when the read loop exits.
func (c *client) Done() <-chan struct{} {
	return c.closed
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop prints server events until the connection closes.
func (c *client) readLoop() {
	defer close(c.closed)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(c.out, "\r[disconnected] %v\n", err)
			}
			return
		}
		c.logger.Debug("frame received", "data", string(data))

		ev, err := protocol.DecodeOutbound(data)
		if err != nil {
			c.logger.Warn("failed to decode frame", "error", err)
			continue
		}
		c.handle(ev)
	}
}

func (c *client) handle(ev protocol.Outbound) {
	switch e := ev.(type) {
	case protocol.Connected:
		c.mu.Lock()
		c.id = e.ConnID
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r[connected] you are %s\n", e.ConnID)

	case protocol.PartnerFound:
		c.mu.Lock()
		c.partner = e.PartnerID
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r[matched] say hi to %s\n", e.PartnerID)

	case protocol.NoPartnerAvailable:
		fmt.Fprintf(c.out, "\r[waiting] no partner yet, you will be matched when someone joins\n")

	case protocol.ReceiveMessage:
		fmt.Fprintf(c.out, "\r[%s] %s\n", short(e.SenderID), e.Message)
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
