package websocket

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/contentpack/internal/core/protocol"
)

var _ protocol.Conn = (*Connection)(nil)

// Connection is one WebSocket peer.
type Connection struct {
	conn   *websocket.Conn
	config protocol.Config
	inbox  *protocol.Inbox

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newConnection(conn *websocket.Conn, config protocol.Config) *Connection {
	conn.SetReadLimit(int64(config.MaxMessageSize))
	c := &Connection{conn: conn, config: config}
	c.inbox = protocol.NewInbox(config.QueueSize, c.read)
	return c
}

func (c *Connection) read() ([]byte, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.closed.Load() {
				return nil, protocol.ErrConnectionClosed
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, protocol.ErrMessageTooLarge
			}
			return nil, errors.Wrap(err, "failed to read message")
		}
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Send writes e as one text message.
func (c *Connection) Send(ctx context.Context, e protocol.Envelope) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}
	data, err := protocol.Marshal(e)
	if err != nil {
		return err
	}
	if len(data) > c.config.MaxMessageSize {
		return errors.Wrapf(protocol.ErrMessageTooLarge, "%d bytes", len(data))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err = c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

// Receive returns the next envelope.
func (c *Connection) Receive(ctx context.Context) (protocol.Envelope, error) {
	return c.inbox.Receive(ctx)
}

func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close sends a normal close frame and releases the socket.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "connection closed")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.inbox.Close()
	return c.conn.Close()
}
