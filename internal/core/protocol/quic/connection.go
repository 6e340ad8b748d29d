package quic

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/pkg/generic"
)

const headerSize = 4

var _ protocol.Conn = (*Connection)(nil)

// Connection is one QUIC peer.
type Connection struct {
	conn   *quic.Conn
	stream *quic.Stream
	config protocol.Config
	inbox  *protocol.Inbox

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newConnection(conn *quic.Conn, stream *quic.Stream, config protocol.Config) *Connection {
	c := &Connection{conn: conn, stream: stream, config: config}
	c.inbox = protocol.NewInbox(config.QueueSize, c.readFrame)
	return c
}

func (c *Connection) readFrame() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(c.stream, header[:]); err != nil {
		var appErr *quic.ApplicationError
		if c.closed.Load() || errors.Is(err, io.EOF) || errors.As(err, &appErr) {
			return nil, protocol.ErrConnectionClosed
		}
		return nil, errors.Wrap(err, "failed to read frame header")
	}
	n := binary.BigEndian.Uint32(header[:])
	if int64(n) > int64(c.config.MaxMessageSize) {
		return nil, errors.Wrapf(protocol.ErrMessageTooLarge, "%d bytes", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(c.stream, data); err != nil {
		return nil, errors.Wrap(err, "failed to read frame body")
	}
	return data, nil
}

var frames = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

func (c *Connection) writeFrame(data []byte) error {
	buf := frames.Get()
	defer frames.Put(buf)
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	buf.Write(header[:])
	buf.Write(data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.stream.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if _, err := c.stream.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

// Send writes e as one frame.
func (c *Connection) Send(_ context.Context, e protocol.Envelope) error {
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
	return c.writeFrame(data)
}

// Receive returns the next envelope.
func (c *Connection) Receive(ctx context.Context) (protocol.Envelope, error) {
	return c.inbox.Receive(ctx)
}

func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close ends the stream and the connection.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.inbox.Close()
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "connection closed")
}
