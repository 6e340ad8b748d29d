// Package quic carries envelopes over a single bidirectional QUIC stream per
// connection, framed with a big-endian uint32 length prefix.
package quic

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

var _ protocol.Transport = (*Transport)(nil)

// Transport serves and dials QUIC connections.
type Transport struct {
	config    protocol.Config
	serverTLS *tls.Config
	clientTLS *tls.Config
	quic      *quic.Config
	logger    log.Log
}

// NewTransport creates a QUIC transport. serverTLS may be nil for dial-only
// use; clientTLS defaults to verifying certificates.
func NewTransport(config protocol.Config, serverTLS, clientTLS *tls.Config, logger log.Log) *Transport {
	if logger == nil {
		logger = log.NewNop()
	}
	if clientTLS == nil {
		clientTLS = ClientTLS(false)
	}
	return &Transport{
		config:    config.Normalize(),
		serverTLS: serverTLS,
		clientTLS: clientTLS,
		quic: &quic.Config{
			MaxIdleTimeout:       30 * time.Second,
			KeepAlivePeriod:      15 * time.Second,
			HandshakeIdleTimeout: 10 * time.Second,
		},
		logger: logger.With(log.String("transport", "quic")),
	}
}

func (t *Transport) Name() string { return "quic" }

// Listen accepts QUIC connections on addr.
func (t *Transport) Listen(ctx context.Context, addr string) (protocol.Listener, error) {
	if t.serverTLS == nil {
		return nil, errors.New("quic listen: no server TLS configuration")
	}
	ln, err := quic.ListenAddr(addr, t.serverTLS, t.quic)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l := &Listener{
		ln:       ln,
		config:   t.config,
		logger:   t.logger,
		incoming: make(chan *Connection, t.config.QueueSize),
		ctx:      lctx,
		cancel:   cancel,
	}
	go l.acceptLoop()
	t.logger.Info("quic listener started", log.String("addr", ln.Addr().String()))
	return l, nil
}

// Dial opens a connection and its envelope stream. An empty frame is sent
// straight away so that the server sees the stream before the first
// envelope.
func (t *Transport) Dial(ctx context.Context, addr string) (protocol.Conn, error) {
	tlsConf := t.clientTLS.Clone()
	if tlsConf.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			tlsConf.ServerName = host
		}
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, t.quic)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, errors.Wrap(err, "open stream")
	}
	c := newConnection(conn, stream, t.config)
	if err = c.writeFrame(nil); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Listener hands out connections whose envelope stream is open.
type Listener struct {
	ln       *quic.Listener
	config   protocol.Config
	logger   log.Log
	incoming chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				l.logger.Warn("quic accept failed", log.Error(err))
			}
			return
		}
		go l.awaitStream(conn)
	}
}

func (l *Listener) awaitStream(conn *quic.Conn) {
	ctx, cancel := context.WithTimeout(l.ctx, 10*time.Second)
	defer cancel()
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		l.logger.Debug("quic peer opened no stream",
			log.String("remote_addr", conn.RemoteAddr().String()), log.Error(err))
		_ = conn.CloseWithError(0, "no stream")
		return
	}
	c := newConnection(conn, stream, l.config)
	select {
	case l.incoming <- c:
	case <-l.ctx.Done():
		_ = c.Close()
	}
}

// Accept waits for the next connection.
func (l *Listener) Accept(ctx context.Context) (protocol.Conn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.ctx.Done():
		return nil, protocol.ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting. Connections already accepted stay open.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.ln.Close()
	})
	return err
}
