// Package websocket carries envelopes as WebSocket text messages.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

// Path is where the upgrade endpoint is served.
const Path = "/ws"

var _ protocol.Transport = (*Transport)(nil)

// Transport serves and dials WebSocket connections.
type Transport struct {
	config protocol.Config
	logger log.Log
}

// NewTransport creates a WebSocket transport.
func NewTransport(config protocol.Config, logger log.Log) *Transport {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Transport{
		config: config.Normalize(),
		logger: logger.With(log.String("transport", "websocket")),
	}
}

func (t *Transport) Name() string { return "websocket" }

// Listen serves the upgrade endpoint and a health probe on addr.
func (t *Transport) Listen(_ context.Context, addr string) (protocol.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	l := &Listener{
		ln:       ln,
		config:   t.config,
		logger:   t.logger,
		incoming: make(chan *Connection, t.config.QueueSize),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.handleUpgrade)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("websocket server stopped", log.Error(err))
		}
	}()
	t.logger.Info("websocket listener started", log.String("addr", ln.Addr().String()))
	return l, nil
}

// Dial connects to a server started by Listen.
func (t *Transport) Dial(ctx context.Context, addr string) (protocol.Conn, error) {
	url := "ws://" + addr + Path
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return newConnection(conn, t.config), nil
}

// Listener hands out upgraded connections.
type Listener struct {
	ln       net.Listener
	server   *http.Server
	upgrader websocket.Upgrader
	config   protocol.Config
	logger   log.Log

	incoming chan *Connection
	done     chan struct{}
	closed   atomic.Bool
	once     sync.Once
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if l.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}
	c := newConnection(conn, l.config)
	select {
	case l.incoming <- c:
	case <-l.done:
		_ = c.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *Listener) Accept(ctx context.Context) (protocol.Conn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.done:
		return nil, protocol.ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops serving. Connections already accepted stay open.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = l.server.Shutdown(ctx)
	})
	return err
}
