// Package client is the Go SDK for talking to a content pack server: say
// hello, list entities, open windows, send window messages and receive the
// state the server pushes back.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/protocol/quic"
	"github.com/zeusync/contentpack/internal/core/protocol/websocket"
)

// Config holds configuration for the client
type Config struct {
	ServerAddr string
	// Transport is "websocket" or "quic".
	Transport string
	// InsecureSkipVerify accepts any QUIC server certificate.
	InsecureSkipVerify bool

	Name   string
	Locale string
	Token  string

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Protocol       protocol.Config
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		ServerAddr:     "localhost:8080",
		Transport:      "websocket",
		Name:           "player",
		Locale:         "en-US",
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 10 * time.Second,
		Protocol:       protocol.DefaultConfig(),
	}
}

// StateHandler receives every window state pushed for a key.
type StateHandler func(entity uint64, state json.RawMessage)

// ClosedHandler is told when the server closes a window.
type ClosedHandler func(entity uint64, key string)

// EventHandler defines a function type for handling client events
type EventHandler func(event Event)

// EventType represents different types of client events
type EventType string

const (
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Event represents a client event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Error     error
}

// Client is one session with a server. Handlers run on the client's read
// goroutine and must not block.
type Client struct {
	config   Config
	messages *protocol.Registry
	logger   log.Log

	conn    protocol.Conn
	welcome protocol.Welcome
	seq     atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan protocol.Envelope

	handlerMu     sync.RWMutex
	stateHandlers map[string][]StateHandler
	closeHandlers []ClosedHandler
	eventHandlers map[EventType][]EventHandler

	connected atomic.Bool
	done      chan struct{}
}

// New creates a client. messages must know every window message the caller
// sends.
func New(config Config, messages *protocol.Registry, logger log.Log) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}
	return &Client{
		config:        config,
		messages:      messages,
		logger:        logger.Named("client"),
		pending:       make(map[uint64]chan protocol.Envelope),
		stateHandlers: make(map[string][]StateHandler),
		eventHandlers: make(map[EventType][]EventHandler),
		done:          make(chan struct{}),
	}
}

func (c *Client) transport() (protocol.Transport, error) {
	switch c.config.Transport {
	case "", "websocket":
		return websocket.NewTransport(c.config.Protocol, c.logger), nil
	case "quic":
		return quic.NewTransport(c.config.Protocol, nil, quic.ClientTLS(c.config.InsecureSkipVerify), c.logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownTransport, c.config.Transport)
	}
}

// Connect dials the server and says hello.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected.Load() {
		return ErrAlreadyConnected
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	tr, err := c.transport()
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()
	conn, err := tr.Dial(dialCtx, c.config.ServerAddr)
	if err != nil {
		c.logger.Error("failed to connect", log.String("addr", c.config.ServerAddr), log.Error(err))
		return err
	}
	c.conn = conn
	c.connected.Store(true)
	go c.readLoop()

	reply, err := c.request(dialCtx, protocol.KindHello, 0, "", protocol.Hello{
		Name:   c.config.Name,
		Locale: c.config.Locale,
		Token:  c.config.Token,
	})
	if err != nil {
		_ = c.Disconnect()
		return fmt.Errorf("hello: %w", err)
	}
	if err = reply.DecodePayload(&c.welcome); err != nil {
		_ = c.Disconnect()
		return err
	}
	c.logger.Info("connected",
		log.String("addr", c.config.ServerAddr),
		log.String("session", c.welcome.Session),
		log.Uint64("actor", c.welcome.Actor))
	c.emitEvent(Event{Type: EventTypeConnected, Timestamp: time.Now()})
	return nil
}

// Welcome returns the session and actor the server assigned.
func (c *Client) Welcome() protocol.Welcome { return c.welcome }

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Disconnect closes the connection. The client cannot be reused.
func (c *Client) Disconnect() error {
	if !c.connected.CompareAndSwap(true, false) {
		return ErrNotConnected
	}
	return c.conn.Close()
}

// ListEntities asks for every entity the server describes.
func (c *Client) ListEntities(ctx context.Context) ([]protocol.EntityInfo, error) {
	reply, err := c.request(ctx, protocol.KindList, 0, "", nil)
	if err != nil {
		return nil, err
	}
	var list protocol.Entities
	if err = reply.DecodePayload(&list); err != nil {
		return nil, err
	}
	return list.Entities, nil
}

// Open opens the key window on entity. Its state arrives through OnState.
func (c *Client) Open(ctx context.Context, entity uint64, key string) error {
	_, err := c.request(ctx, protocol.KindUiOpen, entity, key, nil)
	return err
}

// CloseWindow closes the key window on entity.
func (c *Client) CloseWindow(ctx context.Context, entity uint64, key string) error {
	_, err := c.request(ctx, protocol.KindUiClose, entity, key, nil)
	return err
}

// Send delivers msg, a registered window message, to the key window on
// entity and waits for the server to accept it.
func (c *Client) Send(ctx context.Context, entity uint64, key string, msg any) error {
	name, raw, err := c.messages.Encode(msg)
	if err != nil {
		return err
	}
	env := protocol.Envelope{Kind: protocol.KindUiMessage, Entity: entity, Key: key, Type: name, Payload: raw}
	_, err = c.roundTrip(ctx, env)
	return err
}

// Copy asks the server to copy entity. Requires admin rights.
func (c *Client) Copy(ctx context.Context, entity uint64, req protocol.CopyRequest) (uint64, error) {
	reply, err := c.request(ctx, protocol.KindCopy, entity, "", req)
	if err != nil {
		return 0, err
	}
	var copied protocol.Copied
	if err = reply.DecodePayload(&copied); err != nil {
		return 0, err
	}
	return copied.Entity, nil
}

// SetPower switches entity on or off. Requires admin rights.
func (c *Client) SetPower(ctx context.Context, entity uint64, powered bool) error {
	_, err := c.request(ctx, protocol.KindPower, entity, "", protocol.PowerRequest{Powered: powered})
	return err
}

// OnState registers h for states pushed by key windows.
func (c *Client) OnState(key string, h StateHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.stateHandlers[key] = append(c.stateHandlers[key], h)
}

// OnClosed registers h for windows the server closes.
func (c *Client) OnClosed(h ClosedHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.closeHandlers = append(c.closeHandlers, h)
}

// OnEvent registers an event handler for a specific event type
func (c *Client) OnEvent(eventType EventType, h EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], h)
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) request(ctx context.Context, kind protocol.Kind, entity uint64, key string, payload any) (protocol.Envelope, error) {
	env, err := protocol.NewEnvelope(kind, payload)
	if err != nil {
		return protocol.Envelope{}, err
	}
	env.Entity = entity
	env.Key = key
	return c.roundTrip(ctx, env)
}

func (c *Client) roundTrip(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	if !c.connected.Load() {
		return protocol.Envelope{}, ErrNotConnected
	}
	env.Seq = c.seq.Add(1)
	wait := make(chan protocol.Envelope, 1)
	c.pendingMu.Lock()
	c.pending[env.Seq] = wait
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, env.Seq)
		c.pendingMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	if err := c.conn.Send(ctx, env); err != nil {
		return protocol.Envelope{}, err
	}
	select {
	case reply := <-wait:
		if reply.Kind == protocol.KindError {
			var e protocol.Error
			_ = reply.DecodePayload(&e)
			return protocol.Envelope{}, fmt.Errorf("%w: %s", ErrRequestFailed, e.Message)
		}
		return reply, nil
	case <-c.done:
		return protocol.Envelope{}, ErrNotConnected
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return protocol.Envelope{}, ErrRequestTimeout
		}
		return protocol.Envelope{}, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	ctx := context.Background()
	for {
		env, err := c.conn.Receive(ctx)
		if err != nil {
			if c.connected.CompareAndSwap(true, false) {
				_ = c.conn.Close()
			}
			c.logger.Info("disconnected", log.Error(err))
			c.emitEvent(Event{Type: EventTypeDisconnected, Timestamp: time.Now(), Error: err})
			return
		}
		c.handle(ctx, env)
	}
}

func (c *Client) handle(ctx context.Context, env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindPing:
		pong := env
		pong.Kind = protocol.KindPong
		if err := c.conn.Send(ctx, pong); err != nil {
			c.emitEvent(Event{Type: EventTypeError, Timestamp: time.Now(), Error: err})
		}
		return
	case protocol.KindUiState:
		c.handlerMu.RLock()
		handlers := c.stateHandlers[env.Key]
		c.handlerMu.RUnlock()
		for _, h := range handlers {
			h(env.Entity, env.Payload)
		}
		return
	case protocol.KindUiClosed:
		c.handlerMu.RLock()
		handlers := c.closeHandlers
		c.handlerMu.RUnlock()
		for _, h := range handlers {
			h(env.Entity, env.Key)
		}
		return
	}

	if env.Seq == 0 {
		if env.Kind == protocol.KindError {
			var e protocol.Error
			_ = env.DecodePayload(&e)
			c.emitEvent(Event{Type: EventTypeError, Timestamp: time.Now(), Error: fmt.Errorf("%w: %s", ErrRequestFailed, e.Message)})
		}
		return
	}
	c.pendingMu.Lock()
	wait, ok := c.pending[env.Seq]
	c.pendingMu.Unlock()
	if ok {
		wait <- env
	}
}

func (c *Client) emitEvent(event Event) {
	c.handlerMu.RLock()
	handlers := c.eventHandlers[event.Type]
	c.handlerMu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
