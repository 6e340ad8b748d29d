package protocol

import (
	"context"
	"net"
	"time"
)

// Conn carries envelopes between two peers. Send and Receive may be called
// from different goroutines; concurrent Sends are serialized.
type Conn interface {
	Send(ctx context.Context, e Envelope) error
	Receive(ctx context.Context) (Envelope, error)
	RemoteAddr() net.Addr
	Close() error
}

// Listener accepts incoming connections.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

// Transport creates listeners and outgoing connections.
type Transport interface {
	Name() string
	Listen(ctx context.Context, addr string) (Listener, error)
	Dial(ctx context.Context, addr string) (Conn, error)
}

// Config holds the limits shared by every transport.
type Config struct {
	MaxMessageSize int           `yaml:"maxMessageSize"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	// QueueSize bounds the frames buffered per connection before the reader
	// blocks.
	QueueSize int `yaml:"queueSize"`
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 1024 * 1024,
		WriteTimeout:   10 * time.Second,
		QueueSize:      64,
	}
}

// Normalize fills zero fields from DefaultConfig.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	return c
}
