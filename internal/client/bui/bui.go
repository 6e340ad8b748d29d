// Package bui holds what every client-side window shares: the entity and key
// it is bound to and the way intents reach the server.
package bui

import (
	"context"
	"errors"

	"github.com/zeusync/contentpack/internal/core/ui"
)

var ErrDetached = errors.New("window is not attached to a server")

// Sender delivers window messages to the server. The SDK client is one.
type Sender interface {
	Send(ctx context.Context, entity uint64, key string, msg any) error
}

// Base binds a window to one entity and key.
type Base struct {
	Entity uint64
	Key    ui.Key
	sender Sender
}

func NewBase(entity uint64, key ui.Key, sender Sender) Base {
	return Base{Entity: entity, Key: key, sender: sender}
}

// SendMessage sends msg to the bound window on the server.
func (b *Base) SendMessage(ctx context.Context, msg any) error {
	if b.sender == nil {
		return ErrDetached
	}
	return b.sender.Send(ctx, b.Entity, string(b.Key), msg)
}

// Recorder is a Sender that keeps every message. Used by tests and offline
// previews.
type Recorder struct {
	Sent []any
}

func (r *Recorder) Send(_ context.Context, _ uint64, _ string, msg any) error {
	r.Sent = append(r.Sent, msg)
	return nil
}

// Last returns the most recent message, or nil.
func (r *Recorder) Last() any {
	if len(r.Sent) == 0 {
		return nil
	}
	return r.Sent[len(r.Sent)-1]
}
