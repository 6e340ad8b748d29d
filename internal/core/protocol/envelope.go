// Package protocol defines the wire format spoken between the server and its
// clients, and the transports that carry it.
//
// Every frame is one JSON Envelope. The Kind selects how Payload is read;
// bound UI traffic additionally names the target entity, the window key and,
// for messages, the registered message type.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates envelopes.
type Kind string

const (
	KindHello    Kind = "hello"
	KindWelcome  Kind = "welcome"
	KindList     Kind = "list"
	KindEntities Kind = "entities"

	KindUiOpen    Kind = "ui.open"
	KindUiClose   Kind = "ui.close"
	KindUiMessage Kind = "ui.message"
	KindUiState   Kind = "ui.state"
	KindUiClosed  Kind = "ui.closed"

	KindPing Kind = "ping"
	KindPong Kind = "pong"

	KindCopy   Kind = "admin.copy"
	KindCopied Kind = "admin.copied"
	KindPower  Kind = "admin.power"

	KindOK    Kind = "ok"
	KindError Kind = "error"
)

// Envelope is one frame on the wire.
type Envelope struct {
	Kind Kind `json:"kind"`
	// Seq correlates a request with its reply. Server pushes carry zero.
	Seq     uint64          `json:"seq,omitempty"`
	Entity  uint64          `json:"entity,omitempty"`
	Key     string          `json:"key,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope encodes payload, which may be nil, into an envelope of kind.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	e := Envelope{Kind: kind}
	if payload == nil {
		return e, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	e.Payload = raw
	return e, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidEnvelope, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidEnvelope, e.Kind, err)
	}
	return nil
}

// Reply returns an envelope of kind answering e.
func (e Envelope) Reply(kind Kind, payload any) (Envelope, error) {
	r, err := NewEnvelope(kind, payload)
	if err != nil {
		return Envelope{}, err
	}
	r.Seq = e.Seq
	return r, nil
}

// Marshal encodes e into one frame.
func Marshal(e Envelope) ([]byte, error) {
	if e.Kind == "" {
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidEnvelope)
	}
	return json.Marshal(e)
}

// Unmarshal decodes one frame.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if e.Kind == "" {
		return Envelope{}, fmt.Errorf("%w: missing kind", ErrInvalidEnvelope)
	}
	return e, nil
}

// Hello opens a session.
type Hello struct {
	Name   string `json:"name"`
	Locale string `json:"locale,omitempty"`
	// Token unlocks admin requests when the server requires one.
	Token string `json:"token,omitempty"`
}

// Welcome answers Hello with the session and the actor spawned for it.
type Welcome struct {
	Session string `json:"session"`
	Actor   uint64 `json:"actor"`
}

// EntityInfo describes one entity in an entity listing.
type EntityInfo struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Prototype string     `json:"prototype,omitempty"`
	Map       uint32     `json:"map"`
	Position  [2]float64 `json:"position"`
	Anchored  bool       `json:"anchored"`
	// Interfaces lists the window keys the entity exposes.
	Interfaces []string          `json:"interfaces,omitempty"`
	Appearance map[string]string `json:"appearance,omitempty"`
}

// Entities lists entities.
type Entities struct {
	Entities []EntityInfo `json:"entities"`
}

// Ping carries the sender's clock; Pong echoes it back.
type Ping struct {
	SentUnixNano int64 `json:"sent"`
}

// CopyRequest asks for a copy of the envelope's entity.
type CopyRequest struct {
	Map        uint32     `json:"map"`
	Position   [2]float64 `json:"position"`
	Rotation   float64    `json:"rotation,omitempty"`
	Nullspace  bool       `json:"nullspace,omitempty"`
	Initialize *bool      `json:"initialize,omitempty"`
}

// Copied names the entity a copy produced.
type Copied struct {
	Entity uint64 `json:"entity"`
}

// PowerRequest switches the envelope's entity on or off.
type PowerRequest struct {
	Powered bool `json:"powered"`
}

// Error reports a failed request.
type Error struct {
	Message string `json:"message"`
}
