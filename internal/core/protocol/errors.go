package protocol

import "errors"

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrListenerClosed   = errors.New("listener is closed")
	ErrMessageTooLarge  = errors.New("message too large")
	ErrInvalidEnvelope  = errors.New("invalid envelope")
	ErrUnknownType      = errors.New("unknown message type")
	ErrTypeConflict     = errors.New("message type already registered")
	ErrUnknownTransport = errors.New("unknown transport")
)
