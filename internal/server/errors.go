package server

import "errors"

var (
	ErrServerClosed     = errors.New("server is closed")
	ErrNoHello          = errors.New("session has not said hello")
	ErrAlreadyWelcomed  = errors.New("session already has an actor")
	ErrAdminDisabled    = errors.New("admin requests are disabled")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnknownKind      = errors.New("unknown envelope kind")
	ErrSlowConsumer     = errors.New("session send queue is full")
	ErrCopyNotPermitted = errors.New("entity cannot be copied")
)
