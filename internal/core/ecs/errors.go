package ecs

import "errors"

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrUnknownComponent  = errors.New("component type not registered")
	ErrComponentExists   = errors.New("component already attached")
	ErrComponentMissing  = errors.New("component not attached")
	ErrComponentConflict = errors.New("component type already registered")
	ErrUnknownPrototype  = errors.New("unknown entity prototype")
	ErrInvalidPrototype  = errors.New("invalid entity prototype")
	ErrEntityInitialized = errors.New("entity already initialized")
	ErrNoTransform       = errors.New("entity has no transform")
)
