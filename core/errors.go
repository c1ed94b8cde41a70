package core

import "errors"

var (
	// ErrIncompatibleProtocol is returned when a protocol instance fails the capability check of a binding
	ErrIncompatibleProtocol = errors.New("incompatible routing protocol")
	// ErrUnknownVertex is returned by lookups for vertices that are not known, callers treat it as "no route"
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrComputationAborted marks an in-flight computation discarded because its router was detached
	ErrComputationAborted = errors.New("computation aborted")
	// ErrDisposed is returned when a disposed binding is reused
	ErrDisposed = errors.New("binding disposed")
	// ErrNotAttached is returned by routing operations on a protocol that is not attached to a node
	ErrNotAttached = errors.New("protocol not attached")
)
