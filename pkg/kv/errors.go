package kv

import "errors"

// ErrNotFound is returned when a key or field is not found. Expired keys
// surface as ErrNotFound too; expiry is never a distinct error.
var ErrNotFound = errors.New("not found")

// ErrNotRegistered is returned by the registry when no factory matches the
// requested instance name.
var ErrNotRegistered = errors.New("instance not registered")

// ErrValidationFailed is returned when a freshly constructed instance fails
// command-surface validation. Callers never receive a half-valid instance.
var ErrValidationFailed = errors.New("instance validation failed")

// ErrConnectionRefused is the synthetic failure raised for connection-class
// commands while the fault mode is FaultConnectionFailure.
var ErrConnectionRefused = errors.New("connection refused")

// ErrCommandTimeout is the synthetic failure raised for data commands while
// the fault mode is FaultTimeout.
var ErrCommandTimeout = errors.New("command timed out")

// ErrWrongType is returned when a command is invoked against a key holding
// an incompatible value kind.
var ErrWrongType = errors.New("WRONGTYPE operation against a key holding the wrong kind of value")

// ErrNotInteger is returned by Incr/Decr when the stored string is not a
// base-10 integer.
var ErrNotInteger = errors.New("value is not an integer")
