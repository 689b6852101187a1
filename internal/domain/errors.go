package domain

import "errors"

var (
	// ErrNotFound is returned when the requested metric is not registered.
	ErrNotFound = errors.New("not found")
	// ErrInvalidType indicates an unsupported metric type was supplied.
	ErrInvalidType = errors.New("invalid metric type")
	// ErrInvalidValue means the backend cannot represent the supplied value.
	ErrInvalidValue = errors.New("invalid measurement value")
	// ErrConnection means the backend cannot reach its underlying store.
	ErrConnection = errors.New("storage connection error")
	// ErrBackendUnavailable means a single read or write failed against a connected store.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)
