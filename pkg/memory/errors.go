package memory

import "errors"

var (
	// ErrIndexUnavailable indicates the semantic index is not constructed or
	// failed to initialize; searches degrade to the store's lexical path.
	ErrIndexUnavailable = errors.New("semantic index unavailable")

	// ErrStoreClosed indicates the backing store no longer serves reads.
	ErrStoreClosed = errors.New("memory store closed")
)
