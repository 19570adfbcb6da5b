package storage

import (
	"context"
	"errors"
)

// Backend stores named JSON documents. The bot owns exactly two: the
// credentials document and the symbols document, both rewritten whole on
// every mutation (last writer wins; cross-process writers unsupported).
type Backend interface {
	// Initialize sets up the storage backend
	Initialize(ctx context.Context) error

	// Close closes the storage backend
	Close() error

	// Health checks if the storage backend is healthy
	Health(ctx context.Context) error

	// GetDocument returns the raw bytes of a document, or *ErrNotFound.
	GetDocument(ctx context.Context, name string) ([]byte, error)

	// SetDocument replaces a document wholesale.
	SetDocument(ctx context.Context, name string, data []byte) error

	// DeleteDocument removes a document; deleting a missing document is not
	// an error.
	DeleteDocument(ctx context.Context, name string) error
}

// ErrNotFound is returned when a document is not found
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "document not found: " + e.Key
}

// IsNotFound reports whether err is a missing-document error.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
