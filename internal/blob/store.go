package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned when the storage backend is missing its write
// configuration (no bucket). This is a deployment fault, not a transient
// error, and callers must not retry.
var ErrNotConfigured = errors.New("object storage not configured")

// WriteError wraps a transient backend failure. The upload session that
// triggered the write is preserved, so finalize may be retried.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "object storage write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store is permanent object storage for promoted course materials.
type Store interface {
	// Put writes body under a key derived from fileName and returns a stable
	// public URL for the stored object.
	Put(ctx context.Context, fileName, contentType string, body io.Reader, size int64) (string, error)

	// Delete removes the object behind a public URL previously returned by
	// Put. Callers treat failures as best-effort.
	Delete(ctx context.Context, publicURL string) error

	// PresignPut returns a URL a client can PUT the object to directly,
	// along with the public URL the object will have once written.
	PresignPut(ctx context.Context, fileName, contentType string, ttl time.Duration) (uploadURL, publicURL string, err error)
}
