package upload

import (
	"errors"
	"fmt"

	"github.com/coursedrop/coursedrop/internal/uploadstore"
)

// Validation and finalize errors surfaced to API callers.
var (
	// ErrInvalidRequest covers missing or malformed init/chunk fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSessionNotFound mirrors the store error: the session id is unknown
	// or the session was already finalized.
	ErrSessionNotFound = uploadstore.ErrSessionNotFound

	// ErrTopicNotFound is returned at init when the target topic does not exist.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrNoChunks is returned by finalize on a session with an empty chunk set.
	ErrNoChunks = errors.New("no chunks uploaded")
)

// MissingChunkError reports the first gap found in a session's chunk index
// set at finalize. The session is preserved, so the caller can upload the
// missing chunk and retry.
type MissingChunkError struct {
	Index int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("missing chunk %d", e.Index)
}
