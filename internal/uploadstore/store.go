package uploadstore

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session id does not reference a live
// upload session. A finalized session is indistinguishable from one that
// never existed.
var ErrSessionNotFound = errors.New("upload session not found")

// ChunkInfo describes one stored chunk without its payload.
type ChunkInfo struct {
	Index int
	Size  int64
}

// Session is the durable record of one in-progress chunked upload.
type Session struct {
	ID           string    `json:"id"`
	FileName     string    `json:"fileName"`
	ContentType  string    `json:"contentType"`
	DeclaredSize int64     `json:"declaredSize"`
	TopicID      uint      `json:"topicId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is the durable keyed store behind the upload pipeline. Sessions and
// chunk payloads must survive a process restart for the production
// implementation; an in-memory implementation is acceptable for tests.
type Store interface {
	// CreateSession durably records a new session with an empty chunk set.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession returns the session for id, or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// PutChunk stores the payload for one chunk index. Re-writing an index
	// replaces the previous payload (last write wins). Returns
	// ErrSessionNotFound if the session does not exist.
	PutChunk(ctx context.Context, sessionID string, index int, payload []byte) error

	// Chunks returns the stored chunks for the session, sorted by index
	// ascending, without payloads.
	Chunks(ctx context.Context, sessionID string) ([]ChunkInfo, error)

	// ChunkPayload returns the payload stored at one index.
	ChunkPayload(ctx context.Context, sessionID string, index int) ([]byte, error)

	// DeleteSession removes the session and every chunk belonging to it in a
	// single atomic step. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns all live sessions, for the expiry sweeper.
	ListSessions(ctx context.Context) ([]*Session, error)

	// Close releases the underlying storage.
	Close() error
}
