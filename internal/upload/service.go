package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/im7mortal/kmutex"

	"github.com/coursedrop/coursedrop/internal/blob"
	"github.com/coursedrop/coursedrop/internal/catalog"
	"github.com/coursedrop/coursedrop/internal/uploadstore"
)

// Cataloger is the slice of the catalog the upload pipeline needs: checking
// that a target topic exists and persisting the promoted material.
type Cataloger interface {
	TopicExists(id uint) (bool, error)
	CreateMaterial(m *catalog.Material) error
}

// Service runs the chunked upload pipeline: session lifecycle, chunk intake,
// assembly and promotion to permanent storage.
type Service struct {
	store        uploadstore.Store
	blobs        blob.Store
	catalog      Cataloger
	writeTimeout time.Duration
	sessionTTL   time.Duration

	// finalizing serializes finalize per session id, so concurrent finalize
	// calls promote at most once and delete the session exactly once.
	finalizing *kmutex.Kmutex

	now func() time.Time
}

// NewService wires the upload pipeline.
func NewService(store uploadstore.Store, blobs blob.Store, cat Cataloger, writeTimeout, sessionTTL time.Duration) *Service {
	return &Service{
		store:        store,
		blobs:        blobs,
		catalog:      cat,
		writeTimeout: writeTimeout,
		sessionTTL:   sessionTTL,
		finalizing:   kmutex.New(),
		now:          time.Now,
	}
}

// InitRequest carries the client-declared metadata for a new upload session.
type InitRequest struct {
	FileName    string
	ContentType string
	FileSize    int64
	TopicID     uint
	Title       string
}

// Init creates a new upload session and returns its id. The target topic
// must exist; the declared size is advisory and not re-checked at finalize.
func (s *Service) Init(ctx context.Context, req InitRequest) (string, error) {
	if req.FileName == "" {
		return "", fmt.Errorf("%w: fileName is required", ErrInvalidRequest)
	}
	if req.FileSize <= 0 {
		return "", fmt.Errorf("%w: fileSize must be positive", ErrInvalidRequest)
	}
	if req.TopicID == 0 {
		return "", fmt.Errorf("%w: topicId is required", ErrInvalidRequest)
	}

	ok, err := s.catalog.TopicExists(req.TopicID)
	if err != nil {
		return "", fmt.Errorf("failed to check topic %d: %w", req.TopicID, err)
	}
	if !ok {
		return "", fmt.Errorf("topic %d: %w", req.TopicID, ErrTopicNotFound)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	title := req.Title
	if title == "" {
		title = req.FileName
	}

	session := &uploadstore.Session{
		ID:           uuid.New().String(),
		FileName:     req.FileName,
		ContentType:  contentType,
		DeclaredSize: req.FileSize,
		TopicID:      req.TopicID,
		Title:        title,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create upload session: %w", err)
	}
	return session.ID, nil
}

// PutChunk stores one chunk payload. Chunks may arrive in any order,
// concurrently and repeatedly; re-sending an index replaces the earlier
// payload.
func (s *Service) PutChunk(ctx context.Context, sessionID string, index int, payload []byte) error {
	if sessionID == "" {
		return fmt.Errorf("%w: uploadId is required", ErrInvalidRequest)
	}
	if index < 0 {
		return fmt.Errorf("%w: chunkIndex must not be negative", ErrInvalidRequest)
	}
	return s.store.PutChunk(ctx, sessionID, index, payload)
}

// Finalize validates the session's chunk set, assembles the chunks in index
// order, promotes the result to permanent storage and records the material.
// On success the session is gone; on any failure it is left intact so the
// caller can repair and retry. A finalize racing a completed one observes
// ErrSessionNotFound.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*catalog.Material, error) {
	s.finalizing.Lock(sessionID)
	defer s.finalizing.Unlock(sessionID)

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.Chunks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	// The sorted index list must be exactly 0..n-1; the first position that
	// disagrees names the missing index.
	var total int64
	for i, c := range chunks {
		if c.Index != i {
			return nil, &MissingChunkError{Index: i}
		}
		total += c.Size
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	body := newAssembler(writeCtx, s.store, sessionID, chunks)
	blobURL, err := s.blobs.Put(writeCtx, session.FileName, session.ContentType, body, total)
	if err != nil {
		return nil, fmt.Errorf("promotion failed: %w", err)
	}

	material := &catalog.Material{
		TopicID:     session.TopicID,
		Title:       session.Title,
		FileName:    session.FileName,
		ContentType: session.ContentType,
		FileSize:    total,
		BlobURL:     blobURL,
	}
	if err := s.catalog.CreateMaterial(material); err != nil {
		// The blob is written but unreferenced; remove it so a retried
		// finalize does not leak objects. Deletion is best-effort.
		if delErr := s.blobs.Delete(ctx, blobURL); delErr != nil {
			log.Printf("failed to delete orphaned blob %s: %v", blobURL, delErr)
		}
		return nil, fmt.Errorf("failed to record material: %w", err)
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		// The material is persisted; the stale session will be collected by
		// the expiry sweep.
		log.Printf("failed to delete finalized session %s: %v", sessionID, err)
	}
	return material, nil
}

// UploadDirect is the single-shot path: one complete payload, promoted and
// recorded synchronously with no session state.
func (s *Service) UploadDirect(ctx context.Context, topicID uint, title, fileName, contentType string, body io.Reader, size int64) (*catalog.Material, error) {
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidRequest)
	}
	if topicID == 0 {
		return nil, fmt.Errorf("%w: topicId is required", ErrInvalidRequest)
	}
	ok, err := s.catalog.TopicExists(topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %d: %w", topicID, err)
	}
	if !ok {
		return nil, fmt.Errorf("topic %d: %w", topicID, ErrTopicNotFound)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if title == "" {
		title = fileName
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	blobURL, err := s.blobs.Put(writeCtx, fileName, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("promotion failed: %w", err)
	}

	material := &catalog.Material{
		TopicID:     topicID,
		Title:       title,
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    size,
		BlobURL:     blobURL,
	}
	if err := s.catalog.CreateMaterial(material); err != nil {
		if delErr := s.blobs.Delete(ctx, blobURL); delErr != nil {
			log.Printf("failed to delete orphaned blob %s: %v", blobURL, delErr)
		}
		return nil, fmt.Errorf("failed to record material: %w", err)
	}
	return material, nil
}

// SweepExpired removes sessions older than the session TTL and returns how
// many were deleted. Sessions mid-finalize are skipped by taking the same
// per-session lock finalize holds.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := s.now().UTC().Add(-s.sessionTTL)
	removed := 0
	for _, session := range sessions {
		if !session.CreatedAt.Before(cutoff) {
			continue
		}
		s.finalizing.Lock(session.ID)
		// Re-check under the lock: a finalize may have completed meanwhile.
		if _, err := s.store.GetSession(ctx, session.ID); err == nil {
			if err := s.store.DeleteSession(ctx, session.ID); err != nil {
				s.finalizing.Unlock(session.ID)
				return removed, fmt.Errorf("failed to delete expired session %s: %w", session.ID, err)
			}
			removed++
		}
		s.finalizing.Unlock(session.ID)
	}
	return removed, nil
}

// RunSweeper sweeps expired sessions on the given interval until the context
// is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepExpired(ctx)
			if err != nil {
				log.Printf("session sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("session sweep removed %d expired upload sessions", removed)
			}
		}
	}
}
