package uploadstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket = []byte("sessions")
	chunksBucket   = []byte("chunks")
)

// BoltStore is the production Store backed by a bbolt database file. Session
// rows live in the sessions bucket as JSON; chunk payloads live in the chunks
// bucket keyed by "<sessionID>/<index>" with the index encoded as 8 big-endian
// bytes, so a prefix scan yields chunks in index order.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sessionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func chunkKey(sessionID string, index int) []byte {
	key := make([]byte, 0, len(sessionID)+1+8)
	key = append(key, sessionID...)
	key = append(key, '/')
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	return append(key, idx[:]...)
}

func chunkPrefix(sessionID string) []byte {
	return append([]byte(sessionID), '/')
}

// CreateSession durably records a new session with an empty chunk set.
func (bs *BoltStore) CreateSession(_ context.Context, s *Session) error {
	return bs.db.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return tx.Bucket(sessionsBucket).Put([]byte(s.ID), encoded)
	})
}

// GetSession returns the session for id, or ErrSessionNotFound.
func (bs *BoltStore) GetSession(_ context.Context, id string) (*Session, error) {
	var s Session
	err := bs.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(id))
		if data == nil {
			return ErrSessionNotFound
		}
		return json.Unmarshal(data, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutChunk stores the payload for one chunk index, replacing any prior payload.
func (bs *BoltStore) PutChunk(_ context.Context, sessionID string, index int, payload []byte) error {
	return bs.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(sessionsBucket).Get([]byte(sessionID)) == nil {
			return ErrSessionNotFound
		}
		return tx.Bucket(chunksBucket).Put(chunkKey(sessionID, index), payload)
	})
}

// Chunks returns the stored chunks for the session, sorted by index.
// Big-endian index keys make the bucket's natural ordering the sort order.
func (bs *BoltStore) Chunks(_ context.Context, sessionID string) ([]ChunkInfo, error) {
	var chunks []ChunkInfo
	prefix := chunkPrefix(sessionID)
	err := bs.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(chunksBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			chunks = append(chunks, ChunkInfo{
				Index: int(binary.BigEndian.Uint64(k[len(prefix):])),
				Size:  int64(len(v)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// ChunkPayload returns the payload stored at one index.
func (bs *BoltStore) ChunkPayload(_ context.Context, sessionID string, index int) ([]byte, error) {
	var payload []byte
	err := bs.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(chunksBucket).Get(chunkKey(sessionID, index))
		if data == nil {
			return fmt.Errorf("chunk %d not found for session %s", index, sessionID)
		}
		payload = make([]byte, len(data))
		copy(payload, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// DeleteSession removes the session row and all of its chunks in one
// transaction, so a crash cannot leave orphaned chunks behind a deleted
// session.
func (bs *BoltStore) DeleteSession(_ context.Context, id string) error {
	prefix := chunkPrefix(id)
	return bs.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sessionsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		c := tx.Bucket(chunksBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSessions returns all live sessions.
func (bs *BoltStore) ListSessions(_ context.Context) ([]*Session, error) {
	var sessions []*Session
	err := bs.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var s Session
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			sessions = append(sessions, &s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Close closes the underlying database.
func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
