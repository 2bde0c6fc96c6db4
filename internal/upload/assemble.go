package upload

import (
	"bytes"
	"context"
	"io"

	"github.com/coursedrop/coursedrop/internal/uploadstore"
)

// assembler is an io.Reader that concatenates a session's chunks in index
// order, loading one chunk payload at a time so the whole file never has to
// be resident in memory.
type assembler struct {
	ctx       context.Context
	store     uploadstore.Store
	sessionID string
	indexes   []int
	next      int
	current   *bytes.Reader
}

func newAssembler(ctx context.Context, store uploadstore.Store, sessionID string, chunks []uploadstore.ChunkInfo) *assembler {
	indexes := make([]int, len(chunks))
	for i, c := range chunks {
		indexes[i] = c.Index
	}
	return &assembler{
		ctx:       ctx,
		store:     store,
		sessionID: sessionID,
		indexes:   indexes,
	}
}

func (a *assembler) Read(p []byte) (int, error) {
	for a.current == nil || a.current.Len() == 0 {
		if a.next >= len(a.indexes) {
			return 0, io.EOF
		}
		payload, err := a.store.ChunkPayload(a.ctx, a.sessionID, a.indexes[a.next])
		if err != nil {
			return 0, err
		}
		a.next++
		a.current = bytes.NewReader(payload)
	}
	return a.current.Read(p)
}
