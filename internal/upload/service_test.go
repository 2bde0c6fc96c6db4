package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursedrop/coursedrop/internal/blob"
	"github.com/coursedrop/coursedrop/internal/catalog"
	"github.com/coursedrop/coursedrop/internal/uploadstore"
)

// fakeBlobStore records promoted objects in memory.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut error
	putN    int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, fileName, _ string, body io.Reader, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return "", f.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.putN++
	url := fmt.Sprintf("https://blobs.test/%d/%s", f.putN, fileName)
	f.objects[url] = data
	return url, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, publicURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, publicURL)
	f.deleted = append(f.deleted, publicURL)
	return nil
}

func (f *fakeBlobStore) PresignPut(_ context.Context, _, _ string, _ time.Duration) (string, string, error) {
	return "", "", errors.New("not implemented")
}

// fakeCatalog implements Cataloger with a fixed topic set.
type fakeCatalog struct {
	mu         sync.Mutex
	topics     map[uint]bool
	materials  []*catalog.Material
	failCreate error
}

func newFakeCatalog(topicIDs ...uint) *fakeCatalog {
	topics := make(map[uint]bool)
	for _, id := range topicIDs {
		topics[id] = true
	}
	return &fakeCatalog{topics: topics}
}

func (f *fakeCatalog) TopicExists(id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topics[id], nil
}

func (f *fakeCatalog) CreateMaterial(m *catalog.Material) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	copied := *m
	f.materials = append(f.materials, &copied)
	return nil
}

func (f *fakeCatalog) materialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.materials)
}

func newTestService(t *testing.T) (*Service, *uploadstore.MemoryStore, *fakeBlobStore, *fakeCatalog) {
	t.Helper()
	store := uploadstore.NewMemoryStore()
	blobs := newFakeBlobStore()
	cat := newFakeCatalog(1)
	svc := NewService(store, blobs, cat, 5*time.Second, 24*time.Hour)
	return svc, store, blobs, cat
}

func initSession(t *testing.T, svc *Service) string {
	t.Helper()
	id, err := svc.Init(context.Background(), InitRequest{
		FileName:    "lecture.pdf",
		ContentType: "application/pdf",
		FileSize:    300,
		TopicID:     1,
		Title:       "Lecture 1",
	})
	require.NoError(t, err)
	return id
}

func TestInitValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  InitRequest
		want error
	}{
		{"missing file name", InitRequest{FileSize: 10, TopicID: 1}, ErrInvalidRequest},
		{"zero size", InitRequest{FileName: "a.pdf", TopicID: 1}, ErrInvalidRequest},
		{"negative size", InitRequest{FileName: "a.pdf", FileSize: -5, TopicID: 1}, ErrInvalidRequest},
		{"missing topic", InitRequest{FileName: "a.pdf", FileSize: 10}, ErrInvalidRequest},
		{"unknown topic", InitRequest{FileName: "a.pdf", FileSize: 10, TopicID: 42}, ErrTopicNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Init(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInitDefaults(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	id, err := svc.Init(context.Background(), InitRequest{
		FileName: "notes.txt",
		FileSize: 1,
		TopicID:  1,
	})
	require.NoError(t, err)

	session, err := store.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", session.Title)
	assert.Equal(t, "application/octet-stream", session.ContentType)
}

func TestChunkedUploadOutOfOrder(t *testing.T) {
	svc, store, blobs, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)

	chunkA := bytes.Repeat([]byte("A"), 150)
	chunkB := bytes.Repeat([]byte("B"), 150)
	require.NoError(t, svc.PutChunk(ctx, id, 1, chunkB))
	require.NoError(t, svc.PutChunk(ctx, id, 0, chunkA))

	material, err := svc.Finalize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), material.FileSize)
	assert.Equal(t, "Lecture 1", material.Title)
	assert.Equal(t, "lecture.pdf", material.FileName)
	assert.NotEmpty(t, material.BlobURL)

	assembled := blobs.objects[material.BlobURL]
	assert.Equal(t, append(chunkA, chunkB...), assembled)
	assert.Equal(t, 1, cat.materialCount())

	// The session is gone after a successful finalize.
	_, err = store.GetSession(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPutChunkLastWriteWins(t *testing.T) {
	svc, _, blobs, _ := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)

	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("old payload")))
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("new")))

	material, err := svc.Finalize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), blobs.objects[material.BlobURL])
	assert.Equal(t, int64(3), material.FileSize)
}

func TestPutChunkUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.PutChunk(context.Background(), "no-such-session", 0, []byte("x"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPutChunkAfterFinalize(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))
	_, err := svc.Finalize(ctx, id)
	require.NoError(t, err)

	err = svc.PutChunk(ctx, id, 1, []byte("late"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPutChunkNegativeIndex(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	id := initSession(t, svc)
	err := svc.PutChunk(context.Background(), id, -1, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFinalizeNoChunks(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)

	_, err := svc.Finalize(ctx, id)
	assert.ErrorIs(t, err, ErrNoChunks)

	// Session survives for retry.
	_, err = store.GetSession(ctx, id)
	assert.NoError(t, err)
}

func TestFinalizeMissingChunkIsRetryable(t *testing.T) {
	svc, _, _, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)

	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("aa")))
	require.NoError(t, svc.PutChunk(ctx, id, 2, []byte("cc")))

	_, err := svc.Finalize(ctx, id)
	var missing *MissingChunkError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, missing.Index)
	assert.Equal(t, 0, cat.materialCount())

	// Fill the gap and retry.
	require.NoError(t, svc.PutChunk(ctx, id, 1, []byte("bb")))
	material, err := svc.Finalize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(6), material.FileSize)
}

func TestFinalizeTwiceSequential(t *testing.T) {
	svc, _, _, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))

	_, err := svc.Finalize(ctx, id)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, cat.materialCount())
}

func TestFinalizeConcurrent(t *testing.T) {
	svc, _, _, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Finalize(ctx, id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSessionNotFound)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, cat.materialCount())
}

func TestFailedPromotionPreservesSession(t *testing.T) {
	svc, store, blobs, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))

	blobs.failPut = &blob.WriteError{Err: errors.New("backend down")}
	_, err := svc.Finalize(ctx, id)
	var writeErr *blob.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 0, cat.materialCount())

	// Session intact; a retry after the backend recovers succeeds.
	_, err = store.GetSession(ctx, id)
	require.NoError(t, err)
	blobs.failPut = nil
	_, err = svc.Finalize(ctx, id)
	assert.NoError(t, err)
}

func TestStorageNotConfigured(t *testing.T) {
	svc, _, blobs, _ := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))

	blobs.failPut = blob.ErrNotConfigured
	_, err := svc.Finalize(ctx, id)
	assert.ErrorIs(t, err, blob.ErrNotConfigured)
}

func TestFailedMaterialCreateDeletesBlob(t *testing.T) {
	svc, store, blobs, cat := newTestService(t)
	ctx := context.Background()
	id := initSession(t, svc)
	require.NoError(t, svc.PutChunk(ctx, id, 0, []byte("data")))

	cat.failCreate = errors.New("database down")
	_, err := svc.Finalize(ctx, id)
	require.Error(t, err)

	// The orphaned blob was cleaned up and the session survives.
	assert.Len(t, blobs.deleted, 1)
	assert.Empty(t, blobs.objects)
	_, err = store.GetSession(ctx, id)
	assert.NoError(t, err)
}

func TestUploadDirect(t *testing.T) {
	svc, _, blobs, cat := newTestService(t)

	material, err := svc.UploadDirect(context.Background(), 1, "", "slides.pdf", "application/pdf", bytes.NewReader([]byte("slides")), 6)
	require.NoError(t, err)
	assert.Equal(t, "slides.pdf", material.Title)
	assert.Equal(t, []byte("slides"), blobs.objects[material.BlobURL])
	assert.Equal(t, 1, cat.materialCount())
}

func TestUploadDirectUnknownTopic(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.UploadDirect(context.Background(), 9, "t", "f.pdf", "", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

func TestSweepExpired(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	oldID := initSession(t, svc)
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	freshID := initSession(t, svc)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetSession(ctx, oldID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetSession(ctx, freshID)
	assert.NoError(t, err)
}
