package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeySanitizesFileName(t *testing.T) {
	key := objectKey("my lecture (final)?.pdf")
	assert.True(t, strings.HasSuffix(key, "my_lecture_final_.pdf"), "unexpected key %q", key)
	assert.NotContains(t, key, " ")
}

func TestObjectKeysAreUnique(t *testing.T) {
	assert.NotEqual(t, objectKey("a.pdf"), objectKey("a.pdf"))
}

func TestKeyFromURLRoundTrip(t *testing.T) {
	s := NewS3Store(nil, "materials", "eu-central-1")
	url := s.publicURL("2026/09/01/abc-lecture.pdf")
	assert.Equal(t, "https://materials.s3.eu-central-1.amazonaws.com/2026/09/01/abc-lecture.pdf", url)

	key, err := s.keyFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "2026/09/01/abc-lecture.pdf", key)

	_, err = s.keyFromURL("https://other-bucket.s3.eu-central-1.amazonaws.com/x")
	assert.Error(t, err)
}

func TestUnconfiguredBucket(t *testing.T) {
	s := NewS3Store(nil, "", "eu-central-1")
	ctx := context.Background()

	_, err := s.Put(ctx, "a.pdf", "application/pdf", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = s.Delete(ctx, "https://x.s3.y.amazonaws.com/k")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, _, err = s.PresignPut(ctx, "a.pdf", "application/pdf", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
