package s3test

import (
	"citydesk/internal/blob/core"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewFake()
	assert.Equal(t, core.DriverS3, s.Driver())
	assert.Equal(t, "citydesk-exports", s.Bucket())

	info, err := s.Put(ctx, "exports/cidades.json", strings.NewReader(`[{"id":1}]`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"rows": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exports/cidades.json", info.Key)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "fake-etag", info.ETag)
	assert.Equal(t, "1", info.Metadata["rows"])

	_, err = s.Put(ctx, "exports/cidades.json", strings.NewReader(`[]`), core.PutOptions{})
	assert.True(t, errors.Is(err, core.ErrExists))

	got, rc, err := s.Get(ctx, "exports/cidades.json")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, `[{"id":1}]`, string(body))
	assert.Equal(t, "application/json", got.ContentType)

	_, err = s.Put(ctx, "exports/cidades.csv", strings.NewReader("id\n1\n"), core.PutOptions{ContentType: "text/csv"})
	require.NoError(t, err)
	_, err = s.Put(ctx, "elsewhere.txt", strings.NewReader("x"), core.PutOptions{})
	require.NoError(t, err)

	list, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "exports/cidades.csv", list[0].Key)
	assert.Equal(t, int64(5), list[0].Size)

	ok, err := s.Delete(ctx, "exports/cidades.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "exports/cidades.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Get(ctx, "exports/cidades.csv")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	require.True(t, ok)
	assert.Equal(t, "hello", string(body))

	_, ok = decodeChunked([]byte(`{"plain":true}`))
	assert.False(t, ok)
	_, ok = decodeChunked([]byte("zz\r\nhello"))
	assert.False(t, ok)
}
