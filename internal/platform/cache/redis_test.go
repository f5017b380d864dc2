package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := Options("cache.internal:6380")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)

	opts, err = Options("redis://:s3cret@cache.internal:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = Options("")
	assert.Error(t, err)
	_, err = Options("redis://cache.internal:6379/notadb")
	assert.Error(t, err)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.Close()
	_, err = New(context.Background(), mr.Addr())
	assert.ErrorContains(t, err, "platform/cache: ping")
}
