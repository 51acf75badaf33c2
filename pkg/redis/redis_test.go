package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURL(t *testing.T) {
	_, err := (&Config{}).New(context.Background())
	assert.EqualError(t, err, "redis url is empty")
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := (&Config{URL: "http://localhost:6379"}).New(context.Background())
	assert.Error(t, err)
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &Config{URL: "redis://" + mr.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNew_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := (&Config{URL: "redis://" + addr, DialTimeout: 1}).New(context.Background())
	assert.Error(t, err)
}
