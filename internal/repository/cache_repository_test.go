package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

func TestCacheRepositoryRoundTrip(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()

	var out map[string]float64
	assert.ErrorIs(t, repo.Get(ctx, "grades:summary:1", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "grades:summary:1", map[string]float64{"percent": 0.85}, time.Minute))
	require.NoError(t, repo.Get(ctx, "grades:summary:1", &out))
	assert.Equal(t, 0.85, out["percent"])

	require.NoError(t, repo.Set(ctx, "grades:summary:2", map[string]float64{"percent": 0.1}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "grades:summary:1"))
	assert.False(t, server.Exists("grades:summary:1"))

	require.NoError(t, repo.DeleteByPattern(ctx, "grades:summary:*"))
	assert.False(t, server.Exists("grades:summary:2"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, repo.Ping(context.Background()))
}
