package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var store Store = Noop{}

	require.NoError(t, store.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var out map[string]int
	hit, err := store.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, out)
	assert.NoError(t, store.Delete(ctx, "k"))
	assert.NoError(t, store.Ping(ctx))
}

func TestNewRedis_RejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
