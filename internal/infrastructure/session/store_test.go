package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	c, err := s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	require.NoError(t, s.Save(ctx, "sid", domain.Cart{"p1": 2}))
	c, err = s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Qty("p1"))

	c.Set("p1", 5)
	again, _ := s.Load(ctx, "sid")
	assert.Equal(t, 2, again.Qty("p1"), "loaded carts are copies")

	other, _ := s.Load(ctx, "other")
	assert.True(t, other.Empty(), "sessions are isolated")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Save(ctx, "sid", domain.Cart{"p1": 1}))

	now = now.Add(2 * time.Minute)
	c, err := s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestMemoryStoreEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	require.NoError(t, s.Save(ctx, "sid", domain.Cart{"p1": 1}))
	require.NoError(t, s.Save(ctx, "sid", domain.Cart{}))
	assert.Empty(t, s.m)
}
