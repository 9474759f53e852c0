package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With no client configured the cache must degrade to a no-op.
func TestNilClientDegradesGracefully(t *testing.T) {
	Client = nil
	ctx := context.Background()

	var target []string
	hit, err := GetRoomList(ctx, 1, &target)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, SetRoomList(ctx, 1, []string{"a"}))
	assert.NoError(t, InvalidateRoomList(ctx, 1))
}

func TestRoomListKey(t *testing.T) {
	assert.Equal(t, "rooms:event:42", roomListKey(42))
}
