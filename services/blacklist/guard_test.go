package blacklist

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	blacklistRepo "moveo/database/repository/blacklist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGuard() *Guard {
	return NewGuard(blacklistRepo.NewMemoryBlacklistRepo(), DefaultThreshold, zap.NewNop())
}

func TestTwoRefusalsBlacklist(t *testing.T) {
	ctx := context.Background()
	g := newGuard()

	banned, err := g.RecordRefusal(ctx, "p1", "a1#1")
	require.NoError(t, err)
	assert.False(t, banned)

	banned, err = g.RecordRefusal(ctx, "p1", "a2#1")
	require.NoError(t, err)
	assert.True(t, banned)

	isBanned, err := g.IsBlacklisted(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, isBanned)

	reason, err := g.Reason(ctx, "p1")
	require.NoError(t, err)
	assert.Contains(t, reason, "2 consecutive refusals")
}

func TestSameRoundCountsOnce(t *testing.T) {
	ctx := context.Background()
	g := newGuard()

	for i := 0; i < 3; i++ {
		banned, err := g.RecordRefusal(ctx, "p1", "a1#2")
		require.NoError(t, err)
		assert.False(t, banned)
	}
	entry, err := g.Entry(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ConsecutiveRefusalCount)
}

func TestAcceptanceResetsCounter(t *testing.T) {
	ctx := context.Background()
	g := newGuard()

	_, err := g.RecordRefusal(ctx, "p1", "a1#1")
	require.NoError(t, err)
	require.NoError(t, g.RecordAcceptance(ctx, "p1"))

	banned, err := g.RecordRefusal(ctx, "p1", "a2#1")
	require.NoError(t, err)
	assert.False(t, banned)

	isBanned, err := g.IsBlacklisted(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, isBanned)
}

func TestAcceptanceDoesNotLiftBan(t *testing.T) {
	ctx := context.Background()
	g := newGuard()
	_, _ = g.RecordRefusal(ctx, "p1", "a1#1")
	_, _ = g.RecordRefusal(ctx, "p1", "a2#1")

	require.NoError(t, g.RecordAcceptance(ctx, "p1"))
	isBanned, err := g.IsBlacklisted(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, isBanned)

	require.NoError(t, g.Lift(ctx, "p1"))
	isBanned, err = g.IsBlacklisted(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, isBanned)
}

func TestUnknownProviderIsNotBanned(t *testing.T) {
	g := newGuard()
	isBanned, err := g.IsBlacklisted(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, isBanned)

	bans, err := g.ActiveBans(context.Background(), []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, bans)
}

func TestConcurrentRefusalsActivateOnce(t *testing.T) {
	ctx := context.Background()
	g := newGuard()

	var activations int32
	var wg sync.WaitGroup
	rounds := []string{"a1#1", "a2#1", "a3#1", "a4#1", "a5#1", "a6#1"}
	for _, round := range rounds {
		wg.Add(1)
		go func(round string) {
			defer wg.Done()
			banned, err := g.RecordRefusal(ctx, "p1", round)
			assert.NoError(t, err)
			if banned {
				atomic.AddInt32(&activations, 1)
			}
		}(round)
	}
	wg.Wait()
	assert.Equal(t, int32(1), activations)
}
