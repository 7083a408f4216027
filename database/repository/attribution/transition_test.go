package attributionRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moveo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcasting(id string, now time.Time) *models.Attribution {
	return &models.Attribution{
		ID:                  id,
		ServiceRequestID:    "sr-" + id,
		ServiceType:         models.ServiceMoving,
		Status:              models.StatusBroadcasting,
		ServiceLocation:     models.NewGeoPoint(45.764, 4.8357),
		MaxDistanceKm:       30,
		BroadcastCount:      1,
		ExcludedProviderIDs: models.NewProviderIDSet(),
		ExpiresAt:           now.Add(time.Hour),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func acceptTransition(providerID string, now time.Time) Transition {
	return Transition{
		From:              models.BroadcastingStatuses,
		RequireNoAccepted: true,
		NotExcluded:       providerID,
		DeadlineAfter:     now,
		To:                models.StatusAttributed,
		SetAccepted:       providerID,
		Now:               now,
	}
}

func TestTransitionMatches(t *testing.T) {
	now := time.Now()
	a := newBroadcasting("a1", now)

	assert.True(t, acceptTransition("p1", now).Matches(a))

	a.ExcludedProviderIDs.Add("p1")
	assert.False(t, acceptTransition("p1", now).Matches(a), "excluded provider must not match")

	b := newBroadcasting("a2", now)
	b.ExpiresAt = now
	assert.False(t, acceptTransition("p2", now).Matches(b), "deadline reached")
	assert.True(t, Transition{From: models.BroadcastingStatuses, RequireNoAccepted: true, DeadlineReached: now}.Matches(b))

	c := newBroadcasting("a3", now)
	assert.False(t, Transition{RequireRound: 2}.Matches(c))
	assert.False(t, Transition{RequireAccepted: "p1"}.Matches(c))
}

func TestTransitionApplyReBroadcast(t *testing.T) {
	now := time.Now()
	a := newBroadcasting("a1", now)
	acceptTransition("p1", now).Apply(a)
	require.True(t, a.AcceptedBy("p1"))
	assert.Equal(t, models.StatusAttributed, a.Status)

	deadline := now.Add(2 * time.Hour)
	Transition{
		To:             models.StatusReBroadcasting,
		ClearAccepted:  true,
		Exclude:        "p1",
		IncrementRound: true,
		ExpiresAt:      deadline,
		Now:            now,
	}.Apply(a)

	assert.Nil(t, a.AcceptedProviderID)
	assert.Equal(t, 2, a.BroadcastCount)
	assert.True(t, a.ExcludedProviderIDs.Contains("p1"))
	assert.Equal(t, deadline, a.ExpiresAt)
	assert.True(t, a.Active)
}

func TestMemoryRepoConcurrentAcceptHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryAttributionRepo()
	require.NoError(t, repo.Create(ctx, newBroadcasting("a1", now)))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CompareAndSwapStatus(ctx, "a1", acceptTransition(fmt.Sprintf("p%d", i), now))
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			assert.True(t, errors.Is(err, ErrConditionNotMet))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestMemoryRepoOneActivePerServiceRequest(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryAttributionRepo()

	first := newBroadcasting("a1", now)
	require.NoError(t, repo.Create(ctx, first))

	second := newBroadcasting("a2", now)
	second.ServiceRequestID = first.ServiceRequestID
	assert.ErrorIs(t, repo.Create(ctx, second), ErrActiveExists)

	_, err := repo.CompareAndSwapStatus(ctx, "a1", Transition{To: models.StatusCancelled})
	require.NoError(t, err)
	assert.NoError(t, repo.Create(ctx, second))

	active, err := repo.GetActiveByServiceRequest(ctx, first.ServiceRequestID)
	require.NoError(t, err)
	assert.Equal(t, "a2", active.ID)
}

func TestMemoryRepoListExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryAttributionRepo()

	stale := newBroadcasting("stale", now)
	stale.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, newBroadcasting("fresh", now)))

	ids, err := repo.ListExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, ids)

	_, err = repo.CompareAndSwapStatus(ctx, "missing", Transition{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAttributionRepo()
	require.NoError(t, repo.Create(ctx, newBroadcasting("a1", time.Now())))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	got.ExcludedProviderIDs.Add("p9")

	again, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, again.ExcludedProviderIDs.Contains("p9"))
}
