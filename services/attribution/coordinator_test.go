package attribution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	attributionRepo "moveo/database/repository/attribution"
	blacklistRepo "moveo/database/repository/blacklist"
	bookingRepo "moveo/database/repository/booking"
	eligibilityRepo "moveo/database/repository/eligibility"
	providerRepo "moveo/database/repository/provider"
	"moveo/models"
	"moveo/services/blacklist"
	"moveo/services/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var lyon = struct{ lat, lng float64 }{45.7578, 4.8320}

type sent struct {
	providerID string
	n          models.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Notify(_ context.Context, providerID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{providerID: providerID, n: n})
}

// recipients lists the providers that received notifications of type kind.
func (r *recordingNotifier) recipients(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sent {
		if s.n.Type == kind {
			out = append(out, s.providerID)
		}
	}
	return out
}

type recordingDeadlines struct {
	mu     sync.Mutex
	rounds []string
}

func (d *recordingDeadlines) ScheduleExpiry(_ context.Context, attributionID string, round int, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rounds = append(d.rounds, models.RoundKey(attributionID, round))
	return nil
}

type harness struct {
	c         *Coordinator
	requests  *bookingRepo.MemoryServiceRequestRepo
	responses *eligibilityRepo.MemoryEligibilityRepo
	guard     *blacklist.Guard
	matcher   *geo.Matcher
	notifier  *recordingNotifier
	deadlines *recordingDeadlines
	now       time.Time
}

func newProvider(id string, lat, lng float64) models.Provider {
	return models.Provider{
		ID:           id,
		Name:         id,
		LocationGeo:  models.NewGeoPoint(lat, lng),
		ServiceTypes: []string{models.ServiceMoving},
		Verified:     true,
		Status:       models.ProviderStatusActive,
	}
}

func newHarness(t *testing.T, providers ...models.Provider) *harness {
	t.Helper()
	return newHarnessWith(t, nil, providers...)
}

// newHarnessWith lets wrap replace collaborators before the coordinator is built.
func newHarnessWith(t *testing.T, wrap func(*Dependencies), providers ...models.Provider) *harness {
	t.Helper()
	var requests []models.ServiceRequest
	for i := 1; i <= 5; i++ {
		requests = append(requests, models.ServiceRequest{
			ID:          fmt.Sprintf("sr-%d", i),
			ServiceType: models.ServiceMoving,
			LocationGeo: models.NewGeoPoint(lyon.lat, lyon.lng),
			AmountCents: 45000,
			Currency:    "eur",
		})
	}

	h := &harness{
		requests:  bookingRepo.NewMemoryServiceRequestRepo(requests...),
		responses: eligibilityRepo.NewMemoryEligibilityRepo(),
		notifier:  &recordingNotifier{},
		deadlines: &recordingDeadlines{},
		now:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	h.guard = blacklist.NewGuard(blacklistRepo.NewMemoryBlacklistRepo(), blacklist.DefaultThreshold, zap.NewNop())
	h.matcher = geo.NewMatcher(providerRepo.NewMemoryProviderRepo(providers...), h.guard, zap.NewNop())
	deps := Dependencies{
		Attributions: attributionRepo.NewMemoryAttributionRepo(),
		Responses:    h.responses,
		Requests:     h.requests,
		Matcher:      h.matcher,
		Blacklist:    h.guard,
		Notifier:     h.notifier,
		Deadlines:    h.deadlines,
	}
	if wrap != nil {
		wrap(&deps)
	}
	h.c = NewCoordinator(deps, Config{TTL: 10 * time.Minute, DefaultMaxDistanceKm: 50}, zap.NewNop())
	h.c.now = func() time.Time { return h.now }
	return h
}

func (h *harness) start(t *testing.T, serviceRequestID string, maxKm float64) *StartResult {
	t.Helper()
	res, err := h.c.Start(context.Background(), StartRequest{
		ServiceRequestID: serviceRequestID,
		ServiceType:      models.ServiceMoving,
		Lat:              lyon.lat,
		Lng:              lyon.lng,
		MaxDistanceKm:    maxKm,
	})
	require.NoError(t, err)
	return res
}

func invitedIDs(in []models.ProviderWithDistance) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = p.Provider.ID
	}
	return out
}

func lyonProviders() []models.Provider {
	return []models.Provider{
		newProvider("paris", 48.8566, 2.3522),
		newProvider("marseille", 43.2965, 5.3698),
		newProvider("villeurbanne", 45.7800, 4.9300),
		newProvider("lyon", 45.7578, 4.8320),
	}
}

func TestLyonScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, lyonProviders()...)

	res := h.start(t, "sr-1", 150)
	require.Equal(t, OutcomeBroadcasting, res.Outcome)
	require.Equal(t, []string{"lyon", "villeurbanne"}, invitedIDs(res.Invited))
	assert.Equal(t, 7.99, res.Invited[1].RoundedKm)
	assert.Equal(t, models.StatusBroadcasting, res.Attribution.Status)
	assert.Equal(t, 1, res.Attribution.BroadcastCount)
	assert.ElementsMatch(t, []string{"lyon", "villeurbanne"}, h.notifier.recipients(models.NotifyMissionInvitation))
	assert.Equal(t, []string{models.RoundKey(res.Attribution.ID, 1)}, h.deadlines.rounds)

	won, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "villeurbanne")
	require.NoError(t, err)
	assert.True(t, won.Success)
	assert.Equal(t, models.StatusAttributed, won.Attribution.Status)

	lost, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "lyon")
	require.NoError(t, err)
	assert.False(t, lost.Success)
	assert.Equal(t, OutcomeAlreadyAttributed, lost.Outcome)

	sr, err := h.requests.GetByID(ctx, "sr-1")
	require.NoError(t, err)
	require.NotNil(t, sr.AssignedProviderID)
	assert.Equal(t, "villeurbanne", *sr.AssignedProviderID)

	assert.Equal(t, []string{"villeurbanne"}, h.notifier.recipients(models.NotifyMissionConfirmed))
	assert.Equal(t, []string{"lyon"}, h.notifier.recipients(models.NotifyMissionTaken))

	responses, err := h.c.ListResponses(ctx, res.Attribution.ID)
	require.NoError(t, err)
	outcomes := map[string]models.ResponseOutcome{}
	for _, r := range responses {
		outcomes[r.ProviderID] = r.Outcome
	}
	assert.Equal(t, models.ResponseAccepted, outcomes["villeurbanne"])
	assert.Equal(t, models.ResponseSuperseded, outcomes["lyon"])
}

func TestConcurrentAcceptanceHasOneWinner(t *testing.T) {
	var providers []models.Provider
	for i := 0; i < 25; i++ {
		providers = append(providers, newProvider(fmt.Sprintf("p%02d", i), lyon.lat+float64(i)*0.001, lyon.lng))
	}
	h := newHarness(t, providers...)
	res := h.start(t, "sr-1", 50)
	require.Len(t, res.Invited, 25)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  = map[Outcome]int{}
	)
	for _, p := range providers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r, err := h.c.HandleAcceptance(context.Background(), res.Attribution.ID, id)
			assert.NoError(t, err)
			if r == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if r.Success {
				winners = append(winners, id)
			} else {
				losers[r.Outcome]++
			}
		}(p.ID)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, map[Outcome]int{OutcomeAlreadyAttributed: 24}, losers)

	a, err := h.c.Get(context.Background(), res.Attribution.ID)
	require.NoError(t, err)
	assert.True(t, a.AcceptedBy(winners[0]))
}

func TestCancellationReBroadcastsAndKeepsExclusions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		newProvider("a", 45.76, 4.83),
		newProvider("b", 45.77, 4.84),
		newProvider("c", 45.78, 4.85),
	)
	res := h.start(t, "sr-1", 50)
	id := res.Attribution.ID

	_, err := h.c.HandleAcceptance(ctx, id, "a")
	require.NoError(t, err)

	cancelled, err := h.c.HandleCancellation(ctx, id, "a", "truck broke down")
	require.NoError(t, err)
	require.True(t, cancelled.Success)
	assert.Equal(t, OutcomeReBroadcast, cancelled.Outcome)
	assert.Equal(t, models.StatusReBroadcasting, cancelled.Attribution.Status)
	assert.Equal(t, 2, cancelled.Attribution.BroadcastCount)
	assert.Nil(t, cancelled.Attribution.AcceptedProviderID)
	assert.True(t, cancelled.Attribution.ExcludedProviderIDs.Contains("a"))
	assert.Equal(t, []string{"b", "c"}, invitedIDs(cancelled.Invited))
	assert.Equal(t, h.now.Add(10*time.Minute), cancelled.Attribution.ExpiresAt)

	sr, err := h.requests.GetByID(ctx, "sr-1")
	require.NoError(t, err)
	assert.Nil(t, sr.AssignedProviderID)

	again, err := h.c.HandleAcceptance(ctx, id, "a")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExcluded, again.Outcome)

	won, err := h.c.HandleAcceptance(ctx, id, "b")
	require.NoError(t, err)
	require.True(t, won.Success)

	second, err := h.c.HandleCancellation(ctx, id, "b", "")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Attribution.BroadcastCount)
	assert.Equal(t, []string{"a", "b"}, second.Attribution.ExcludedProviderIDs.Sorted())
	assert.Equal(t, []string{"c"}, invitedIDs(second.Invited))
	assert.Equal(t, []string{"b", "c", "c"}, h.notifier.recipients(models.NotifyMissionReassigned))

	var rounds []int
	responses, err := h.c.ListResponses(ctx, id)
	require.NoError(t, err)
	for _, r := range responses {
		if r.ProviderID == "a" {
			rounds = append(rounds, r.Round)
			assert.Equal(t, models.ResponseCancelled, r.Outcome)
		}
	}
	assert.Equal(t, []int{1}, rounds)
}

func TestCancellationWithNobodyLeftExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("solo", 45.76, 4.83))
	res := h.start(t, "sr-1", 50)
	_, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "solo")
	require.NoError(t, err)

	out, err := h.c.HandleCancellation(ctx, res.Attribution.ID, "solo", "sick")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.Expired)
	assert.Empty(t, out.Invited)
	assert.Equal(t, models.StatusExpired, out.Attribution.Status)
	assert.Equal(t, 2, out.Attribution.BroadcastCount)
	assert.Equal(t, ReasonNoEligibleProviders, out.Attribution.StatusReason)
}

func TestCancellationRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83), newProvider("b", 45.77, 4.84))
	res := h.start(t, "sr-1", 50)
	id := res.Attribution.ID

	out, err := h.c.HandleCancellation(ctx, id, "a", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotAttributed, out.Outcome)

	_, err = h.c.HandleAcceptance(ctx, id, "a")
	require.NoError(t, err)
	out, err = h.c.HandleCancellation(ctx, id, "b", "")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, OutcomeNotAssignee, out.Outcome)
}

func TestRefusalThenBlacklist(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("picky", lyon.lat, lyon.lng), newProvider("other", 45.77, 4.84))

	first := h.start(t, "sr-1", 50)
	r1, err := h.c.HandleRefusal(ctx, first.Attribution.ID, "picky", "too far")
	require.NoError(t, err)
	assert.True(t, r1.Success)
	assert.False(t, r1.Blacklisted)
	assert.False(t, r1.Expired)
	assert.True(t, r1.Attribution.ExcludedProviderIDs.Contains("picky"))

	second := h.start(t, "sr-2", 50)
	r2, err := h.c.HandleRefusal(ctx, second.Attribution.ID, "picky", "busy")
	require.NoError(t, err)
	assert.True(t, r2.Blacklisted)

	entry, err := h.guard.Entry(ctx, "picky")
	require.NoError(t, err)
	assert.True(t, entry.IsActive)
	assert.Equal(t, 2, entry.ConsecutiveRefusalCount)
	assert.Contains(t, entry.Reason, "2 consecutive refusals")
	assert.Equal(t, []string{"picky"}, h.notifier.recipients(models.NotifyBlacklisted))

	third := h.start(t, "sr-3", 50)
	assert.Equal(t, []string{"other"}, invitedIDs(third.Invited))
}

func TestRefusalThenAcceptanceResetsCounter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("p", lyon.lat, lyon.lng), newProvider("q", 45.77, 4.84))

	first := h.start(t, "sr-1", 50)
	_, err := h.c.HandleRefusal(ctx, first.Attribution.ID, "p", "")
	require.NoError(t, err)

	second := h.start(t, "sr-2", 50)
	won, err := h.c.HandleAcceptance(ctx, second.Attribution.ID, "p")
	require.NoError(t, err)
	require.True(t, won.Success)

	third := h.start(t, "sr-3", 50)
	r, err := h.c.HandleRefusal(ctx, third.Attribution.ID, "p", "")
	require.NoError(t, err)
	assert.False(t, r.Blacklisted)

	banned, err := h.guard.IsBlacklisted(ctx, "p")
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestDuplicateRefusalCountsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("p", lyon.lat, lyon.lng), newProvider("q", 45.77, 4.84))
	res := h.start(t, "sr-1", 50)

	_, err := h.c.HandleRefusal(ctx, res.Attribution.ID, "p", "")
	require.NoError(t, err)
	dup, err := h.c.HandleRefusal(ctx, res.Attribution.ID, "p", "")
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Equal(t, OutcomeAlreadyResponded, dup.Outcome)

	entry, err := h.guard.Entry(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ConsecutiveRefusalCount)

	notInvited, err := h.c.HandleRefusal(ctx, res.Attribution.ID, "stranger", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotInvited, notInvited.Outcome)
}

func TestLastRefusalExpiresRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("p", lyon.lat, lyon.lng), newProvider("q", 45.77, 4.84))
	res := h.start(t, "sr-1", 50)

	r, err := h.c.HandleRefusal(ctx, res.Attribution.ID, "p", "")
	require.NoError(t, err)
	assert.False(t, r.Expired)
	assert.Equal(t, models.StatusBroadcasting, r.Attribution.Status)

	r, err = h.c.HandleRefusal(ctx, res.Attribution.ID, "q", "")
	require.NoError(t, err)
	assert.True(t, r.Expired)
	assert.Equal(t, models.StatusExpired, r.Attribution.Status)
	assert.Equal(t, ReasonAllRefused, r.Attribution.StatusReason)
}

func TestRefuserCannotAcceptLater(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("p", lyon.lat, lyon.lng), newProvider("q", 45.77, 4.84))
	res := h.start(t, "sr-1", 50)

	_, err := h.c.HandleRefusal(ctx, res.Attribution.ID, "p", "")
	require.NoError(t, err)
	out, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "p")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExcluded, out.Outcome)
}

func TestNoEligibleProvidersExpiresImmediately(t *testing.T) {
	h := newHarness(t, newProvider("paris", 48.8566, 2.3522))
	res := h.start(t, "sr-1", 50)

	assert.Equal(t, OutcomeNoEligibleProviders, res.Outcome)
	assert.NotNil(t, res.Invited)
	assert.Empty(t, res.Invited)
	assert.Equal(t, models.StatusExpired, res.Attribution.Status)
	assert.Equal(t, ReasonNoEligibleProviders, res.Attribution.StatusReason)
	assert.Empty(t, h.deadlines.rounds)

	// the request can be attributed again once the previous one is closed
	again := h.start(t, "sr-1", 500)
	assert.Equal(t, OutcomeBroadcasting, again.Outcome)
}

func TestStartGuards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83))
	res := h.start(t, "sr-1", 50)

	_, err := h.c.Start(ctx, StartRequest{ServiceRequestID: "sr-1", ServiceType: models.ServiceMoving, Lat: lyon.lat, Lng: lyon.lng})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAttributionAlreadyActive))
	var active *ActiveAttributionError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, res.Attribution.ID, active.AttributionID)

	_, err = h.c.Start(ctx, StartRequest{ServiceRequestID: "missing", ServiceType: models.ServiceMoving, Lat: lyon.lat, Lng: lyon.lng})
	assert.True(t, errors.Is(err, ErrServiceRequestNotFound))

	var verr *ValidationError
	_, err = h.c.Start(ctx, StartRequest{ServiceRequestID: "sr-2", ServiceType: models.ServiceMoving, Lat: 95, Lng: lyon.lng})
	assert.ErrorAs(t, err, &verr)
	_, err = h.c.Start(ctx, StartRequest{ServiceRequestID: "sr-2", ServiceType: models.ServiceMoving, Lat: lyon.lat, Lng: lyon.lng, MaxDistanceKm: -1})
	assert.ErrorAs(t, err, &verr)
	_, err = h.c.Start(ctx, StartRequest{ServiceRequestID: "sr-2", ServiceType: models.ServiceCleaning, Lat: lyon.lat, Lng: lyon.lng})
	assert.ErrorAs(t, err, &verr)

	defaulted := h.start(t, "sr-2", 0)
	assert.Equal(t, 50.0, defaulted.Attribution.MaxDistanceKm)
}

func TestExpiryRacesLateAcceptance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83), newProvider("b", 45.77, 4.84))
	res := h.start(t, "sr-1", 50)
	id := res.Attribution.ID

	early, err := h.c.Expire(ctx, id)
	require.NoError(t, err)
	assert.False(t, early.Expired)
	assert.Equal(t, OutcomeNotDue, early.Outcome)

	h.now = res.Attribution.ExpiresAt
	late, err := h.c.HandleAcceptance(ctx, id, "a")
	require.NoError(t, err)
	assert.False(t, late.Success)
	assert.Equal(t, OutcomeClosed, late.Outcome)

	exp, err := h.c.Expire(ctx, id)
	require.NoError(t, err)
	assert.True(t, exp.Expired)
	assert.Equal(t, models.StatusExpired, exp.Attribution.Status)

	again, err := h.c.Expire(ctx, id)
	require.NoError(t, err)
	assert.False(t, again.Expired)
	assert.Equal(t, OutcomeClosed, again.Outcome)

	responses, err := h.c.ListResponses(ctx, id)
	require.NoError(t, err)
	for _, r := range responses {
		assert.Equal(t, models.ResponseTimedOut, r.Outcome)
	}
}

func TestAcceptedRoundIsNotExpired(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83))
	res := h.start(t, "sr-1", 50)
	_, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "a")
	require.NoError(t, err)

	h.now = h.now.Add(time.Hour)
	exp, err := h.c.Expire(ctx, res.Attribution.ID)
	require.NoError(t, err)
	assert.False(t, exp.Expired)
	assert.Equal(t, models.StatusAttributed, exp.Attribution.Status)
}

func TestExpireDueAndLazyGet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83))
	first := h.start(t, "sr-1", 50)
	second := h.start(t, "sr-2", 50)

	h.now = h.now.Add(11 * time.Minute)
	got, err := h.c.Get(ctx, first.Attribution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	n, err := h.c.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = h.c.Get(ctx, second.Attribution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestAcceptRetryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83))
	res := h.start(t, "sr-1", 50)

	first, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "a")
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.AlreadyAccepted)

	_, err = h.requests.ClearAssignment(ctx, "sr-1", "a")
	require.NoError(t, err)

	retry, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "a")
	require.NoError(t, err)
	assert.True(t, retry.Success)
	assert.True(t, retry.AlreadyAccepted)

	sr, err := h.requests.GetByID(ctx, "sr-1")
	require.NoError(t, err)
	require.NotNil(t, sr.AssignedProviderID)
	assert.Equal(t, "a", *sr.AssignedProviderID)
	assert.Len(t, h.notifier.recipients(models.NotifyMissionConfirmed), 1)
}

func TestAcceptanceByUninvitedProvider(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("near", 45.76, 4.83), newProvider("paris", 48.8566, 2.3522))
	res := h.start(t, "sr-1", 50)

	out, err := h.c.HandleAcceptance(ctx, res.Attribution.ID, "paris")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotInvited, out.Outcome)

	_, err = h.c.HandleAcceptance(ctx, "nope", "near")
	assert.True(t, errors.Is(err, ErrAttributionNotFound))

	var verr *ValidationError
	_, err = h.c.HandleAcceptance(ctx, res.Attribution.ID, "")
	assert.ErrorAs(t, err, &verr)
}

func TestCompleteAndCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newProvider("a", 45.76, 4.83), newProvider("b", 45.77, 4.84))

	done := h.start(t, "sr-1", 50)
	notYet, err := h.c.Complete(ctx, done.Attribution.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotAttributed, notYet.Outcome)

	_, err = h.c.HandleAcceptance(ctx, done.Attribution.ID, "a")
	require.NoError(t, err)
	completed, err := h.c.Complete(ctx, done.Attribution.ID)
	require.NoError(t, err)
	assert.True(t, completed.Success)
	assert.Equal(t, models.StatusCompleted, completed.Attribution.Status)

	closed, err := h.c.Cancel(ctx, done.Attribution.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, closed.Outcome)

	open := h.start(t, "sr-2", 50)
	_, err = h.c.HandleAcceptance(ctx, open.Attribution.ID, "b")
	require.NoError(t, err)
	cancelled, err := h.c.Cancel(ctx, open.Attribution.ID, "customer cancelled")
	require.NoError(t, err)
	assert.True(t, cancelled.Success)
	assert.Equal(t, models.StatusCancelled, cancelled.Attribution.Status)
	assert.Equal(t, []string{"b"}, h.notifier.recipients(models.NotifyMissionCancelled))

	sr, err := h.requests.GetByID(ctx, "sr-2")
	require.NoError(t, err)
	assert.Nil(t, sr.AssignedProviderID)

	late, err := h.c.HandleAcceptance(ctx, open.Attribution.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, late.Outcome)
}
