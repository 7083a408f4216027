package provider

import (
	"context"
	"testing"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr(f float64) *float64 { return &f }

func newService() *DefaultProviderService {
	return NewDefaultProviderService(providerRepo.NewMemoryProviderRepo(), zap.NewNop())
}

func TestRegisterAndUpdateProvider(t *testing.T) {
	ctx := context.Background()
	s := newService()

	p, err := s.RegisterProvider(ctx, RegisterInput{
		ID:           "villeurbanne",
		Name:         " Déménagements Rhône ",
		Lat:          ptr(45.78),
		Lng:          ptr(4.93),
		ServiceTypes: []string{models.ServiceMoving},
		Verified:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Déménagements Rhône", p.Name)
	assert.Equal(t, models.ProviderStatusActive, p.Status)

	p, err = s.UpdatePushToken(ctx, "villeurbanne", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", p.FCMToken)

	p, err = s.UpdateLocation(ctx, "villeurbanne", 45.75, 4.85)
	require.NoError(t, err)
	assert.InDelta(t, 45.75, p.LocationGeo.Lat(), 1e-9)

	p, err = s.SetStatus(ctx, "villeurbanne", models.ProviderStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderStatusSuspended, p.Status)

	got, err := s.GetProviderByID(ctx, "villeurbanne")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.FCMToken)
	assert.Equal(t, models.ProviderStatusSuspended, got.Status)
}

func TestRegisterProviderGeneratesID(t *testing.T) {
	p, err := newService().RegisterProvider(context.Background(), RegisterInput{
		Name: "x", Lat: ptr(0), Lng: ptr(0), ServiceTypes: []string{models.ServiceCleaning},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.Verified)
}

func TestProviderValidation(t *testing.T) {
	ctx := context.Background()
	s := newService()

	cases := map[string]RegisterInput{
		"name":         {Lat: ptr(0), Lng: ptr(0), ServiceTypes: []string{models.ServiceMoving}},
		"location":     {Name: "x", ServiceTypes: []string{models.ServiceMoving}},
		"latitude":     {Name: "x", Lat: ptr(91), Lng: ptr(0), ServiceTypes: []string{models.ServiceMoving}},
		"service":      {Name: "x", Lat: ptr(0), Lng: ptr(0)},
		"unknown type": {Name: "x", Lat: ptr(0), Lng: ptr(0), ServiceTypes: []string{"piano_tuning"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.RegisterProvider(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := s.UpdatePushToken(ctx, "ghost", "tok")
	assert.ErrorIs(t, err, ErrProviderNotFound)
	_, err = s.UpdatePushToken(ctx, "ghost", " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.SetStatus(ctx, "ghost", "retired")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
