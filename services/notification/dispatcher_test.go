package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moveo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []models.Notification
	block chan struct{}
	err   error
}

func (s *recordingSender) Send(_ context.Context, n models.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestAsyncDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewAsyncDispatcher(sender, 16, 2, zap.NewNop())

	for i := 0; i < 10; i++ {
		d.Notify(context.Background(), "p1", models.Notification{Type: models.NotifyMissionInvitation})
	}
	d.Close()

	require.Equal(t, 10, sender.count())
	for _, n := range sender.sent {
		assert.Equal(t, "p1", n.ProviderID)
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
	}
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewAsyncDispatcher(sender, 1, 1, zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Notify(context.Background(), "p1", models.Notification{Type: models.NotifyMissionTaken})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(sender.block)
	d.Close()
	// one in flight in the worker, one buffered
	assert.LessOrEqual(t, sender.count(), 2)
	assert.GreaterOrEqual(t, sender.count(), 1)
}

func TestAsyncDispatcherSurvivesSenderErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("transport down")}
	d := NewAsyncDispatcher(sender, 4, 1, zap.NewNop())
	d.Notify(context.Background(), "p1", models.Notification{Type: models.NotifyMissionConfirmed})
	d.Notify(context.Background(), "p2", models.Notification{Type: models.NotifyMissionConfirmed})
	d.Close()
	assert.Equal(t, 2, sender.count())
}

func TestNotifyAfterCloseIsDropped(t *testing.T) {
	sender := &recordingSender{}
	d := NewAsyncDispatcher(sender, 4, 1, zap.NewNop())
	d.Close()
	d.Close()
	d.Notify(context.Background(), "p1", models.Notification{})
	assert.Equal(t, 0, sender.count())
}
