package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderDispatcherRemindsEachEventOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.bookings.Create(ctx, CreateBookingParams{UserID: "u1", EventID: env.event.ID, IsFreeTrial: true})
	require.NoError(t, err)
	env.addEvent(t, "Already over", 0)

	notifications := NewNotificationService(env.store)
	d := NewReminderDispatcher(notifications, env.store, 24*time.Hour, time.Hour)

	d.now = func() time.Time { return env.event.Date.Add(-48 * time.Hour) }
	assert.Equal(t, 0, d.processDueReminders(ctx))

	d.now = func() time.Time { return env.event.Date.Add(-12 * time.Hour) }
	assert.Equal(t, 1, d.processDueReminders(ctx))
	assert.Equal(t, 0, d.processDueReminders(ctx))

	list, err := notifications.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "Reminder: Weekly run", list.Notifications[0].Title)
	assert.Equal(t, env.event.ID, list.Notifications[0].EventID)
}

func TestReminderDispatcherStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	d := NewReminderDispatcher(NewNotificationService(env.store), env.store, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
