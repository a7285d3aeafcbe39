package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/user"
)

func TestMemoryStoreTrialClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.CreateBooking(ctx, &booking.Booking{UserID: "u1", PhoneNumber: "+911234567890", IsFreeTrial: true, Status: booking.StatusConfirmed})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	claimed, err := s.TrialClaimed(ctx, "+911234567890")
	require.NoError(t, err)
	assert.True(t, claimed)

	// same phone, different user
	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u2", PhoneNumber: "+911234567890", IsFreeTrial: true})
	assert.ErrorIs(t, err, ErrTrialClaimed)

	// same user, different phone
	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u1", PhoneNumber: "+919999999999", IsFreeTrial: true})
	assert.ErrorIs(t, err, ErrTrialClaimed)

	// paid bookings are not trial-checked
	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u1", PhoneNumber: "+911234567890", Amount: 19900})
	assert.NoError(t, err)
}

func TestMemoryStorePaymentClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateBooking(ctx, &booking.Booking{UserID: "u1", EventID: "ev1", Amount: 19900, OrderID: "order_1", PaymentID: "pay_1"})
	require.NoError(t, err)

	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u1", EventID: "ev2", Amount: 50000, OrderID: "order_1", PaymentID: "pay_1"})
	assert.ErrorIs(t, err, ErrPaymentUsed)

	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u1", EventID: "ev2", Amount: 50000, OrderID: "order_2", PaymentID: "pay_2"})
	assert.NoError(t, err)

	list, err := s.ListBookings(ctx, booking.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	b := &booking.Booking{UserID: "u1", EventName: "Weekly run"}
	id, err := s.CreateBooking(ctx, b)
	require.NoError(t, err)

	b.EventName = "changed"
	got, err := s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Weekly run", got.EventName)
	assert.False(t, got.CreatedAt.IsZero())

	got.EventName = "also changed"
	again, err := s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Weekly run", again.EventName)
}

func TestMemoryStoreUpdateBookingStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.CreateBooking(ctx, &booking.Booking{UserID: "u1", Status: booking.StatusConfirmed})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, s.UpdateBookingStatus(ctx, id, booking.StatusUpdate{
		Status: booking.StatusUsed, UpdatedAt: now, UsedAt: &now, UsedBy: "admin1",
	}))

	got, err := s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusUsed, got.Status)
	require.NotNil(t, got.UsedAt)
	assert.Equal(t, "admin1", got.UsedBy)

	later := now.Add(time.Hour)
	err = s.UpdateBookingStatus(ctx, id, booking.StatusUpdate{
		Status: booking.StatusUsed, UpdatedAt: later, UsedAt: &later, UsedBy: "admin2", RequireUnused: true,
	})
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	got, err = s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "admin1", got.UsedBy)

	assert.ErrorIs(t, s.UpdateBookingStatus(ctx, "missing", booking.StatusUpdate{Status: booking.StatusPending}), ErrNotFound)
}

func TestMemoryStoreDeleteUserCascade(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &user.User{ID: "u1", PhoneNumber: "+911111111111"}))
	require.NoError(t, s.CreateUser(ctx, &user.User{ID: "u2"}))

	_, err := s.CreateBooking(ctx, &booking.Booking{UserID: "u1", PhoneNumber: "+911111111111", IsFreeTrial: true})
	require.NoError(t, err)
	_, err = s.CreateBooking(ctx, &booking.Booking{UserID: "u2"})
	require.NoError(t, err)
	_, err = s.CreateNotification(ctx, &notification.Notification{UserID: "u1", Title: "Reminder"})
	require.NoError(t, err)
	_, err = s.IncrementStats(ctx, "u1", 1, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.UnlockAchievement(ctx, achievement.UserAchievement{UserID: "u1", AchievementID: "first-run"}))

	require.NoError(t, s.DeleteUserCascade(ctx, "u1"))

	_, err = s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	owned, err := s.ListBookings(ctx, booking.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, owned)

	others, err := s.ListBookings(ctx, booking.Filter{UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, others, 1)

	notes, err := s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, notes)

	st, err := s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, st.EventsAttended)

	achievements, err := s.ListAchievements(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, achievements)

	// the phone stays disqualified after deletion
	claimed, err := s.TrialClaimed(ctx, "+911111111111")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryStoreNotifications(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.CreateNotification(ctx, &notification.Notification{UserID: "u1", Title: "Run tomorrow"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u2", id), ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, "u1", id))

	list, err := s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestMemoryStoreDeviceTokens(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.AddDeviceToken(ctx, "ghost", "tok"), ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, &user.User{ID: "u1"}))
	require.NoError(t, s.AddDeviceToken(ctx, "u1", "tok"))
	require.NoError(t, s.AddDeviceToken(ctx, "u1", "tok"))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, u.DeviceTokens)

	assert.ErrorIs(t, s.CreateUser(ctx, &user.User{ID: "u1"}), ErrUserExists)
}
