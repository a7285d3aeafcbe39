package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"runClubAPI/internal/cache"
	"runClubAPI/internal/store"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
)

const (
	testPhone  = "+919876543210"
	testSecret = "rzp_secret"
)

var fixedNow = time.Date(2025, 3, 9, 6, 30, 0, 0, time.UTC)

type testEnv struct {
	store    *store.MemoryStore
	cache    *cache.Memory
	bookings *BookingService
	tickets  *TicketService
	feed     *fakeFeed
	event    *event.Event
}

type fakeFeed struct {
	published []*booking.Booking
}

func (f *fakeFeed) PublishRedemption(b *booking.Booking) {
	f.published = append(f.published, b)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	c := cache.NewMemory(cache.DashboardTTL)

	require.NoError(t, st.CreateUser(ctx, &user.User{ID: "u1", Name: "Asha", PhoneNumber: testPhone, Email: "asha@example.com"}))

	ev := &event.Event{
		Name:     "Weekly run",
		Date:     time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC),
		Time:     "06:00 AM",
		Location: "Cubbon Park",
		Price:    19900,
		Active:   true,
	}
	id, err := st.SaveEvent(ctx, ev)
	require.NoError(t, err)
	ev.ID = id

	feed := &fakeFeed{}
	bookings := NewBookingService(st, c, NewEligibilityService(st), testSecret)
	bookings.now = func() time.Time { return fixedNow }
	bookings.SetRedemptionPublisher(feed)

	tickets := NewTicketService(st)
	tickets.now = func() time.Time { return fixedNow }

	return &testEnv{store: st, cache: c, bookings: bookings, tickets: tickets, feed: feed, event: ev}
}

func (e *testEnv) addEvent(t *testing.T, name string, price int64) *event.Event {
	t.Helper()
	ev := &event.Event{Name: name, Date: fixedNow.Add(72 * time.Hour), Time: "07:00 AM", Location: "Lalbagh", Price: price, Active: true}
	id, err := e.store.SaveEvent(context.Background(), ev)
	require.NoError(t, err)
	ev.ID = id
	return ev
}

// failingBookings errors on every lookup used by the eligibility check.
type failingBookings struct {
	store.Store
}

var errStoreDown = errors.New("store down")

func (failingBookings) HasBookingForUser(context.Context, string) (bool, error) {
	return false, errStoreDown
}

func (failingBookings) HasBookingForPhone(context.Context, string) (bool, error) {
	return false, errStoreDown
}
