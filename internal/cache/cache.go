package cache

import (
	"context"
	"errors"
	"time"

	"runClubAPI/internal/types/booking"
)

// DashboardTTL matches the dashboard polling period.
const DashboardTTL = 30 * time.Second

var ErrMiss = errors.New("cache miss")

// BookingCache holds the last-known booking list per user and the one-shot
// "new booking" flag shown by the dashboard.
type BookingCache interface {
	GetBookings(ctx context.Context, userID string) ([]*booking.Booking, error)
	SetBookings(ctx context.Context, userID string, bookings []*booking.Booking) error
	Invalidate(ctx context.Context, userID string) error
	SetNewBookingFlag(ctx context.Context, userID, bookingID string) error
	// ConsumeNewBookingFlag returns the flagged booking ID and clears the flag.
	// ok is false when no flag was set.
	ConsumeNewBookingFlag(ctx context.Context, userID string) (bookingID string, ok bool, err error)
}

func bookingsKey(userID string) string { return "bookings:" + userID }
func newBookingKey(userID string) string { return "new-booking:" + userID }
