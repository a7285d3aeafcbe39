package cache

import (
	"context"
	"sync"
	"time"

	"runClubAPI/internal/types/booking"
)

type memoryEntry struct {
	bookings  []booking.Booking
	expiresAt time.Time
}

// Memory is a process-local BookingCache.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	lists map[string]memoryEntry
	flags map[string]string
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:   ttl,
		now:   time.Now,
		lists: make(map[string]memoryEntry),
		flags: make(map[string]string),
	}
}

func (m *Memory) GetBookings(_ context.Context, userID string) ([]*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lists[bookingsKey(userID)]
	if !ok {
		return nil, ErrMiss
	}
	if m.now().After(entry.expiresAt) {
		delete(m.lists, bookingsKey(userID))
		return nil, ErrMiss
	}

	out := make([]*booking.Booking, len(entry.bookings))
	for i := range entry.bookings {
		b := entry.bookings[i]
		out[i] = &b
	}
	return out, nil
}

func (m *Memory) SetBookings(_ context.Context, userID string, bookings []*booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]booking.Booking, len(bookings))
	for i, b := range bookings {
		copied[i] = *b
	}
	m.lists[bookingsKey(userID)] = memoryEntry{bookings: copied, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lists, bookingsKey(userID))
	return nil
}

func (m *Memory) SetNewBookingFlag(_ context.Context, userID, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[newBookingKey(userID)] = bookingID
	return nil
}

func (m *Memory) ConsumeNewBookingFlag(_ context.Context, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.flags[newBookingKey(userID)]
	delete(m.flags, newBookingKey(userID))
	return id, ok, nil
}
