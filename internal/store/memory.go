package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/stats"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
)

// MemoryStore is an in-process Store used for local runs and tests.
// Values are copied on the way in and out.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	users         map[string]user.User
	bookings      map[string]booking.Booking
	events        map[string]event.Event
	notifications map[string]notification.Notification
	stats         map[string]stats.UserStats
	achievements  map[string]achievement.UserAchievement
	trialClaims   map[string]string
	paymentClaims map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		users:         make(map[string]user.User),
		bookings:      make(map[string]booking.Booking),
		events:        make(map[string]event.Event),
		notifications: make(map[string]notification.Notification),
		stats:         make(map[string]stats.UserStats),
		achievements:  make(map[string]achievement.UserAchievement),
		trialClaims:   make(map[string]string),
		paymentClaims: make(map[string]string),
	}
}

// ============= USERS =============

func (s *MemoryStore) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return ErrUserExists
	}
	cp := *u
	cp.DeviceTokens = append([]string(nil), u.DeviceTokens...)
	s.users[u.ID] = cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.DeviceTokens = append([]string(nil), u.DeviceTokens...)
	return &u, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.users[u.ID]
	cp := *u
	cp.DeviceTokens = existing.DeviceTokens
	s.users[u.ID] = cp
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context, limit int) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		cp := u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *MemoryStore) AddDeviceToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, t := range u.DeviceTokens {
		if t == token {
			return nil
		}
	}
	u.DeviceTokens = append(append([]string(nil), u.DeviceTokens...), token)
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) DeleteUserCascade(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookings {
		if b.UserID == userID {
			delete(s.bookings, id)
		}
	}
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
		}
	}
	for id, a := range s.achievements {
		if a.UserID == userID {
			delete(s.achievements, id)
		}
	}
	delete(s.stats, userID)
	delete(s.users, userID)
	return nil
}

// ============= BOOKINGS =============

func (s *MemoryStore) CreateBooking(_ context.Context, b *booking.Booking) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()

	if b.IsFreeTrial {
		keys := trialClaimKeys(b.PhoneNumber, b.UserID)
		for _, key := range keys {
			if _, claimed := s.trialClaims[key]; claimed {
				return "", ErrTrialClaimed
			}
		}
		for _, key := range keys {
			s.trialClaims[key] = id
		}
	} else if b.PaymentID != "" {
		if _, used := s.paymentClaims[b.PaymentID]; used {
			return "", ErrPaymentUsed
		}
		s.paymentClaims[b.PaymentID] = id
	}

	cp := *b
	cp.ID = id
	cp.CreatedAt = s.now().UTC()
	s.bookings[id] = cp
	return id, nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) ListBookings(_ context.Context, f booking.Filter) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*booking.Booking
	for _, b := range s.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.EventID != "" && b.EventID != f.EventID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		cp := b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) HasBookingForUser(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookings {
		if b.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasBookingForPhone(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookings {
		if b.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) TrialClaimed(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.trialClaims["phone:"+phone]
	return ok, nil
}

func (s *MemoryStore) UpdateBookingStatus(_ context.Context, id string, upd booking.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if upd.RequireUnused && b.Status == booking.StatusUsed {
		return ErrAlreadyUsed
	}
	b.Status = upd.Status
	b.UpdatedAt = upd.UpdatedAt
	if upd.UsedAt != nil {
		at := *upd.UsedAt
		b.UsedAt = &at
		b.UsedBy = upd.UsedBy
	}
	s.bookings[id] = b
	return nil
}

// ============= EVENTS =============

func (s *MemoryStore) ListEvents(_ context.Context, activeOnly bool) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*event.Event
	for _, e := range s.events {
		if activeOnly && !e.Active {
			continue
		}
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) SaveEvent(_ context.Context, e *event.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.events[cp.ID] = cp
	return cp.ID, nil
}

// ============= NOTIFICATIONS =============

func (s *MemoryStore) CreateNotification(_ context.Context, n *notification.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	cp.ID = uuid.NewString()
	s.notifications[cp.ID] = cp
	return cp.ID, nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID string) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*notification.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

// ============= STATISTICS =============

func (s *MemoryStore) GetStats(_ context.Context, userID string) (*stats.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	if !ok {
		return &stats.UserStats{UserID: userID}, nil
	}
	return &st, nil
}

func (s *MemoryStore) IncrementStats(_ context.Context, userID string, booked, attended int, at time.Time) (*stats.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats[userID]
	st.UserID = userID
	st.EventsBooked += booked
	st.EventsAttended += attended
	if attended > 0 {
		t := at
		st.LastAttendedAt = &t
	}
	s.stats[userID] = st

	out := st
	return &out, nil
}

func (s *MemoryStore) UnlockAchievement(_ context.Context, ua achievement.UserAchievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ua.UserID + "_" + ua.AchievementID
	if _, ok := s.achievements[key]; !ok {
		s.achievements[key] = ua
	}
	return nil
}

func (s *MemoryStore) ListAchievements(_ context.Context, userID string) ([]achievement.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []achievement.UserAchievement{}
	for _, a := range s.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}
