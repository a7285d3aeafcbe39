package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/cache"
	"runClubAPI/internal/razorpay"
	"runClubAPI/internal/store"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
)

// RedemptionPublisher is told about every ticket redeemed at the door.
type RedemptionPublisher interface {
	PublishRedemption(b *booking.Booking)
}

// OrderFetcher reads a gateway order back to confirm what was paid for.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

type BookingService struct {
	store         store.Store
	cache         cache.BookingCache
	eligibility   *EligibilityService
	paymentSecret string
	orders        OrderFetcher
	feed          RedemptionPublisher
	now           func() time.Time
}

// NewBookingService wires the booking lifecycle. paymentSecret is the
// Razorpay key secret used to re-check paid booking signatures; when empty
// the signature is only required to be present.
func NewBookingService(st store.Store, c cache.BookingCache, eligibility *EligibilityService, paymentSecret string) *BookingService {
	return &BookingService{
		store:         st,
		cache:         c,
		eligibility:   eligibility,
		paymentSecret: paymentSecret,
		now:           time.Now,
	}
}

func (s *BookingService) SetRedemptionPublisher(p RedemptionPublisher) {
	s.feed = p
}

// SetOrderFetcher enables checking paid bookings against the gateway order's
// amount and event note.
func (s *BookingService) SetOrderFetcher(f OrderFetcher) {
	s.orders = f
}

// checkOrder confirms the order was raised for ev and covers its price.
func (s *BookingService) checkOrder(ctx context.Context, orderID string, ev *event.Event) error {
	if s.orders == nil {
		return nil
	}

	order, err := s.orders.FetchOrder(ctx, orderID)
	if razorpay.IsNotFound(err) {
		return ErrPaymentMismatch
	}
	if err != nil {
		return fmt.Errorf("%w: failed to fetch order: %v", ErrUnavailable, err)
	}

	if order.Notes["eventId"] != ev.ID {
		zap.S().Warnf("order %s was raised for event %q, not %s", orderID, order.Notes["eventId"], ev.ID)
		return ErrPaymentMismatch
	}
	if order.Amount < ev.Price {
		zap.S().Warnf("order %s amount %d is below event %s price %d", orderID, order.Amount, ev.ID, ev.Price)
		return ErrPaymentMismatch
	}
	return nil
}

type CreateBookingParams struct {
	UserID      string
	PhoneNumber string
	EventID     string
	IsFreeTrial bool
	// Preverified skips the eligibility re-check. HTTP callers never set it.
	Preverified bool
	OrderID     string
	PaymentID   string
	Signature   string
}

// Create persists a confirmed booking and returns it as stored.
func (s *BookingService) Create(ctx context.Context, p CreateBookingParams) (*booking.Booking, error) {
	u, err := s.store.GetUser(ctx, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load profile: %v", ErrUnavailable, err)
	}

	phone := p.PhoneNumber
	if phone == "" {
		phone = u.PhoneNumber
	}

	if p.IsFreeTrial && !p.Preverified {
		if result := s.eligibility.Check(ctx, p.UserID, phone); !result.Allowed() {
			zap.S().Infof("free trial refused for user %s: %s", p.UserID, result)
			return nil, ErrNotEligible
		}
	}

	ev, err := s.store.GetEvent(ctx, p.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load event: %v", ErrUnavailable, err)
	}
	if !ev.Active {
		return nil, ErrEventInactive
	}

	now := s.now().UTC()
	b := &booking.Booking{
		UserID:        u.ID,
		UserName:      u.Name,
		UserEmail:     u.Email,
		PhoneNumber:   phone,
		EventID:       ev.ID,
		EventName:     ev.Name,
		EventDate:     ev.Date,
		EventTime:     ev.Time,
		EventLocation: ev.Location,
		Status:        booking.StatusConfirmed,
		IsFreeTrial:   p.IsFreeTrial,
		UpdatedAt:     now,
	}

	if p.IsFreeTrial {
		b.Amount = 0
		b.PaymentMethod = booking.PaymentMethodFreeTrial
	} else {
		if ev.Price <= 0 {
			return nil, ErrEventNotPayable
		}
		if p.OrderID == "" || p.PaymentID == "" || p.Signature == "" {
			return nil, ErrPaymentRequired
		}
		if s.paymentSecret != "" && !razorpay.VerifyPaymentSignature(s.paymentSecret, p.OrderID, p.PaymentID, p.Signature) {
			return nil, ErrInvalidSignature
		}
		if err := s.checkOrder(ctx, p.OrderID, ev); err != nil {
			return nil, err
		}
		b.Amount = ev.Price
		b.PaymentMethod = booking.PaymentMethodRazorpay
		b.OrderID = p.OrderID
		b.PaymentID = p.PaymentID
	}

	id, err := s.store.CreateBooking(ctx, b)
	if errors.Is(err, store.ErrTrialClaimed) {
		return nil, ErrNotEligible
	}
	if errors.Is(err, store.ErrPaymentUsed) {
		zap.S().Warnf("payment %s replayed by user %s for event %s", p.PaymentID, p.UserID, ev.ID)
		return nil, ErrPaymentUsed
	}
	if err != nil {
		zap.S().Errorf("failed to persist booking for user %s: %v", p.UserID, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	created, err := s.store.GetBooking(ctx, id)
	if err != nil {
		zap.S().Errorf("booking %s written but re-read failed: %v", id, err)
		return nil, fmt.Errorf("%w: booking could not be confirmed: %v", ErrUnavailable, err)
	}

	if _, err := s.store.IncrementStats(ctx, u.ID, 1, 0, now); err != nil {
		zap.S().Warnf("failed to update booking stats for %s: %v", u.ID, err)
	}

	if err := s.cache.Invalidate(ctx, u.ID); err != nil {
		zap.S().Warnf("failed to invalidate booking cache for %s: %v", u.ID, err)
	}
	if err := s.cache.SetNewBookingFlag(ctx, u.ID, id); err != nil {
		zap.S().Warnf("failed to set new booking flag for %s: %v", u.ID, err)
	}

	zap.S().Infof("booking %s created for user %s (event %s, freeTrial=%t)", id, u.ID, ev.ID, p.IsFreeTrial)
	return created, nil
}

// ListForUser returns the user's bookings, served from cache when possible.
func (s *BookingService) ListForUser(ctx context.Context, userID string) (*booking.DashboardResponse, error) {
	cached, err := s.cache.GetBookings(ctx, userID)
	if err == nil {
		return &booking.DashboardResponse{Bookings: cached, FromCache: true}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		zap.S().Warnf("booking cache read failed for %s: %v", userID, err)
	}

	bookings, err := s.store.ListBookings(ctx, booking.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*booking.Booking{}
	}

	if err := s.cache.SetBookings(ctx, userID, bookings); err != nil {
		zap.S().Warnf("booking cache write failed for %s: %v", userID, err)
	}
	return &booking.DashboardResponse{Bookings: bookings}, nil
}

// ConsumeNewBooking returns the booking flagged at creation, once.
func (s *BookingService) ConsumeNewBooking(ctx context.Context, userID string) (*booking.Booking, bool, error) {
	id, ok, err := s.cache.ConsumeNewBookingFlag(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read new booking flag: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	b, err := s.store.GetBooking(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load new booking: %w", err)
	}
	return b, true, nil
}

// Get returns a booking visible to the caller. Non-admins only see their own.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string, admin bool) (*booking.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if !admin && b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// SetStatus moves a booking to any valid status. Moves outside the normal
// lifecycle are allowed and logged. A used booking keeps its original entry
// stamps when set to used again.
func (s *BookingService) SetStatus(ctx context.Context, bookingID string, status booking.Status, actorID string) (*booking.Booking, error) {
	return s.setStatus(ctx, bookingID, status, actorID, false)
}

// Redeem marks a ticket used at the door. A ticket that was already used is
// returned unchanged together with ErrTicketUsed.
func (s *BookingService) Redeem(ctx context.Context, bookingID, actorID string) (*booking.Booking, error) {
	return s.setStatus(ctx, bookingID, booking.StatusUsed, actorID, true)
}

func (s *BookingService) setStatus(ctx context.Context, bookingID string, status booking.Status, actorID string, requireUnused bool) (*booking.Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.store.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if requireUnused && current.Status == booking.StatusUsed {
		zap.S().Warnf("booking %s: redeem by %s refused, used at %v by %s", bookingID, actorID, current.UsedAt, current.UsedBy)
		return current, ErrTicketUsed
	}

	if current.Status != status && !booking.IsFlowTransition(current.Status, status) {
		zap.S().Warnf("booking %s: off-flow transition %s -> %s by %s", bookingID, current.Status, status, actorID)
	}

	now := s.now().UTC()
	upd := booking.StatusUpdate{Status: status, UpdatedAt: now, RequireUnused: requireUnused}
	if status == booking.StatusUsed && current.Status != booking.StatusUsed {
		upd.UsedAt = &now
		upd.UsedBy = actorID
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, upd); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrBookingNotFound
		case errors.Is(err, store.ErrAlreadyUsed):
			used, getErr := s.store.GetBooking(ctx, bookingID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to reload booking: %w", getErr)
			}
			return used, ErrTicketUsed
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if err := s.cache.Invalidate(ctx, current.UserID); err != nil {
		zap.S().Warnf("failed to invalidate booking cache for %s: %v", current.UserID, err)
	}

	updated, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}

	if status == booking.StatusUsed && current.Status != booking.StatusUsed {
		s.recordAttendance(ctx, updated.UserID, now)
		if s.feed != nil {
			s.feed.PublishRedemption(updated)
		}
	}

	zap.S().Infof("booking %s: %s -> %s by %s", bookingID, current.Status, status, actorID)
	return updated, nil
}

// Reset returns a booking to pending from any state.
func (s *BookingService) Reset(ctx context.Context, bookingID, actorID string) (*booking.Booking, error) {
	return s.SetStatus(ctx, bookingID, booking.StatusPending, actorID)
}

func (s *BookingService) recordAttendance(ctx context.Context, userID string, at time.Time) {
	st, err := s.store.IncrementStats(ctx, userID, 0, 1, at)
	if err != nil {
		zap.S().Warnf("failed to record attendance for %s: %v", userID, err)
		return
	}

	for _, a := range achievement.Unlocked(st.EventsAttended) {
		ua := achievement.UserAchievement{UserID: userID, AchievementID: a.ID, UnlockedAt: at}
		if err := s.store.UnlockAchievement(ctx, ua); err != nil {
			zap.S().Warnf("failed to unlock achievement %s for %s: %v", a.ID, userID, err)
			continue
		}
		zap.S().Infof("user %s unlocked achievement %s", userID, a.ID)
	}
}
