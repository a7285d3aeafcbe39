package store

import (
	"context"
	"errors"
	"time"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/stats"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrTrialClaimed is returned by CreateBooking when the phone number or
	// user already holds a free-trial claim.
	ErrTrialClaimed = errors.New("free trial already claimed")
	// ErrPaymentUsed is returned by CreateBooking when the payment already
	// backs another booking.
	ErrPaymentUsed = errors.New("payment already used")
	// ErrAlreadyUsed is returned by UpdateBookingStatus for a RequireUnused
	// update of a used booking.
	ErrAlreadyUsed = errors.New("booking already used")
	ErrUserExists  = errors.New("user already exists")
)

// Collection names shared by every backend.
const (
	colUsers         = "users"
	colBookings      = "bookings"
	colEvents        = "events"
	colNotifications = "notifications"
	colStatistics    = "statistics"
	colAchievements  = "achievements"
	colTrialClaims   = "trialClaims"
	colPaymentClaims = "paymentClaims"
)

type Users interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	ListUsers(ctx context.Context, limit int) ([]*user.User, error)
	AddDeviceToken(ctx context.Context, userID, token string) error
	// DeleteUserCascade removes the user with their bookings, notifications,
	// statistics and achievements. Trial claims are kept.
	DeleteUserCascade(ctx context.Context, userID string) error
}

type Bookings interface {
	// CreateBooking persists b and returns the new ID. Free-trial bookings are
	// written together with their trial claims, and paid bookings with a claim
	// on their payment ID, in one transaction.
	CreateBooking(ctx context.Context, b *booking.Booking) (string, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error)
	HasBookingForUser(ctx context.Context, userID string) (bool, error)
	HasBookingForPhone(ctx context.Context, phone string) (bool, error)
	TrialClaimed(ctx context.Context, phone string) (bool, error)
	UpdateBookingStatus(ctx context.Context, id string, upd booking.StatusUpdate) error
}

type Events interface {
	ListEvents(ctx context.Context, activeOnly bool) ([]*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	// SaveEvent creates the event when e.ID is empty, otherwise overwrites it.
	SaveEvent(ctx context.Context, e *event.Event) (string, error)
}

type Notifications interface {
	CreateNotification(ctx context.Context, n *notification.Notification) (string, error)
	ListNotifications(ctx context.Context, userID string) ([]*notification.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

type Statistics interface {
	// GetStats returns zero-valued stats for users without a document.
	GetStats(ctx context.Context, userID string) (*stats.UserStats, error)
	IncrementStats(ctx context.Context, userID string, booked, attended int, at time.Time) (*stats.UserStats, error)
	UnlockAchievement(ctx context.Context, ua achievement.UserAchievement) error
	ListAchievements(ctx context.Context, userID string) ([]achievement.UserAchievement, error)
}

// Store is the typed document-store client used by the services.
type Store interface {
	Users
	Bookings
	Events
	Notifications
	Statistics
}

func trialClaimKeys(phone, userID string) []string {
	var keys []string
	if phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	if userID != "" {
		keys = append(keys, "user:"+userID)
	}
	return keys
}
