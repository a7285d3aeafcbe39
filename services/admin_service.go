package services

import (
	"context"
	"fmt"
	"strings"

	"runClubAPI/internal/store"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/user"
)

type AdminService struct {
	store store.Store
	users *UserService
}

func NewAdminService(st store.Store, users *UserService) *AdminService {
	return &AdminService{store: st, users: users}
}

// ListUsers returns users whose name, phone or email contains query.
func (s *AdminService) ListUsers(ctx context.Context, query string, limit int) ([]*user.User, error) {
	all, err := s.store.ListUsers(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]*user.User, 0, len(all))
	for _, u := range all {
		if query != "" &&
			!strings.Contains(strings.ToLower(u.Name), query) &&
			!strings.Contains(u.PhoneNumber, query) &&
			!strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	return s.users.DeleteUser(ctx, userID)
}

func (s *AdminService) ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	bookings, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*booking.Booking{}
	}
	return bookings, nil
}
