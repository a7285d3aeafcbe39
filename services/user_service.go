package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/cache"
	"runClubAPI/internal/identity"
	"runClubAPI/internal/stats"
	"runClubAPI/internal/store"
	"runClubAPI/internal/types/user"
)

type UserService struct {
	store    store.Store
	cache    cache.BookingCache
	accounts identity.AccountDeleter
	now      func() time.Time
}

func NewUserService(st store.Store, c cache.BookingCache) *UserService {
	return &UserService{store: st, cache: c, now: time.Now}
}

// SetAccountDeleter makes DeleteUser also remove the identity-provider account.
func (s *UserService) SetAccountDeleter(d identity.AccountDeleter) {
	s.accounts = d
}

type ProfileStats struct {
	Stats        *stats.UserStats              `json:"stats"`
	Achievements []achievement.UserAchievement `json:"achievements"`
}

// CreateUser stores the profile filled in after the first OTP confirmation.
// The phone number always comes from the verified identity.
func (s *UserService) CreateUser(ctx context.Context, id *identity.Identity, req *user.CreateUserRequest) (*user.User, error) {
	now := s.now().UTC()
	email := req.Email
	if email == "" {
		email = id.Email
	}

	u := &user.User{
		ID:               id.UID,
		Name:             strings.TrimSpace(req.Name),
		PhoneNumber:      id.PhoneNumber,
		Email:            email,
		Profession:       req.Profession,
		Gender:           req.Gender,
		DateOfBirth:      req.DateOfBirth,
		EmergencyContact: req.EmergencyContact,
		Instagram:        strings.TrimPrefix(req.Instagram, "@"),
		JoinCrew:         req.JoinCrew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *user.UpdateProfileRequest) (*user.User, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Profession != nil {
		u.Profession = *req.Profession
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = *req.DateOfBirth
	}
	if req.EmergencyContact != nil {
		u.EmergencyContact = *req.EmergencyContact
	}
	if req.Instagram != nil {
		u.Instagram = strings.TrimPrefix(*req.Instagram, "@")
	}
	if req.JoinCrew != nil {
		u.JoinCrew = *req.JoinCrew
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

// DeleteUser removes the profile with its bookings, notifications, statistics
// and achievements. Trial claims survive so the phone stays disqualified.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	if err := s.store.DeleteUserCascade(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		zap.S().Warnf("failed to invalidate booking cache for %s: %v", userID, err)
	}
	_, _, _ = s.cache.ConsumeNewBookingFlag(ctx, userID)

	if s.accounts != nil {
		if err := s.accounts.DeleteAccount(ctx, userID); err != nil {
			return err
		}
	}

	zap.S().Infof("user %s deleted", userID)
	return nil
}

func (s *UserService) GetStats(ctx context.Context, userID string) (*ProfileStats, error) {
	st, err := s.store.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	achievements, err := s.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return &ProfileStats{Stats: st, Achievements: achievements}, nil
}
