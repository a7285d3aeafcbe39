package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"runClubAPI/internal/store"
)

// Eligibility is the outcome of a free-trial check.
type Eligibility int

const (
	Ineligible Eligibility = iota
	Eligible
	// CheckFailed means the lookup errored. It is never treated as eligible.
	CheckFailed
)

func (e Eligibility) String() string {
	switch e {
	case Eligible:
		return "eligible"
	case CheckFailed:
		return "check_failed"
	default:
		return "ineligible"
	}
}

func (e Eligibility) Allowed() bool {
	return e == Eligible
}

type EligibilityService struct {
	bookings store.Bookings
}

func NewEligibilityService(bookings store.Bookings) *EligibilityService {
	return &EligibilityService{bookings: bookings}
}

// Check reports whether userID and phone may still claim a free trial: no
// booking may exist for either, and the phone must never have held a claim.
func (s *EligibilityService) Check(ctx context.Context, userID, phone string) Eligibility {
	phone = strings.TrimSpace(phone)
	if phone == "" || userID == "" {
		return Ineligible
	}

	byUser, err := s.bookings.HasBookingForUser(ctx, userID)
	if err != nil {
		zap.S().Errorf("eligibility: user lookup failed for %s: %v", userID, err)
		return CheckFailed
	}
	if byUser {
		return Ineligible
	}

	byPhone, err := s.bookings.HasBookingForPhone(ctx, phone)
	if err != nil {
		zap.S().Errorf("eligibility: phone lookup failed for %s: %v", userID, err)
		return CheckFailed
	}
	if byPhone {
		return Ineligible
	}

	claimed, err := s.bookings.TrialClaimed(ctx, phone)
	if err != nil {
		zap.S().Errorf("eligibility: trial claim lookup failed for %s: %v", userID, err)
		return CheckFailed
	}
	if claimed {
		return Ineligible
	}

	return Eligible
}
