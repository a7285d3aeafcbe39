package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"runClubAPI/internal/store"
	"runClubAPI/internal/ticket"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/user"
)

const (
	SourceStore = "store"
	SourceScan  = "scan"
)

type TicketResponse struct {
	Ticket ticket.Payload `json:"ticket"`
	QRCode string         `json:"qrCode"`
}

type VerifyResult struct {
	Ticket       ticket.Payload   `json:"ticket"`
	Source       string           `json:"source"`
	BookingFound bool             `json:"bookingFound"`
	Unparsed     bool             `json:"unparsed"`
	Booking      *booking.Booking `json:"booking,omitempty"`
}

type TicketService struct {
	store store.Store
	now   func() time.Time
}

func NewTicketService(st store.Store) *TicketService {
	return &TicketService{store: st, now: time.Now}
}

// Issue builds the ticket payload and QR data URL for a booking the caller can see.
func (s *TicketService) Issue(ctx context.Context, userID, bookingID string, admin bool) (*TicketResponse, error) {
	p, err := s.payload(ctx, userID, bookingID, admin)
	if err != nil {
		return nil, err
	}

	png, err := ticket.QRPNG(p, ticket.DefaultQRSize)
	if err != nil {
		return nil, err
	}
	return &TicketResponse{Ticket: p, QRCode: ticket.DataURL(png)}, nil
}

func (s *TicketService) PDF(ctx context.Context, userID, bookingID string, admin bool) ([]byte, error) {
	p, err := s.payload(ctx, userID, bookingID, admin)
	if err != nil {
		return nil, err
	}
	return ticket.PDF(p)
}

func (s *TicketService) payload(ctx context.Context, userID, bookingID string, admin bool) (ticket.Payload, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return ticket.Payload{}, ErrBookingNotFound
	}
	if err != nil {
		return ticket.Payload{}, fmt.Errorf("failed to load booking: %w", err)
	}
	if !admin && b.UserID != userID {
		return ticket.Payload{}, ErrBookingNotFound
	}

	return ticket.Encode(b, s.owner(ctx, b.UserID), s.now()), nil
}

func (s *TicketService) owner(ctx context.Context, userID string) *user.User {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.S().Warnf("ticket: failed to load user %s: %v", userID, err)
		}
		return nil
	}
	return u
}

// Verify decodes scanned or pasted text. When it names a booking that can be
// loaded, stored values win over scanned ones; otherwise the scanned fields
// are returned as they are.
func (s *TicketService) Verify(ctx context.Context, text string) *VerifyResult {
	scanned := ticket.Decode(text)
	result := &VerifyResult{Ticket: scanned, Source: SourceScan, Unparsed: scanned.IsFallback()}

	if !scanned.HasBookingID() {
		return result
	}

	b, err := s.store.GetBooking(ctx, scanned.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.S().Warnf("ticket verify: lookup of %s failed, using scanned data: %v", scanned.ID, err)
		}
		return result
	}

	stored := ticket.Encode(b, s.owner(ctx, b.UserID), s.now())
	result.Ticket = reconcile(scanned, stored)
	result.Source = SourceStore
	result.BookingFound = true
	result.Booking = b
	return result
}

// Scan reads a QR code out of an uploaded image and verifies it.
func (s *TicketService) Scan(ctx context.Context, img io.Reader) (*VerifyResult, error) {
	text, err := ticket.ScanImage(img)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, text), nil
}

// reconcile prefers stored over scanned wherever the stored value is present.
func reconcile(scanned, stored ticket.Payload) ticket.Payload {
	out := scanned
	pick := func(dst *string, storedValue string, placeholder string) {
		if storedValue != "" && storedValue != placeholder {
			*dst = storedValue
		}
	}

	pick(&out.ID, stored.ID, ticket.NA)
	pick(&out.Event, stored.Event, ticket.NoEvent)
	pick(&out.Date, stored.Date, ticket.NoDate)
	pick(&out.Time, stored.Time, ticket.NoTime)
	pick(&out.Location, stored.Location, ticket.NoLocation)
	pick(&out.User, stored.User, ticket.NoUser)
	pick(&out.UserID, stored.UserID, ticket.NA)
	pick(&out.UserEmail, stored.UserEmail, ticket.NA)
	pick(&out.PhoneNumber, stored.PhoneNumber, ticket.NA)
	pick(&out.EventID, stored.EventID, ticket.NA)
	pick(&out.BookingDate, stored.BookingDate, ticket.NoDate)
	pick(&out.Status, stored.Status, ticket.NA)
	pick(&out.TicketType, stored.TicketType, ticket.NA)
	out.IsFreeTrial = stored.IsFreeTrial
	return out
}
