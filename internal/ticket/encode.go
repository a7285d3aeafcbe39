package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/user"
)

// Encode projects a booking and its owner into a ticket payload. u may be
// nil, in which case the booking's own snapshot of the user is used.
func Encode(b *booking.Booking, u *user.User, now time.Time) Payload {
	name, email, phone := b.UserName, b.UserEmail, b.PhoneNumber
	if u != nil {
		name = firstNonEmpty(u.Name, name)
		email = firstNonEmpty(u.Email, email)
		phone = firstNonEmpty(u.PhoneNumber, phone)
	}

	ticketType := TypePaid
	if b.IsFreeTrial {
		ticketType = TypeFreeTrial
	}

	return Payload{
		ID:          or(b.ID, NA),
		Event:       or(b.EventName, NoEvent),
		Date:        formatTime(b.EventDate, NoDate),
		Time:        or(b.EventTime, NoTime),
		Location:    or(b.EventLocation, NoLocation),
		User:        or(name, NoUser),
		UserID:      or(b.UserID, NA),
		UserEmail:   or(email, NA),
		PhoneNumber: or(phone, NA),
		EventID:     or(b.EventID, NA),
		BookingDate: formatTime(b.CreatedAt, NoDate),
		IsFreeTrial: b.IsFreeTrial,
		Status:      or(string(b.Status), NA),
		TicketType:  ticketType,
		GeneratedAt: timestamp.FormatISO(now),
		Version:     Version,
	}
}

// Marshal renders the payload as the compact JSON text put in the QR code.
func Marshal(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket payload: %w", err)
	}
	return data, nil
}

func formatTime(t time.Time, placeholder string) string {
	if t.IsZero() {
		return placeholder
	}
	return timestamp.FormatISO(t)
}

// blank reports whether a text field counts as missing.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func or(s, placeholder string) string {
	if blank(s) {
		return placeholder
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if !blank(v) {
			return v
		}
	}
	return ""
}
