package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"runClubAPI/internal/stats"
	"runClubAPI/internal/store"
	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/booking"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var bookingCSVHeader = []string{
	"id", "userId", "userName", "phoneNumber", "userEmail", "eventId", "eventName", "eventDate",
	"eventTime", "eventLocation", "status", "isFreeTrial", "amount", "paymentMethod", "paymentId",
	"orderId", "createdAt", "updatedAt", "usedAt", "usedBy",
}

type AnalyticsService struct {
	store store.Store
	now   func() time.Time
}

func NewAnalyticsService(st store.Store) *AnalyticsService {
	return &AnalyticsService{store: st, now: time.Now}
}

// Analytics aggregates the whole user and booking collections.
func (s *AnalyticsService) Analytics(ctx context.Context) (*stats.Analytics, error) {
	users, err := s.store.ListUsers(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	bookings, err := s.store.ListBookings(ctx, booking.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	a := &stats.Analytics{
		TotalUsers:    len(users),
		TotalBookings: len(bookings),
		ByStatus:      map[string]int{},
		ByEvent:       []stats.EventCount{},
		GeneratedAt:   s.now().UTC(),
	}
	for _, u := range users {
		if u.JoinCrew {
			a.CrewMembers++
		}
	}

	byEvent := map[string]*stats.EventCount{}
	for _, b := range bookings {
		a.ByStatus[string(b.Status)]++
		if b.IsFreeTrial {
			a.FreeTrials++
		} else {
			a.PaidBookings++
			if b.Status != booking.StatusCancelled {
				a.Revenue += b.Amount
			}
		}

		ec, ok := byEvent[b.EventID]
		if !ok {
			ec = &stats.EventCount{EventID: b.EventID, EventName: b.EventName}
			byEvent[b.EventID] = ec
		}
		ec.Bookings++
		if b.Status == booking.StatusUsed {
			ec.Attended++
		}
	}

	for _, ec := range byEvent {
		a.ByEvent = append(a.ByEvent, *ec)
	}
	sort.Slice(a.ByEvent, func(i, j int) bool {
		if a.ByEvent[i].Bookings != a.ByEvent[j].Bookings {
			return a.ByEvent[i].Bookings > a.ByEvent[j].Bookings
		}
		return a.ByEvent[i].EventID < a.ByEvent[j].EventID
	})
	return a, nil
}

// ExportBookings writes the filtered bookings to w as CSV or JSON.
func (s *AnalyticsService) ExportBookings(ctx context.Context, f booking.Filter, format string, w io.Writer) error {
	bookings, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*booking.Booking{}
	}

	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(bookings)
	case FormatCSV:
		return writeBookingsCSV(w, bookings)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

func writeBookingsCSV(w io.Writer, bookings []*booking.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bookingCSVHeader); err != nil {
		return err
	}

	for _, b := range bookings {
		usedAt := ""
		if b.UsedAt != nil {
			usedAt = timestamp.FormatISO(*b.UsedAt)
		}
		record := []string{
			b.ID, b.UserID, b.UserName, b.PhoneNumber, b.UserEmail, b.EventID, b.EventName,
			isoOrEmpty(b.EventDate), b.EventTime, b.EventLocation, string(b.Status),
			strconv.FormatBool(b.IsFreeTrial), strconv.FormatInt(b.Amount, 10), b.PaymentMethod,
			b.PaymentID, b.OrderID, isoOrEmpty(b.CreatedAt), isoOrEmpty(b.UpdatedAt), usedAt, b.UsedBy,
		}
		for i := range record {
			record[i] = csvSafe(record[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvSafe stops spreadsheets from evaluating a cell as a formula.
func csvSafe(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return timestamp.FormatISO(t)
}
