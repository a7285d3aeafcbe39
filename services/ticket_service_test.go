package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/ticket"
	"runClubAPI/internal/types/booking"
)

func TestIssueTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.bookings.Create(ctx, CreateBookingParams{UserID: "u1", PhoneNumber: testPhone, EventID: env.event.ID, IsFreeTrial: true})
	require.NoError(t, err)

	resp, err := env.tickets.Issue(ctx, "u1", b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, b.ID, resp.Ticket.ID)
	assert.Equal(t, "Weekly run", resp.Ticket.Event)
	assert.Equal(t, "Asha", resp.Ticket.User)
	assert.Equal(t, ticket.TypeFreeTrial, resp.Ticket.TicketType)
	assert.Contains(t, resp.QRCode, "data:image/png;base64,")

	_, err = env.tickets.Issue(ctx, "intruder", b.ID, false)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	pdf, err := env.tickets.PDF(ctx, "admin", b.ID, true)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestVerifyPrefersStoredValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.bookings.Create(ctx, CreateBookingParams{UserID: "u1", PhoneNumber: testPhone, EventID: env.event.ID, IsFreeTrial: true})
	require.NoError(t, err)

	result := env.tickets.Verify(ctx, `{"id":"`+b.ID+`","event":"Old run name","location":"Somewhere"}`)
	assert.Equal(t, SourceStore, result.Source)
	assert.True(t, result.BookingFound)
	assert.False(t, result.Unparsed)
	assert.Equal(t, "Weekly run", result.Ticket.Event)
	assert.Equal(t, "Cubbon Park", result.Ticket.Location)
	assert.Equal(t, string(booking.StatusConfirmed), result.Ticket.Status)
	require.NotNil(t, result.Booking)
	assert.Equal(t, b.ID, result.Booking.ID)
}

func TestVerifyUnknownBookingUsesScannedData(t *testing.T) {
	env := newTestEnv(t)

	result := env.tickets.Verify(context.Background(), `{"id":"abc123","event":"Weekly run"}`)
	assert.Equal(t, SourceScan, result.Source)
	assert.False(t, result.BookingFound)
	assert.Equal(t, "abc123", result.Ticket.ID)
	assert.Equal(t, "Weekly run", result.Ticket.Event)
	assert.Equal(t, ticket.NoLocation, result.Ticket.Location)
	assert.Nil(t, result.Booking)
}

func TestVerifyUnparseableText(t *testing.T) {
	env := newTestEnv(t)

	result := env.tickets.Verify(context.Background(), "not a ticket")
	assert.Equal(t, SourceScan, result.Source)
	assert.True(t, result.Unparsed)
	assert.False(t, result.BookingFound)
	assert.Equal(t, "not a ticket", result.Ticket.Raw)
}

func TestScanTicketImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.bookings.Create(ctx, CreateBookingParams{UserID: "u1", PhoneNumber: testPhone, EventID: env.event.ID, IsFreeTrial: true})
	require.NoError(t, err)

	issued, err := env.tickets.Issue(ctx, "u1", b.ID, false)
	require.NoError(t, err)

	png, err := ticket.QRPNG(issued.Ticket, 512)
	require.NoError(t, err)

	result, err := env.tickets.Scan(ctx, bytes.NewReader(png))
	require.NoError(t, err)
	assert.True(t, result.BookingFound)
	assert.Equal(t, b.ID, result.Ticket.ID)
}
