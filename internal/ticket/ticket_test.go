package ticket

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/user"
)

var generatedAt = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func sampleBooking() *booking.Booking {
	return &booking.Booking{
		ID:            "abc123",
		UserID:        "u1",
		UserName:      "Asha",
		PhoneNumber:   "+919876543210",
		EventID:       "ev1",
		EventName:     "Weekly run",
		EventDate:     time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC),
		EventTime:     "06:00 AM",
		EventLocation: "Cubbon Park",
		Status:        booking.StatusConfirmed,
		IsFreeTrial:   true,
		CreatedAt:     time.Date(2025, 3, 9, 6, 30, 0, 0, time.UTC),
	}
}

func TestEncode(t *testing.T) {
	p := Encode(sampleBooking(), &user.User{ID: "u1", Name: "Asha R", Email: "asha@example.com"}, generatedAt)

	assert.Equal(t, "abc123", p.ID)
	assert.Equal(t, "Weekly run", p.Event)
	assert.Equal(t, "2025-03-15T00:30:00.000Z", p.Date)
	assert.Equal(t, "Asha R", p.User)
	assert.Equal(t, "asha@example.com", p.UserEmail)
	assert.Equal(t, "+919876543210", p.PhoneNumber)
	assert.Equal(t, "2025-03-09T06:30:00.000Z", p.BookingDate)
	assert.Equal(t, TypeFreeTrial, p.TicketType)
	assert.Equal(t, "2025-03-10T08:00:00.000Z", p.GeneratedAt)
	assert.Equal(t, Version, p.Version)
}

func TestEncodePlaceholders(t *testing.T) {
	p := Encode(&booking.Booking{}, nil, generatedAt)

	assert.Equal(t, NA, p.ID)
	assert.Equal(t, NoEvent, p.Event)
	assert.Equal(t, NoDate, p.Date)
	assert.Equal(t, NoTime, p.Time)
	assert.Equal(t, NoLocation, p.Location)
	assert.Equal(t, NoUser, p.User)
	assert.Equal(t, NA, p.UserEmail)
	assert.Equal(t, NA, p.PhoneNumber)
	assert.Equal(t, NoDate, p.BookingDate)
	assert.Equal(t, TypePaid, p.TicketType)
	assert.False(t, p.HasBookingID())
}

func TestRoundTrip(t *testing.T) {
	spaces := sampleBooking()
	spaces.EventTime = "   "
	spaces.EventLocation = "\t"
	spaces.UserName = " "

	for _, b := range []*booking.Booking{sampleBooking(), {}, spaces} {
		p := Encode(b, nil, generatedAt)
		data, err := Marshal(p)
		require.NoError(t, err)

		got := Decode(string(data))
		assert.False(t, got.IsFallback())
		assert.Equal(t, p, got)
	}
}

func TestDecodeTolerantFields(t *testing.T) {
	text := `{
		"id": 42,
		"event": "Hill repeats",
		"date": {"seconds": 1741501800, "nanoseconds": 0},
		"bookingDate": "2025-03-09",
		"isFreeTrial": "true",
		"status": ""
	}`

	p := Decode(text)
	assert.False(t, p.IsFallback())
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Hill repeats", p.Event)
	assert.Equal(t, "2025-03-09T06:30:00.000Z", p.Date)
	assert.Equal(t, "2025-03-09T00:00:00.000Z", p.BookingDate)
	assert.True(t, p.IsFreeTrial)
	assert.Equal(t, TypeFreeTrial, p.TicketType)
	assert.Equal(t, NA, p.Status)
	assert.Equal(t, NoTime, p.Time)
	assert.Equal(t, NoLocation, p.Location)
	assert.Equal(t, NA, p.Version)
}

func TestDecodeNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		"BOOKING-abc123",
		"[1,2,3]",
		`"just a string"`,
		"null",
		`{"id": "abc"`,
		`{"id": "a"} {"id": "b"}`,
		"\x00\xff\xfe",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var p Payload
			require.NotPanics(t, func() { p = Decode(in) })

			assert.True(t, p.IsFallback())
			assert.Equal(t, in, p.Raw)
			assert.Equal(t, NA, p.ID)
			assert.Equal(t, NoEvent, p.Event)
			assert.Equal(t, NoDate, p.Date)
			assert.Equal(t, NoTime, p.Time)
			assert.Equal(t, NoLocation, p.Location)
			assert.Equal(t, NoUser, p.User)
			assert.False(t, p.HasBookingID())
		})
	}
}

func TestQRRoundTrip(t *testing.T) {
	p := Encode(sampleBooking(), nil, generatedAt)

	img, err := QRPNG(p, 512)
	require.NoError(t, err)

	text, err := ScanImage(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, p, Decode(text))
}

func TestScanImageNoCode(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range white.Pix {
		white.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, white))

	_, err := ScanImage(&buf)
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = ScanImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCode)
}

func TestPDF(t *testing.T) {
	data, err := PDF(Encode(sampleBooking(), nil, generatedAt))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", DataURL([]byte{1, 2}))
}
