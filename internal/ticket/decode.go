package ticket

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"runClubAPI/internal/timestamp"
)

// Decode parses scanned or pasted ticket text. It never fails: text that is
// not a JSON object yields Fallback(text), and each field is read tolerantly.
func Decode(text string) Payload {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil || dec.More() {
		return Fallback(text)
	}

	isFreeTrial := readBool(m, "isFreeTrial")
	ticketType := readString(m, "ticketType", "")
	if ticketType == "" {
		ticketType = TypePaid
		if isFreeTrial {
			ticketType = TypeFreeTrial
		}
	}

	return Payload{
		ID:          readString(m, "id", NA),
		Event:       readString(m, "event", NoEvent),
		Date:        readDate(m, "date", NoDate),
		Time:        readString(m, "time", NoTime),
		Location:    readString(m, "location", NoLocation),
		User:        readString(m, "user", NoUser),
		UserID:      readString(m, "userId", NA),
		UserEmail:   readString(m, "userEmail", NA),
		PhoneNumber: readString(m, "phoneNumber", NA),
		EventID:     readString(m, "eventId", NA),
		BookingDate: readDate(m, "bookingDate", NoDate),
		IsFreeTrial: isFreeTrial,
		Status:      readString(m, "status", NA),
		TicketType:  ticketType,
		GeneratedAt: readDate(m, "generatedAt", NoDate),
		Version:     readString(m, "version", NA),
	}
}

// Fallback wraps unparseable text in a payload with every field placeholder-valued.
func Fallback(text string) Payload {
	return Payload{
		ID:          NA,
		Event:       NoEvent,
		Date:        NoDate,
		Time:        NoTime,
		Location:    NoLocation,
		User:        NoUser,
		UserID:      NA,
		UserEmail:   NA,
		PhoneNumber: NA,
		EventID:     NA,
		BookingDate: NoDate,
		Status:      NA,
		TicketType:  NA,
		GeneratedAt: NoDate,
		Version:     NA,
		Raw:         text,
		unparsed:    true,
	}
}

func readString(m map[string]any, key, placeholder string) string {
	switch v := m[key].(type) {
	case string:
		if !blank(v) {
			return v
		}
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return placeholder
}

func readBool(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case json.Number:
		n, err := v.Int64()
		return err == nil && n != 0
	}
	return false
}

func readDate(m map[string]any, key, placeholder string) string {
	v := timestamp.Normalize(m[key])
	if v.Kind == timestamp.Unrecognized {
		// keep human-entered strings such as "Saturday 6am" as they are
		if s, ok := m[key].(string); ok && !blank(s) {
			return s
		}
	}
	return timestamp.FormatOr(v, placeholder)
}
