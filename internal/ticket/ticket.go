// Package ticket builds the flat ticket payload embedded in booking QR codes
// and reads it back from scanned or pasted text.
package ticket

const Version = "1.0"

const (
	TypeFreeTrial = "free-trial"
	TypePaid      = "paid"
)

// Placeholders rendered for absent or unreadable fields.
const (
	NoDate     = "Date not available"
	NoTime     = "Time not available"
	NoLocation = "Location not available"
	NoEvent    = "Unknown event"
	NoUser     = "Unknown user"
	NA         = "N/A"
)

// Payload is the JSON object carried by a ticket QR code.
type Payload struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	User        string `json:"user"`
	UserID      string `json:"userId"`
	UserEmail   string `json:"userEmail"`
	PhoneNumber string `json:"phoneNumber"`
	EventID     string `json:"eventId"`
	BookingDate string `json:"bookingDate"`
	IsFreeTrial bool   `json:"isFreeTrial"`
	Status      string `json:"status"`
	TicketType  string `json:"ticketType"`
	GeneratedAt string `json:"generatedAt"`
	Version     string `json:"version"`
	// Raw is only set on fallback payloads built from unparseable text.
	Raw string `json:"raw,omitempty"`

	unparsed bool
}

// HasBookingID reports whether the payload names a booking that can be
// looked up.
func (p Payload) HasBookingID() bool {
	return p.ID != "" && p.ID != NA
}

func (p Payload) IsFallback() bool {
	return p.unparsed
}
