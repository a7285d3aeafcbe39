package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusUsed      Status = "used"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusUsed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// flow lists the transitions of the normal booking lifecycle. Admins may move
// a booking anywhere; moves outside this table are permitted but logged.
var flow = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusUsed, StatusCancelled},
}

// IsFlowTransition reports whether from -> to is part of the normal lifecycle.
func IsFlowTransition(from, to Status) bool {
	for _, next := range flow[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	PaymentMethodFreeTrial = "free_trial"
	PaymentMethodRazorpay  = "razorpay"
)

type Booking struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	UserName      string     `json:"userName"`
	UserEmail     string     `json:"userEmail,omitempty"`
	PhoneNumber   string     `json:"phoneNumber"`
	EventID       string     `json:"eventId"`
	EventName     string     `json:"eventName"`
	EventDate     time.Time  `json:"eventDate"`
	EventTime     string     `json:"eventTime"`
	EventLocation string     `json:"eventLocation"`
	Status        Status     `json:"status"`
	IsFreeTrial   bool       `json:"isFreeTrial"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	PaymentID     string     `json:"paymentId,omitempty"`
	OrderID       string     `json:"orderId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	UsedBy        string     `json:"usedBy,omitempty"`
}

// Filter narrows admin booking listings. Zero fields match everything.
type Filter struct {
	Status  Status
	EventID string
	UserID  string
	Limit   int
}

// StatusUpdate is applied by the store as a single document update.
type StatusUpdate struct {
	Status    Status
	UpdatedAt time.Time
	UsedAt    *time.Time
	UsedBy    string
	// RequireUnused makes the update fail when the booking is already used.
	RequireUnused bool
}
