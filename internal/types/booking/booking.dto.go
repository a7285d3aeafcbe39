package booking

import "time"

type CreateBookingRequest struct {
	EventID     string `json:"eventId" validate:"required"`
	IsFreeTrial bool   `json:"isFreeTrial"`
	OrderID     string `json:"orderId" validate:"required_if=IsFreeTrial false"`
	PaymentID   string `json:"paymentId" validate:"required_if=IsFreeTrial false"`
	Signature   string `json:"signature" validate:"required_if=IsFreeTrial false"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending confirmed used cancelled completed"`
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Result   string `json:"result"`
}

type DashboardResponse struct {
	Bookings   []*Booking `json:"bookings"`
	NewBooking bool       `json:"newBooking"`
	FromCache  bool       `json:"fromCache"`
}

type VerifyTicketRequest struct {
	Text string `json:"text" validate:"required"`
}

// AlreadyUsedResponse answers a redemption of a ticket that was already
// redeemed, with the original entry stamps.
type AlreadyUsedResponse struct {
	Error       string     `json:"error"`
	AlreadyUsed bool       `json:"alreadyUsed"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	UsedBy      string     `json:"usedBy,omitempty"`
	Booking     *Booking   `json:"booking"`
}
