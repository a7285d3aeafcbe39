package razorpay

import (
	"bytes"

	"github.com/goccy/go-json"
)

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

// Notes are the key/value notes on an entity. Razorpay sends an empty
// array rather than an object when there are none.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		*n = Notes{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

type Payment struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

const (
	PaymentCaptured   = "captured"
	PaymentAuthorized = "authorized"
	PaymentFailed     = "failed"
)

type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type PaymentLinkRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	ReferenceID string            `json:"reference_id,omitempty"`
	Customer    *Customer         `json:"customer,omitempty"`
	UPILink     bool              `json:"upi_link"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type PaymentLinkPayment struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
}

type PaymentLink struct {
	ID       string               `json:"id"`
	ShortURL string               `json:"short_url"`
	Status   string               `json:"status"`
	Amount   int64                `json:"amount"`
	Currency string               `json:"currency"`
	OrderID  string               `json:"order_id"`
	Payments []PaymentLinkPayment `json:"payments"`
}

// WebhookEvent is the envelope of an inbound gateway notification.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}
