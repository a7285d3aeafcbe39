// Package ledger keeps an append-only audit trail of gateway orders and
// webhook events for the payment service.
package ledger

import (
	"context"
	"time"
)

type OrderRecord struct {
	OrderID   string
	Kind      string // "order" or "payment_link"
	Amount    int64
	Currency  string
	Receipt   string
	EventID   string
	UserID    string
	EventName string
	CreatedAt time.Time
}

type EventRecord struct {
	EventType  string
	OrderID    string
	PaymentID  string
	Status     string
	Amount     int64
	Payload    []byte
	ReceivedAt time.Time
}

type Ledger interface {
	RecordOrder(ctx context.Context, rec OrderRecord) error
	RecordEvent(ctx context.Context, rec EventRecord) error
	Close()
}

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) RecordOrder(context.Context, OrderRecord) error { return nil }
func (Nop) RecordEvent(context.Context, EventRecord) error { return nil }
func (Nop) Close()                                         {}
