package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLedger(t *testing.T) *Postgres {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, err := NewPostgres(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestPostgresLedger(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	orderID := "order_test_" + uuid.NewString()

	rec := OrderRecord{
		OrderID: orderID, Kind: "order", Amount: 19900, Currency: "INR",
		Receipt: "rcpt_1", EventID: "ev1", UserID: "u1", EventName: "Weekly run", CreatedAt: time.Now(),
	}
	require.NoError(t, l.RecordOrder(ctx, rec))
	// duplicate inserts are ignored
	require.NoError(t, l.RecordOrder(ctx, rec))

	require.NoError(t, l.RecordEvent(ctx, EventRecord{
		EventType: "payment.captured", OrderID: orderID, PaymentID: "pay_1", Status: "captured",
		Amount: 19900, Payload: []byte(`{"event":"payment.captured"}`), ReceivedAt: time.Now(),
	}))
	require.NoError(t, l.RecordEvent(ctx, EventRecord{
		EventType: "order.paid", OrderID: orderID, ReceivedAt: time.Now().Add(time.Second),
	}))

	types, err := l.EventsForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, []string{"payment.captured", "order.paid"}, types)
}

func TestNopLedger(t *testing.T) {
	var l Ledger = Nop{}
	assert.NoError(t, l.RecordOrder(context.Background(), OrderRecord{}))
	assert.NoError(t, l.RecordEvent(context.Background(), EventRecord{}))
	l.Close()
}
