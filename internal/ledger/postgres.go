package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_orders (
	id          BIGSERIAL PRIMARY KEY,
	order_id    TEXT NOT NULL UNIQUE,
	kind        TEXT NOT NULL,
	amount      BIGINT NOT NULL,
	currency    TEXT NOT NULL,
	receipt     TEXT,
	event_id    TEXT,
	user_id     TEXT,
	event_name  TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_events (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT NOT NULL,
	order_id    TEXT,
	payment_id  TEXT,
	status      TEXT,
	amount      BIGINT,
	payload     JSONB,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS payment_events_order_id_idx ON payment_events (order_id);
`

type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, pings and creates the ledger tables if needed.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (l *Postgres) RecordOrder(ctx context.Context, rec OrderRecord) error {
	query := `
		INSERT INTO payment_orders (order_id, kind, amount, currency, receipt, event_id, user_id, event_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO NOTHING
	`
	_, err := l.pool.Exec(ctx, query,
		rec.OrderID, rec.Kind, rec.Amount, rec.Currency, rec.Receipt,
		rec.EventID, rec.UserID, rec.EventName, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

func (l *Postgres) RecordEvent(ctx context.Context, rec EventRecord) error {
	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}

	query := `
		INSERT INTO payment_events (event_type, order_id, payment_id, status, amount, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`
	_, err := l.pool.Exec(ctx, query,
		rec.EventType, rec.OrderID, rec.PaymentID, rec.Status, rec.Amount, payload, rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	return nil
}

// EventsForOrder returns the event types recorded for an order, oldest first.
func (l *Postgres) EventsForOrder(ctx context.Context, orderID string) ([]string, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT event_type FROM payment_events WHERE order_id = $1 ORDER BY received_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (l *Postgres) Close() {
	l.pool.Close()
}
