package crdb

import (
	"context"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	client_name STRING NOT NULL,
	client_phone STRING NOT NULL DEFAULT '',
	total_amount INT8 NOT NULL CHECK (total_amount >= 0),
	dp_amount INT8 NOT NULL DEFAULT 0 CHECK (dp_amount >= 0),
	payment_status STRING NOT NULL CHECK (payment_status IN ('Unpaid', 'Partial', 'Paid')),
	last_updated_by STRING NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	INDEX orders_created_at_idx (created_at DESC)
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id UUID NOT NULL,
	position INT4 NOT NULL,
	description STRING NOT NULL,
	PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS order_notes (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL,
	seq INT8 NOT NULL DEFAULT unique_rowid(),
	at TIMESTAMPTZ NOT NULL,
	author STRING NOT NULL DEFAULT '',
	body STRING NOT NULL,
	INDEX order_notes_order_idx (order_id, at, seq)
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type STRING NOT NULL,
	aggregate_id STRING NOT NULL,
	event_type STRING NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status STRING NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED')),
	dedupe_key STRING NOT NULL,
	INDEX outbox_status_created_idx (status, created_at)
);
`

// Migrate creates the order and outbox tables when they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return domain.Unavailable(err, "migrate")
}
