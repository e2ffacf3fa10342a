package crdb

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

const (
	SerializationFailureCode = "40001"
)

// Repository stores manual orders. Creating an order and changing its payment
// status also write an outbox record in the same transaction.
type Repository struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewRepository(pool *pgxpool.Pool, metrics *observability.Metrics) *Repository {
	return &Repository{pool: pool, metrics: metrics}
}

// Ping is used by the readiness check.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if r.metrics != nil {
		start := time.Now()
		defer func() { r.metrics.DBTxDuration.Observe(time.Since(start).Seconds()) }()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Unavailable(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return domain.Unavailable(err, "set isolation")
	}

	if err := fn(tx); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

// mapErr turns driver failures into domain errors. Serialization failures
// surface as ErrConflict so the caller can retry the request.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return errors.Mark(errors.Wrap(domain.ErrSerializationFailure, pgErr.Message), domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.Unavailable(err, "order store")
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, client_name, client_phone, total_amount, dp_amount, payment_status, last_updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, o.ID, o.ClientName, o.ClientPhone, o.TotalAmount, o.DPAmount, o.PaymentStatus, o.LastUpdatedBy, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
			return err
		}
		for _, n := range o.Notes {
			if err := insertNote(ctx, tx, o.ID, n); err != nil {
				return err
			}
		}
		return r.InsertOutbox(ctx, tx, orderEvent(o.ID, "order.created", map[string]interface{}{
			"order_id":       o.ID,
			"client_name":    o.ClientName,
			"total_amount":   o.TotalAmount,
			"payment_status": o.PaymentStatus,
		}))
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(`INSERT INTO order_items (order_id, position, description) VALUES ($1, $2, $3)`, orderID, i, item)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func insertNote(ctx context.Context, tx pgx.Tx, orderID string, n domain.Note) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_notes (id, order_id, at, author, body) VALUES ($1, $2, $3, $4, $5)
	`, n.ID, orderID, n.At, n.Author, n.Body)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	if err := checkID(id); err != nil {
		return domain.Order{}, err
	}
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id::STRING, client_name, client_phone, total_amount, dp_amount, payment_status, last_updated_by, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.ClientName, &o.ClientPhone, &o.TotalAmount, &o.DPAmount, &o.PaymentStatus, &o.LastUpdatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, errors.Wrapf(domain.ErrNotFound, "order %s", id)
	}
	if err != nil {
		return domain.Order{}, domain.Unavailable(err, "get order")
	}

	children, err := r.loadChildren(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items, o.Notes = children.items[id], children.notes[id]
	fillEmpty(&o)
	return o, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::STRING, client_name, client_phone, total_amount, dp_amount, payment_status, last_updated_by, created_at, updated_at
		FROM orders ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, domain.Unavailable(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		var o domain.Order
		err := row.Scan(&o.ID, &o.ClientName, &o.ClientPhone, &o.TotalAmount, &o.DPAmount, &o.PaymentStatus, &o.LastUpdatedBy, &o.CreatedAt, &o.UpdatedAt)
		return o, err
	})
	if err != nil {
		return nil, domain.Unavailable(err, "scan orders")
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	children, err := r.loadChildren(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = children.items[orders[i].ID]
		orders[i].Notes = children.notes[orders[i].ID]
		fillEmpty(&orders[i])
	}
	return orders, nil
}

type orderChildren struct {
	items map[string][]string
	notes map[string][]domain.Note
}

// loadChildren reads items and notes for the given orders. The two queries
// run on separate pool connections.
func (r *Repository) loadChildren(ctx context.Context, ids []string) (orderChildren, error) {
	out := orderChildren{items: map[string][]string{}, notes: map[string][]domain.Note{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `
			SELECT order_id::STRING, description FROM order_items
			WHERE order_id::STRING = ANY($1) ORDER BY order_id, position
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, desc string
			if err := rows.Scan(&id, &desc); err != nil {
				return err
			}
			out.items[id] = append(out.items[id], desc)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `
			SELECT order_id::STRING, id::STRING, at, author, body FROM order_notes
			WHERE order_id::STRING = ANY($1) ORDER BY order_id, at, seq
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var n domain.Note
			if err := rows.Scan(&id, &n.ID, &n.At, &n.Author, &n.Body); err != nil {
				return err
			}
			out.notes[id] = append(out.notes[id], n)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return orderChildren{}, domain.Unavailable(err, "load order children")
	}
	return out, nil
}

// checkID rejects ids that cannot name an order row.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrapf(domain.ErrNotFound, "order %s", id)
	}
	return nil
}

func fillEmpty(o *domain.Order) {
	if o.Items == nil {
		o.Items = []string{}
	}
	if o.Notes == nil {
		o.Notes = []domain.Note{}
	}
}

func (r *Repository) Update(ctx context.Context, id string, in domain.OrderInput, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			UPDATE orders SET client_name = $2, client_phone = $3, total_amount = $4, dp_amount = $5,
				payment_status = $6, last_updated_by = $7, updated_at = $8
			WHERE id = $1
		`, id, strings.TrimSpace(in.ClientName), strings.TrimSpace(in.ClientPhone), in.TotalAmount, in.DPAmount, in.PaymentStatus, st.By, st.At)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return errors.Wrapf(domain.ErrNotFound, "order %s", id)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, domain.CleanItems(in.Items))
	})
}

func (r *Repository) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, id, st, "payment_status = $4", status); err != nil {
			return err
		}
		return r.InsertOutbox(ctx, tx, orderEvent(id, "order.payment_status_changed", map[string]interface{}{
			"order_id":       id,
			"payment_status": status,
			"updated_by":     st.By,
		}))
	})
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_notes WHERE order_id = $1`, id); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return errors.Wrapf(domain.ErrNotFound, "order %s", id)
		}
		return nil
	})
}

func (r *Repository) AppendNote(ctx context.Context, id string, n domain.Note, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, id, st, ""); err != nil {
			return err
		}
		return insertNote(ctx, tx, id, n)
	})
}

func (r *Repository) SetNotes(ctx context.Context, id string, notes []domain.Note, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, id, st, ""); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_notes WHERE order_id = $1`, id); err != nil {
			return err
		}
		for _, n := range notes {
			if err := insertNote(ctx, tx, id, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) EditNote(ctx context.Context, id, noteID, body string, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, id, st, ""); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `UPDATE order_notes SET body = $3 WHERE order_id = $1 AND id::STRING = $2`, id, noteID, strings.TrimSpace(body))
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return errors.Wrapf(domain.ErrNotFound, "note %s", noteID)
		}
		return nil
	})
}

func (r *Repository) DeleteNote(ctx context.Context, id, noteID string, st domain.Stamp) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, id, st, ""); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM order_notes WHERE order_id = $1 AND id::STRING = $2`, id, noteID)
		return err
	})
}

// touch stamps the order row and fails with ErrNotFound when it is missing.
// extra is an optional "column = $4" assignment.
func touch(ctx context.Context, tx pgx.Tx, id string, st domain.Stamp, extra string, args ...interface{}) error {
	q := `UPDATE orders SET last_updated_by = $2, updated_at = $3`
	if extra != "" {
		q += ", " + extra
	}
	q += ` WHERE id = $1`
	res, err := tx.Exec(ctx, q, append([]interface{}{id, st.By, st.At}, args...)...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "order %s", id)
	}
	return nil
}

func orderEvent(orderID, eventType string, payload map[string]interface{}) OutboxRecord {
	body, _ := json.Marshal(payload)
	return OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       body,
		DedupeKey:     uuid.NewString(),
	}
}
