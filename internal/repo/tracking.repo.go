package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"shop-api/internal/domain"
)

type TrackingRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.OrderTracking) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderTracking, error)
}

type trackingRepo struct {
	db *sql.DB
}

func NewTrackingRepo(db *sql.DB) TrackingRepo {
	return &trackingRepo{db: db}
}

func (r *trackingRepo) Create(ctx context.Context, tx *sql.Tx, t *domain.OrderTracking) error {
	var loc any
	if t.Location != nil {
		b, err := json.Marshal(t.Location)
		if err != nil {
			return err
		}
		loc = string(b)
	}

	var note any
	if t.Note != "" {
		note = t.Note
	}

	return tx.QueryRowContext(ctx,
		`INSERT INTO order_tracking (order_id, status, note, updated_by_id, location)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.OrderID, t.Status, note, t.UpdatedByID, loc,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *trackingRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderTracking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, status, note, updated_by_id, location, created_at
		 FROM order_tracking WHERE order_id = $1 ORDER BY created_at DESC, id DESC`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OrderTracking
	for rows.Next() {
		var t domain.OrderTracking
		var note sql.NullString
		var loc []byte
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Status, &note, &t.UpdatedByID, &loc, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Note = note.String
		if len(loc) > 0 {
			var l domain.Location
			if err := json.Unmarshal(loc, &l); err != nil {
				return nil, err
			}
			t.Location = &l
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
