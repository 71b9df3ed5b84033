package database

import (
	"context"
	"database/sql"
	"time"
)

// BeginTx retries transaction acquisition a few times for transient
// connection errors. Business-rule failures never pass through here, so
// nothing user-visible is ever retried.
func BeginTx(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	var tx *sql.Tx
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		tx, err = db.BeginTx(ctx, nil)
		if err == nil {
			return tx, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return nil, err
}
