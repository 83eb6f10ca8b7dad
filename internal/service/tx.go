// Package service holds the business layer: the reservation coordinator,
// trip lifecycle operations and the carpool query service. Every transition
// that touches seat counts runs inside a single database transaction opened
// here, so the seat change and the booking change commit or roll back as
// one unit.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/carpool-marketplace/internal/repository"
)

// maxTxAttempts bounds the retry loop for transactions that lose a lock
// race. Exhausting it surfaces ErrConflict to the caller.
const maxTxAttempts = 3

// isRetryable reports whether the error is transient lock contention:
// MySQL deadlock (1213) or lock wait timeout (1205).
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// runInTx executes fn inside a transaction, retrying a bounded number of
// times with backoff when the transaction aborts on lock contention. Any
// error from fn rolls the whole transaction back.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = attemptTx(ctx, db, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("transaction conflict, retrying")
		select {
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: retry budget exhausted: %v", repository.ErrConflict, err)
}

func attemptTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
