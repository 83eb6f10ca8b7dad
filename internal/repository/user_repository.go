package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// UserRepo reads marketplace participants and maintains the driver rating
// aggregate. User records themselves are provisioned by the identity
// collaborator; this service only consumes them.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByID returns a user by ID, ErrUserNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, name, email, phone, role, rating_avg, rating_count, created_at, updated_at
		FROM users WHERE id = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role,
		&u.RatingAvg, &u.RatingCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetRatingForUpdateTx locks the user's rating aggregate so concurrent
// rating folds are serialized.
func (r *UserRepo) GetRatingForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (avg float64, count uint64, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT rating_avg, rating_count FROM users WHERE id = ? FOR UPDATE`, id,
	).Scan(&avg, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrUserNotFound
	}
	return avg, count, err
}

// SetRatingTx writes the folded rating aggregate inside the transaction
// that also records the rating on the booking.
func (r *UserRepo) SetRatingTx(ctx context.Context, tx *sql.Tx, id uint64, avg float64, count uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET rating_avg = ?, rating_count = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		avg, count, id,
	)
	return err
}
