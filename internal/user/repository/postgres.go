package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"referral-gate-bot/internal/user/domain"
)

const userColumns = `id, points, referred_by, display_name, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetOrCreate relies on the primary key for first-contact uniqueness: of two concurrent inserts for the
// same id exactly one gets a row back from RETURNING, the other falls through to a plain read.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	if err := u.Validate(); err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	referredBy := sql.NullInt64{}
	if u.ReferredBy != nil {
		referredBy = sql.NullInt64{Int64: *u.ReferredBy, Valid: true}
	}
	name := sql.NullString{String: u.DisplayName, Valid: u.DisplayName != ""}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, points, referred_by, display_name, created_at, updated_at)
		VALUES ($1, 0, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+userColumns, u.ID, referredBy, name, now)
	created, err := scanUser(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, domain.ErrUserNotFound
	}
	return existing, false, nil
}

// Register inserts the user and credits the referrer in one statement, so a failure leaves neither behind.
// The referrer id is looked up inside the insert; an unknown referrer stores referred_by as NULL.
func (r *PostgresRepository) Register(ctx context.Context, u *domain.User, bonus int64) (domain.Registration, error) {
	if err := u.Validate(); err != nil {
		return domain.Registration{}, err
	}
	now := time.Now().UTC()
	referredBy := sql.NullInt64{}
	if u.ReferredBy != nil {
		referredBy = sql.NullInt64{Int64: *u.ReferredBy, Valid: true}
	}
	name := sql.NullString{String: u.DisplayName, Valid: u.DisplayName != ""}
	row := r.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO users (id, points, referred_by, display_name, created_at, updated_at)
			SELECT $1, 0, (SELECT id FROM users WHERE id = $2), $3, $4, $4
			ON CONFLICT (id) DO NOTHING
			RETURNING `+userColumns+`
		), credit AS (
			UPDATE users SET points = points + $5, updated_at = $4
			WHERE id = (SELECT referred_by FROM ins)
			RETURNING points
		)
		SELECT ins.id, ins.points, ins.referred_by, ins.display_name, ins.created_at, ins.updated_at, credit.points
		FROM ins LEFT JOIN credit ON true`, u.ID, referredBy, name, now, bonus)

	var (
		created    domain.User
		ref        sql.NullInt64
		dispName   sql.NullString
		refBalance sql.NullInt64
	)
	err := row.Scan(&created.ID, &created.Points, &ref, &dispName, &created.CreatedAt, &created.UpdatedAt, &refBalance)
	if err == nil {
		if ref.Valid {
			id := ref.Int64
			created.ReferredBy = &id
		}
		created.DisplayName = dispName.String
		return domain.Registration{
			User:            &created,
			Created:         true,
			Credited:        refBalance.Valid,
			ReferrerBalance: refBalance.Int64,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, err
	}
	existing, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return domain.Registration{}, err
	}
	if existing == nil {
		return domain.Registration{}, domain.ErrUserNotFound
	}
	return domain.Registration{User: existing}, nil
}

// AddPoints increments points in a single UPDATE. Returns domain.ErrUserNotFound when no row matched.
func (r *PostgresRepository) AddPoints(ctx context.Context, id, amount int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET points = points + $2, updated_at = $3
		WHERE id = $1
		RETURNING points`, id, amount, time.Now().UTC()).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

// SubtractPoints decrements points only when the row still covers amount. The balance read after a
// refused update is for reporting the shortfall only.
func (r *PostgresRepository) SubtractPoints(ctx context.Context, id, amount int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET points = points - $2, updated_at = $3
		WHERE id = $1 AND points >= $2
		RETURNING points`, id, amount, time.Now().UTC()).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	var current int64
	err = r.db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}
	return current, &domain.InsufficientBalanceError{Balance: current, Required: amount}
}

// ListIDs returns every known user id in creation order.
func (r *PostgresRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count returns the number of users.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountReferredBy returns how many users were created with referrerID as their referrer.
func (r *PostgresRepository) CountReferredBy(ctx context.Context, referrerID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE referred_by = $1`, referrerID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		referredBy sql.NullInt64
		name       sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Points, &referredBy, &name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if referredBy.Valid {
		ref := referredBy.Int64
		u.ReferredBy = &ref
	}
	if name.Valid {
		u.DisplayName = name.String
	}
	return &u, nil
}
