package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"adaptive-access-platform/backend/internal/credential/domain"
)

// PostgresRepository persists refresh credentials in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a credential repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the credential row. The credential must have ID and SecretHash set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.RefreshCredential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_credentials (id, identity_id, secret_hash, family, expires_at, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.IdentityID, c.SecretHash, c.Family, c.ExpiresAt, c.Revoked, c.CreatedAt,
	)
	return err
}

// GetBySecretHash returns the credential with the given secret hash, or nil if
// not found. It returns an error only for database failures, not missing rows.
func (r *PostgresRepository) GetBySecretHash(ctx context.Context, secretHash string) (*domain.RefreshCredential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, secret_hash, family, expires_at, revoked, created_at
		 FROM refresh_credentials WHERE secret_hash = $1`, secretHash)
	var c domain.RefreshCredential
	err := row.Scan(&c.ID, &c.IdentityID, &c.SecretHash, &c.Family, &c.ExpiresAt, &c.Revoked, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// RevokeIfActive marks the credential revoked only when it currently is not.
// The conditional update makes concurrent duplicate rotations collapse into the
// replay path: the loser sees no row changed.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked = TRUE WHERE id = $1 AND revoked = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeFamily marks every credential in the family revoked.
func (r *PostgresRepository) RevokeFamily(ctx context.Context, family string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked = TRUE WHERE family = $1 AND revoked = FALSE`, family)
	return err
}

// RevokeAllForIdentity marks every non-revoked credential for the identity revoked.
func (r *PostgresRepository) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked = TRUE WHERE identity_id = $1 AND revoked = FALSE`, identityID)
	return err
}

// DeleteExpiredBefore removes rows that are revoked or past expiry and older
// than cutoff. Housekeeping only; correctness does not depend on it running.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, now, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_credentials
		 WHERE (revoked = TRUE OR expires_at < $1) AND created_at < $2`, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
