package repository

import (
	"context"
	"database/sql"
	"errors"

	"adaptive-access-platform/backend/internal/identity/domain"
)

// PostgresRepository persists identities in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, username, email, password_hash, role, mfa_verified, last_known_ip, active, created_at`

// Create inserts the identity and its known devices. Used by seeding and
// provisioning flows; login never creates identities.
func (r *PostgresRepository) Create(ctx context.Context, ident *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ident.ID, ident.Username, ident.Email, ident.PasswordHash, ident.Role,
		ident.MFAVerified, ident.LastKnownIP, ident.Active, ident.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, d := range ident.KnownDeviceIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO identity_devices (identity_id, device_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			ident.ID, d,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return r.scanIdentity(ctx, row)
}

// GetByUsername returns the identity for username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE username = $1`, username)
	return r.scanIdentity(ctx, row)
}

// UpdateLastKnownIP records the network origin of the identity's latest login.
func (r *PostgresRepository) UpdateLastKnownIP(ctx context.Context, id, ip string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET last_known_ip = $2 WHERE id = $1`, id, ip)
	return err
}

// UpdatePasswordHash replaces the identity's password hash. Callers must
// revoke all refresh credentials for the identity before reporting success.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, hash)
	return err
}

// SetActive flips the identity's active flag. Deactivation must be followed by
// a credential revocation sweep by the caller.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET active = $2 WHERE id = $1`, id, active)
	return err
}

func (r *PostgresRepository) scanIdentity(ctx context.Context, row *sql.Row) (*domain.Identity, error) {
	var ident domain.Identity
	err := row.Scan(
		&ident.ID,
		&ident.Username,
		&ident.Email,
		&ident.PasswordHash,
		&ident.Role,
		&ident.MFAVerified,
		&ident.LastKnownIP,
		&ident.Active,
		&ident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	devices, err := r.knownDevices(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	ident.KnownDeviceIDs = devices
	return &ident, nil
}

func (r *PostgresRepository) knownDevices(ctx context.Context, identityID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT device_id FROM identity_devices WHERE identity_id = $1 ORDER BY device_id`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
