package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

const userColumns = `id, username, salt, verifier, encryption_type, encryption_settings,
		two_factor_enabled, two_factor_secret, failed_login_attempts, locked_until,
		blocked, password_changed_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Salt, &u.Verifier, &u.EncryptionType, &u.EncryptionSettings,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.Blocked, &u.PasswordChangedAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, salt, verifier, encryption_type, encryption_settings)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, password_changed_at, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Salt, user.Verifier, user.EncryptionType, user.EncryptionSettings).
		Scan(&user.ID, &user.PasswordChangedAt, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) LockByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id, salt, verifier, encryptionType, encryptionSettings string) error {
	query :=
		`UPDATE users
		 SET salt = $2, verifier = $3, encryption_type = $4, encryption_settings = $5,
		     password_changed_at = NOW(), updated_at = NOW()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, salt, verifier, encryptionType, encryptionSettings)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*time.Time, error) {
	query :=
		`UPDATE users
		 SET failed_login_attempts = CASE WHEN failed_login_attempts + 1 >= $2 THEN 0 ELSE failed_login_attempts + 1 END,
		     locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END
		 WHERE id = $1
		 RETURNING locked_until
		 `

	var locked *time.Time
	if err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockUntil).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return locked, nil
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, id string) error {
	query := `UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetTwoFactor(ctx context.Context, id string, enabled bool, secret string) error {
	query := `UPDATE users SET two_factor_enabled = $2, two_factor_secret = $3, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, enabled, secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, h := range hashes {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO recovery_codes (user_id, code_hash) VALUES ($1, $2)`, userID, h); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) UseRecoveryCode(ctx context.Context, userID, hash string) (bool, error) {
	query :=
		`UPDATE recovery_codes SET used_at = NOW()
		 WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL
		 `
	res, err := r.db.ExecContext(ctx, query, userID, hash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
