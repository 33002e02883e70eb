package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

const vaultColumns = `id, user_id, vault_blob, version, revision_number, file_size,
		credentials_count, email_address_count, salt, verifier, encryption_type,
		encryption_settings, client, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanVault(row rowScanner) (*models.Vault, error) {
	v := &models.Vault{}
	err := row.Scan(&v.ID, &v.UserID, &v.Blob, &v.Version, &v.RevisionNumber, &v.FileSize,
		&v.CredentialsCount, &v.EmailAddressCount, &v.Salt, &v.Verifier, &v.EncryptionType,
		&v.EncryptionSettings, &v.Client, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vault) (*models.Vault, error) {
	query :=
		`INSERT INTO vaults (user_id, vault_blob, version, revision_number, file_size,
		     credentials_count, email_address_count, salt, verifier, encryption_type,
		     encryption_settings, client)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		v.UserID, v.Blob, v.Version, v.RevisionNumber, v.FileSize,
		v.CredentialsCount, v.EmailAddressCount, v.Salt, v.Verifier, v.EncryptionType,
		v.EncryptionSettings, v.Client).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, &common.ConflictError{LatestRevision: v.RevisionNumber}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetLatest(ctx context.Context, userID string) (*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults
		 WHERE user_id = $1
		 ORDER BY revision_number DESC
		 LIMIT 1`

	v, err := scanVault(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetByRevision(ctx context.Context, userID string, revision int64) (*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults
		 WHERE user_id = $1 AND revision_number = $2`

	v, err := scanVault(r.db.QueryRowContext(ctx, query, userID, revision))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, userID string, revision int64) ([]*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults
		 WHERE user_id = $1 AND revision_number > $2
		 ORDER BY revision_number ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, revision)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListMeta(ctx context.Context, userID string) ([]models.VaultMeta, error) {
	query :=
		`SELECT id, revision_number, version, salt, verifier, updated_at FROM vaults
		 WHERE user_id = $1
		 ORDER BY revision_number DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.VaultMeta
	for rows.Next() {
		var m models.VaultMeta
		if err := rows.Scan(&m.ID, &m.RevisionNumber, &m.Version, &m.Salt, &m.Verifier, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM vaults WHERE user_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
