package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aliasvault/internal/client/models"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save replaces the stored copy. An older revision never overwrites a newer one.
func (r *SQLiteRepository) Save(ctx context.Context, v *models.LocalVault) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vault (username, revision_number, blob, version, salt, encryption_type, encryption_settings, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			revision_number = excluded.revision_number,
			blob = excluded.blob,
			version = excluded.version,
			salt = excluded.salt,
			encryption_type = excluded.encryption_type,
			encryption_settings = excluded.encryption_settings,
			updated_at = excluded.updated_at
		WHERE excluded.revision_number >= vault.revision_number
	`, v.Username, v.RevisionNumber, v.Blob, v.Version, v.Salt, v.EncryptionType, v.EncryptionSettings, v.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (*models.LocalVault, error) {
	v := &models.LocalVault{}
	err := r.db.QueryRowContext(ctx, `
		SELECT username, revision_number, blob, version, salt, encryption_type, encryption_settings, updated_at
		FROM vault WHERE username = ?
	`, username).Scan(&v.Username, &v.RevisionNumber, &v.Blob, &v.Version, &v.Salt, &v.EncryptionType, &v.EncryptionSettings, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vault WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to delete vault: %w", err)
	}
	return nil
}
