// Package vaults stores immutable vault revisions per user.
package vaults

import (
	"context"

	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

type Repository interface {
	// Create inserts a new revision. A duplicate (user, revision) pair is
	// reported as *common.ConflictError.
	Create(ctx context.Context, v *models.Vault) (*models.Vault, error)

	// GetLatest returns the revision with the highest number.
	GetLatest(ctx context.Context, userID string) (*models.Vault, error)
	GetByRevision(ctx context.Context, userID string, revision int64) (*models.Vault, error)

	// ListSince returns revisions strictly greater than revision, oldest first.
	ListSince(ctx context.Context, userID string, revision int64) ([]*models.Vault, error)

	// ListMeta returns blob-less metadata of every stored revision.
	ListMeta(ctx context.Context, userID string) ([]models.VaultMeta, error)

	Delete(ctx context.Context, userID, id string) error
}
