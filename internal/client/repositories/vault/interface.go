// Package vault keeps the offline copy of the encrypted vault.
package vault

import (
	"context"

	"github.com/dmitrijs2005/aliasvault/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, v *models.LocalVault) error
	// Get returns common.ErrorNotFound when no copy exists for username.
	Get(ctx context.Context, username string) (*models.LocalVault, error)
	Delete(ctx context.Context, username string) error
}
