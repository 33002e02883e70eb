// Package authlogs records authentication attempts.
package authlogs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuthLog) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountFailures counts failed attempts for username with the given
	// reason recorded at or after since.
	CountFailures(ctx context.Context, username string, reason models.AuthFailureReason, since time.Time) (int, error)
}
