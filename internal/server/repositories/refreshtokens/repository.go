// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

// Repository defines operations for issuing, rotating, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token. PreviousToken links a rotated token
	// to the one it replaced.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a refresh token by its opaque token string.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// FindRotatedSince returns the token that replaced previous, provided it
	// was created at or after since.
	FindRotatedSince(ctx context.Context, previous string, since time.Time) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteOtherDevices revokes every token of userID not issued to device.
	DeleteOtherDevices(ctx context.Context, userID, device string) (int64, error)

	// DeleteExpired removes tokens that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
