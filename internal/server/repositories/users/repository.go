package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LockByID reads the user row and holds a row lock until the surrounding
	// transaction ends. Only meaningful inside a transaction.
	LockByID(ctx context.Context, id string) (*models.User, error)

	UpdateCredentials(ctx context.Context, id, salt, verifier, encryptionType, encryptionSettings string) error

	// RecordFailedLogin increments the failed attempt counter. When it reaches
	// maxAttempts the account is locked until lockUntil and the counter resets.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*time.Time, error)
	ResetFailedLogins(ctx context.Context, id string) error

	SetTwoFactor(ctx context.Context, id string, enabled bool, secret string) error
	ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error

	// UseRecoveryCode marks an unused code as used; false means no such code.
	UseRecoveryCode(ctx context.Context, userID, hash string) (bool, error)
}
