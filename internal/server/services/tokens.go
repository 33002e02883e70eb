package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/server/auth"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

// refreshReuseWindow is how long a rotated refresh token keeps resolving to
// its replacement. Clients racing two refreshes both get the same new pair.
const refreshReuseWindow = 30 * time.Second

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ClientInfo describes the caller of an auth operation as seen by the transport.
type ClientInfo struct {
	IPAddress      string
	UserAgent      string
	AcceptLanguage string
	Client         string
}

// DeviceIdentifier groups refresh tokens per device. A password change keeps
// the tokens of the device it was made from.
func (c ClientInfo) DeviceIdentifier() string {
	return c.UserAgent + "|" + c.AcceptLanguage
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.UserName, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *AuthService) refreshValidity(rememberMe bool) time.Duration {
	if rememberMe {
		return s.refreshTokenLongValidityDuration
	}
	return s.refreshTokenValidityDuration
}

// generateTokenPair signs an access token and stores a new refresh token
// expiring at expires. previous links a rotated token to its predecessor.
func (s *AuthService) generateTokenPair(ctx context.Context, tx dbx.DBTX, user *models.User, client ClientInfo, expires time.Time, previous string) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%w: signing access token: %v", common.ErrorInternal, err)
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: generating refresh token: %v", common.ErrorInternal, err)
	}

	err = s.repomanager.RefreshTokens(tx).Create(ctx, &models.RefreshToken{
		UserID:           user.ID,
		Token:            refresh,
		PreviousToken:    previous,
		DeviceIdentifier: client.DeviceIdentifier(),
		IPAddress:        client.IPAddress,
		Expires:          expires,
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
