// Package services contains server-side business logic. AuthService runs the
// SRP login and registration flows and manages tokens and the second factor;
// VaultService owns the vault revision history.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/buildinfo"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/kdf"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/auth"
	"github.com/dmitrijs2005/aliasvault/internal/server/config"
	"github.com/dmitrijs2005/aliasvault/internal/server/ephemeral"
	"github.com/dmitrijs2005/aliasvault/internal/server/metrics"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aliasvault/internal/server/twofactor"
	"github.com/dmitrijs2005/aliasvault/internal/srp"
)

const twoFactorIssuer = "AliasVault"

// LoginInitiateResponse is the first round-trip of a login or password change.
type LoginInitiateResponse struct {
	Salt               string
	ServerEphemeral    string
	EncryptionType     string
	EncryptionSettings string
}

// LoginValidateRequest is the second round-trip: the client's public
// ephemeral A and session proof M1.
type LoginValidateRequest struct {
	Username              string
	ClientPublicEphemeral string
	ClientSessionProof    string
	RememberMe            bool
}

// LoginResult carries either a token pair with the server proof M2, or only
// RequiresTwoFactor when the account has a second factor.
type LoginResult struct {
	RequiresTwoFactor  bool
	ServerSessionProof string
	Token              *TokenPair
}

// RegisterRequest is a new account's login material. The password itself
// never reaches the server.
type RegisterRequest struct {
	Username           string
	Salt               string
	Verifier           string
	EncryptionType     string
	EncryptionSettings string
}

// PasswordChangeRequest proves knowledge of the current password and carries
// the vault re-encrypted under the new one.
type PasswordChangeRequest struct {
	CurrentClientPublicEphemeral string
	CurrentClientSessionProof    string
	NewSalt                      string
	NewVerifier                  string
	Vault                        VaultUpload
}

type StatusResult struct {
	ServerVersion             string
	VaultRevision             int64
	PublicRegistrationEnabled bool
}

// TwoFactorSetup is a pending TOTP enrollment; it becomes active once a code
// generated from Secret is confirmed.
type TwoFactorSetup struct {
	Secret string
	URI    string
}

// AuthService implements the zero-knowledge login:
//   - LoginInitiate / LoginValidate: two round-trip SRP, optionally followed
//     by a TOTP or recovery code step
//   - Register: store the client's salt and verifier
//   - Refresh / Revoke: refresh token rotation
//   - PasswordChange: re-prove the current password, swap material and vault
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vaults      *VaultService
	cache       ephemeral.Cache
	logger      logging.Logger

	jwtSecret                        []byte
	fakeSaltSecret                   []byte
	accessTokenValidityDuration      time.Duration
	refreshTokenValidityDuration     time.Duration
	refreshTokenLongValidityDuration time.Duration
	ephemeralTTL                     time.Duration
	maxFailedLoginAttempts           int
	lockoutDuration                  time.Duration
	publicRegistrationEnabled        bool

	now func() time.Time
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, vaults *VaultService, cache ephemeral.Cache, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                               db,
		repomanager:                      m,
		vaults:                           vaults,
		cache:                            cache,
		logger:                           logger,
		jwtSecret:                        []byte(cfg.SecretKey),
		fakeSaltSecret:                   []byte(cfg.FakeSaltSecret),
		accessTokenValidityDuration:      cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration:     cfg.RefreshTokenValidityDuration,
		refreshTokenLongValidityDuration: cfg.RefreshTokenLongValidityDuration,
		ephemeralTTL:                     cfg.EphemeralTTL,
		maxFailedLoginAttempts:           cfg.MaxFailedLoginAttempts,
		lockoutDuration:                  cfg.LockoutDuration,
		publicRegistrationEnabled:        cfg.PublicRegistrationEnabled,
		now:                              time.Now,
	}
}

// LoginInitiate returns the account's salt and KDF parameters plus a fresh
// server ephemeral. Unknown usernames get stable fake material so the
// response does not reveal whether the account exists.
func (s *AuthService) LoginInitiate(ctx context.Context, username string) (*LoginInitiateResponse, error) {
	username = NormalizeUsername(username)

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	var material loginMaterial
	switch {
	case errors.Is(err, common.ErrorNotFound):
		material, err = fakeLoginMaterial(s.fakeSaltSecret, username)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		material = materialOf(user)
	}

	return s.beginHandshake(ctx, username, material)
}

// LoginValidate checks the client's proof. On success it returns the server
// proof and a token pair, or RequiresTwoFactor when a second step is needed;
// in that case the client starts over with a fresh LoginInitiate.
func (s *AuthService) LoginValidate(ctx context.Context, req LoginValidateRequest, client ClientInfo) (*LoginResult, error) {
	user, proof, err := s.validateSRP(ctx, req.Username, req.ClientPublicEphemeral, req.ClientSessionProof, models.AuthEventLogin, client)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return &LoginResult{RequiresTwoFactor: true}, nil
	}

	return s.completeLogin(ctx, user, proof, req.RememberMe, models.AuthEventLogin, client)
}

// LoginValidateTwoFactor re-runs the SRP check and then verifies a TOTP code.
func (s *AuthService) LoginValidateTwoFactor(ctx context.Context, req LoginValidateRequest, code string, client ClientInfo) (*LoginResult, error) {
	user, proof, err := s.validateSRP(ctx, req.Username, req.ClientPublicEphemeral, req.ClientSessionProof, models.AuthEventTwoFactor, client)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, common.ErrTwoFactorNotEnabled
	}

	if !twofactor.Validate(code, user.TwoFactorSecret, s.now()) {
		s.recordFailure(ctx, user)
		s.logAttempt(ctx, user.UserName, models.AuthEventTwoFactor, models.FailureInvalidTwoFactor, client)
		return nil, common.ErrTwoFactorInvalid
	}

	return s.completeLogin(ctx, user, proof, req.RememberMe, models.AuthEventTwoFactor, client)
}

// LoginValidateRecoveryCode is LoginValidateTwoFactor with a one-time
// recovery code in place of the TOTP code.
func (s *AuthService) LoginValidateRecoveryCode(ctx context.Context, req LoginValidateRequest, code string, client ClientInfo) (*LoginResult, error) {
	user, proof, err := s.validateSRP(ctx, req.Username, req.ClientPublicEphemeral, req.ClientSessionProof, models.AuthEventRecoveryCode, client)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, common.ErrTwoFactorNotEnabled
	}

	ok, err := s.repomanager.Users(s.db).UseRecoveryCode(ctx, user.ID, twofactor.HashRecoveryCode(code))
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordFailure(ctx, user)
		s.logAttempt(ctx, user.UserName, models.AuthEventRecoveryCode, models.FailureInvalidRecovery, client)
		return nil, common.ErrTwoFactorInvalid
	}

	return s.completeLogin(ctx, user, proof, req.RememberMe, models.AuthEventRecoveryCode, client)
}

// Register creates the account, its empty initial vault and a first token pair.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*TokenPair, error) {
	if !s.publicRegistrationEnabled {
		return nil, common.ErrRegistrationDisabled
	}

	username := NormalizeUsername(req.Username)
	if err := ValidateUsernameFormat(username); err != nil {
		return nil, err
	}
	if err := validateSRPMaterial(req.Salt, req.Verifier); err != nil {
		return nil, err
	}
	params, err := kdf.ParseSettings(req.EncryptionType, req.EncryptionSettings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			UserName:           username,
			Salt:               req.Salt,
			Verifier:           req.Verifier,
			EncryptionType:     string(params.Type),
			EncryptionSettings: params.Settings(),
		})
		if err != nil {
			return err
		}
		if err := s.vaults.CreateInitial(ctx, tx, user); err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, tx, user, client, s.now().Add(s.refreshTokenValidityDuration), "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAttempt(ctx, username, models.AuthEventRegister, models.FailureNone, client)
	return pair, nil
}

// ValidateUsername reports whether username could be registered right now.
func (s *AuthService) ValidateUsername(ctx context.Context, username string) error {
	username = NormalizeUsername(username)
	if err := ValidateUsernameFormat(username); err != nil {
		return err
	}

	_, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return err
	default:
		return common.ErrUsernameTaken
	}
}

// Refresh rotates refreshToken and signs a new access token. The access token
// may be expired but must carry a valid signature and belong to the same user.
// A token rotated within the last 30 seconds resolves to its replacement.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string, client ClientInfo) (*TokenPair, error) {
	claims, err := auth.ParseExpiredToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if user.Blocked {
		s.logAttempt(ctx, user.UserName, models.AuthEventTokenRefresh, models.FailureAccountBlocked, client)
		return nil, common.ErrAccountBlocked
	}

	repo := s.repomanager.RefreshTokens(s.db)
	now := s.now()

	token, err := repo.Find(ctx, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return s.reuseRotated(ctx, user, refreshToken, now, client)
	}
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.UserID != user.ID {
		s.logAttempt(ctx, user.UserName, models.AuthEventTokenRefresh, models.FailureInvalidRefresh, client)
		return nil, common.ErrInvalidToken
	}
	if token.Expires.Before(now) {
		if err := repo.Delete(ctx, refreshToken); err != nil {
			s.logger.Warn(ctx, "deleting expired refresh token", "error", err)
		}
		s.logAttempt(ctx, user.UserName, models.AuthEventTokenRefresh, models.FailureSessionExpired, client)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, tx, user, client, token.Expires, refreshToken)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	s.logAttempt(ctx, user.UserName, models.AuthEventTokenRefresh, models.FailureNone, client)
	return pair, nil
}

func (s *AuthService) reuseRotated(ctx context.Context, user *models.User, refreshToken string, now time.Time, client ClientInfo) (*TokenPair, error) {
	rotated, err := s.repomanager.RefreshTokens(s.db).FindRotatedSince(ctx, refreshToken, now.Add(-refreshReuseWindow))
	if err != nil || rotated.UserID != user.ID {
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		s.logAttempt(ctx, user.UserName, models.AuthEventTokenRefresh, models.FailureInvalidRefresh, client)
		return nil, common.ErrInvalidToken
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%w: signing access token: %v", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: rotated.Token}, nil
}

// Revoke deletes refreshToken if it belongs to the holder of accessToken.
// Revoking an unknown token is not an error.
func (s *AuthService) Revoke(ctx context.Context, accessToken, refreshToken string, client ClientInfo) error {
	claims, err := auth.ParseExpiredToken(accessToken, s.jwtSecret)
	if err != nil {
		return err
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if token.UserID != claims.UserID {
		return common.ErrInvalidToken
	}

	if err := repo.Delete(ctx, refreshToken); err != nil {
		return err
	}
	s.logAttempt(ctx, claims.Username, models.AuthEventLogout, models.FailureNone, client)
	return nil
}

// PasswordChangeInitiate starts an SRP exchange against the authenticated
// user's current material.
func (s *AuthService) PasswordChangeInitiate(ctx context.Context, userID string) (*LoginInitiateResponse, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.beginHandshake(ctx, user.UserName, materialOf(user))
}

// PasswordChange verifies the current password by SRP, then stores the
// re-encrypted vault under the new material and signs out other devices.
// It returns the new vault revision.
func (s *AuthService) PasswordChange(ctx context.Context, userID string, req PasswordChangeRequest, client ClientInfo) (int64, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := validateSRPMaterial(req.NewSalt, req.NewVerifier); err != nil {
		return 0, err
	}

	if _, _, err := s.validateSRP(ctx, user.UserName, req.CurrentClientPublicEphemeral, req.CurrentClientSessionProof, models.AuthEventPasswordChange, client); err != nil {
		return 0, err
	}

	rev, err := s.vaults.ChangePassword(ctx, user.ID, req.Vault, NewCredentials{
		Salt:     req.NewSalt,
		Verifier: req.NewVerifier,
		Device:   client.DeviceIdentifier(),
	})
	if err != nil {
		return 0, err
	}

	s.logAttempt(ctx, user.UserName, models.AuthEventPasswordChange, models.FailureNone, client)
	return rev, nil
}

// Status reports the server version and the user's latest vault revision.
func (s *AuthService) Status(ctx context.Context, userID string) (*StatusResult, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Blocked {
		return nil, common.ErrAccountBlocked
	}

	res := &StatusResult{
		ServerVersion:             buildinfo.Version(),
		PublicRegistrationEnabled: s.publicRegistrationEnabled,
	}

	latest, err := s.repomanager.Vaults(s.db).GetLatest(ctx, user.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
	case err != nil:
		return nil, err
	default:
		res.VaultRevision = latest.RevisionNumber
	}
	return res, nil
}

// EnableTwoFactor stores a new, not yet active TOTP secret.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("%w: two-factor authentication already enabled", common.ErrInvalidRequest)
	}

	enrollment, err := twofactor.NewEnrollment(twoFactorIssuer, user.UserName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := users.SetTwoFactor(ctx, user.ID, false, enrollment.Secret); err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: enrollment.Secret, URI: enrollment.URI}, nil
}

// ConfirmTwoFactor activates a pending enrollment and returns freshly
// generated recovery codes. Only their hashes are kept.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID, code string, client ClientInfo) ([]string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorSecret == "" {
		return nil, common.ErrTwoFactorNotEnabled
	}
	if !twofactor.Validate(code, user.TwoFactorSecret, s.now()) {
		s.logAttempt(ctx, user.UserName, models.AuthEventTwoFactorEnable, models.FailureInvalidTwoFactor, client)
		return nil, common.ErrTwoFactorInvalid
	}

	codes, hashes, err := twofactor.GenerateRecoveryCodes(twofactor.RecoveryCodeCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if err := users.SetTwoFactor(ctx, user.ID, true, user.TwoFactorSecret); err != nil {
			return err
		}
		return users.ReplaceRecoveryCodes(ctx, user.ID, hashes)
	})
	if err != nil {
		return nil, err
	}

	s.logAttempt(ctx, user.UserName, models.AuthEventTwoFactorEnable, models.FailureNone, client)
	return codes, nil
}

// DisableTwoFactor turns the second factor off after checking a current code.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, code string, client ClientInfo) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return common.ErrTwoFactorNotEnabled
	}
	if !twofactor.Validate(code, user.TwoFactorSecret, s.now()) {
		s.logAttempt(ctx, user.UserName, models.AuthEventTwoFactorDisable, models.FailureInvalidTwoFactor, client)
		return common.ErrTwoFactorInvalid
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if err := users.SetTwoFactor(ctx, user.ID, false, ""); err != nil {
			return err
		}
		return users.ReplaceRecoveryCodes(ctx, user.ID, nil)
	})
	if err != nil {
		return err
	}

	s.logAttempt(ctx, user.UserName, models.AuthEventTwoFactorDisable, models.FailureNone, client)
	return nil
}

// --- helpers below ---

func materialOf(u *models.User) loginMaterial {
	return loginMaterial{
		Salt:               u.Salt,
		Verifier:           u.Verifier,
		EncryptionType:     u.EncryptionType,
		EncryptionSettings: u.EncryptionSettings,
	}
}

func (s *AuthService) beginHandshake(ctx context.Context, username string, m loginMaterial) (*LoginInitiateResponse, error) {
	eph, err := srp.NewServerHandshake(username, m.Salt, m.Verifier).Begin()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, ephemeral.Key(username), eph.Secret, s.ephemeralTTL); err != nil {
		return nil, fmt.Errorf("storing server ephemeral: %w", err)
	}

	return &LoginInitiateResponse{
		Salt:               m.Salt,
		ServerEphemeral:    eph.Public,
		EncryptionType:     m.EncryptionType,
		EncryptionSettings: m.EncryptionSettings,
	}, nil
}

// validateSRP consumes the cached server ephemeral and checks the client
// proof. Unknown users run the same verification against fake material so
// both failures look and cost the same.
func (s *AuthService) validateSRP(ctx context.Context, username, clientPublic, clientProof string, event models.AuthEventType, client ClientInfo) (*models.User, string, error) {
	username = NormalizeUsername(username)

	secret, ok, err := s.cache.Take(ctx, ephemeral.Key(username))
	if err != nil {
		return nil, "", fmt.Errorf("reading server ephemeral: %w", err)
	}
	if !ok {
		s.logAttempt(ctx, username, event, models.FailureSessionExpired, client)
		return nil, "", common.ErrSessionExpired
	}

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		if s.unknownUserLocked(ctx, username) {
			s.logAttempt(ctx, username, event, models.FailureAccountLocked, client)
			return nil, "", common.ErrAccountLocked
		}
		if fake, ferr := fakeLoginMaterial(s.fakeSaltSecret, username); ferr == nil {
			_, _ = srp.ResumeServerHandshake(username, fake.Salt, fake.Verifier, secret).Verify(clientPublic, clientProof)
		}
		s.logAttempt(ctx, username, event, models.FailureInvalidUsername, client)
		return nil, "", common.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, "", err
	}

	if user.Blocked {
		s.logAttempt(ctx, username, event, models.FailureAccountBlocked, client)
		return nil, "", common.ErrAccountBlocked
	}
	if user.IsLocked(s.now()) {
		s.logAttempt(ctx, username, event, models.FailureAccountLocked, client)
		return nil, "", common.ErrAccountLocked
	}

	proof, err := srp.ResumeServerHandshake(username, user.Salt, user.Verifier, secret).Verify(clientPublic, clientProof)
	if err != nil {
		s.recordFailure(ctx, user)
		s.logAttempt(ctx, username, event, models.FailureInvalidPassword, client)
		return nil, "", common.ErrAuthenticationFailed
	}
	return user, proof, nil
}

func (s *AuthService) completeLogin(ctx context.Context, user *models.User, proof string, rememberMe bool, event models.AuthEventType, client ClientInfo) (*LoginResult, error) {
	if user.FailedLoginAttempts > 0 {
		if err := s.repomanager.Users(s.db).ResetFailedLogins(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	pair, err := s.generateTokenPair(ctx, s.db, user, client, s.now().Add(s.refreshValidity(rememberMe)), "")
	if err != nil {
		return nil, err
	}

	s.logAttempt(ctx, user.UserName, event, models.FailureNone, client)
	return &LoginResult{ServerSessionProof: proof, Token: pair}, nil
}

// unknownUserLocked makes an unknown username lock out after as many recent
// failures as a real account would, so the 423 answer does not reveal which
// usernames exist.
func (s *AuthService) unknownUserLocked(ctx context.Context, username string) bool {
	if s.maxFailedLoginAttempts <= 0 {
		return false
	}
	n, err := s.repomanager.AuthLogs(s.db).CountFailures(ctx, username, models.FailureInvalidUsername, s.now().Add(-s.lockoutDuration))
	if err != nil {
		s.logger.Error(ctx, "counting failed logins", "username", username, "error", err)
		return false
	}
	return n >= s.maxFailedLoginAttempts
}

func (s *AuthService) recordFailure(ctx context.Context, user *models.User) {
	lockedUntil, err := s.repomanager.Users(s.db).RecordFailedLogin(ctx, user.ID, s.maxFailedLoginAttempts, s.now().Add(s.lockoutDuration))
	if err != nil {
		s.logger.Error(ctx, "recording failed login", "user_id", user.ID, "error", err)
		return
	}
	if lockedUntil != nil {
		s.logger.Warn(ctx, "account locked", "user_id", user.ID, "locked_until", *lockedUntil)
	}
}

// logAttempt persists an auth event. Storage errors are logged, never returned.
func (s *AuthService) logAttempt(ctx context.Context, username string, event models.AuthEventType, reason models.AuthFailureReason, client ClientInfo) {
	success := reason == models.FailureNone

	result := "success"
	if !success {
		result = string(reason)
		s.logger.Warn(ctx, "authentication failed", "event", event, "reason", reason, "username", username, "ip", client.IPAddress)
	}
	metrics.AuthEventsTotal.WithLabelValues(string(event), result).Inc()

	err := s.repomanager.AuthLogs(s.db).Create(ctx, &models.AuthLog{
		Username:      username,
		EventType:     event,
		Success:       success,
		FailureReason: reason,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		Client:        client.Client,
	})
	if err != nil {
		s.logger.Error(ctx, "writing auth log", "error", err)
	}
}

func validateSRPMaterial(salt, verifier string) error {
	if salt == "" || verifier == "" {
		return fmt.Errorf("%w: salt and verifier are required", common.ErrInvalidRequest)
	}
	if !isHex(salt) {
		return fmt.Errorf("%w: salt is not hex", common.ErrInvalidRequest)
	}
	if !isHex(verifier) {
		return fmt.Errorf("%w: verifier is not hex", common.ErrInvalidRequest)
	}
	return nil
}

func isHex(s string) bool {
	if len(s)%2 == 1 {
		s = "0" + s
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
