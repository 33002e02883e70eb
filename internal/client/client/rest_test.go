package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://vault.test"

func newTestRESTClient(t *testing.T) (*RESTClient, *httpmock.MockTransport) {
	t.Helper()
	c := NewRESTClient(baseURL+"/", "aliasvault-cli/test", time.Second)
	mt := httpmock.NewMockTransport()
	c.http.SetTransport(mt)
	return c, mt
}

func errorResponder(status int, message string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(status, api.Error{Code: status, Message: message})
}

func TestREST_Login(t *testing.T) {
	c, mt := newTestRESTClient(t)

	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/login", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "aliasvault-cli/test", req.Header.Get(common.ClientHeaderName))
		assert.Empty(t, req.Header.Get("Authorization"))

		var body api.LoginRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "alice", body.Username)

		return httpmock.NewJsonResponse(http.StatusOK, api.LoginInitiateResponse{
			Salt:            "aa",
			ServerEphemeral: "bb",
			EncryptionType:  "Argon2Id",
		})
	})

	got, err := c.Login(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "aa", got.Salt)
	assert.Equal(t, "bb", got.ServerEphemeral)
	assert.Equal(t, "Argon2Id", got.EncryptionType)
}

func TestREST_ValidateLoginStoresTokens(t *testing.T) {
	c, mt := newTestRESTClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/validate-login",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.ValidateLoginResponse{
			Token:              &api.TokenModel{Token: "A1", RefreshToken: "R1"},
			ServerSessionProof: "cc",
		}))

	got, err := c.ValidateLogin(context.Background(), &api.ValidateLoginRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "cc", got.ServerSessionProof)

	access, refresh := c.Tokens()
	assert.Equal(t, "A1", access)
	assert.Equal(t, "R1", refresh)
}

func TestREST_ValidateLoginTwoFactorRequiredKeepsTokens(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("old", "old-r")
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/validate-login",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.ValidateLoginResponse{RequiresTwoFactor: true}))

	got, err := c.ValidateLogin(context.Background(), &api.ValidateLoginRequest{Username: "alice"})
	require.NoError(t, err)
	assert.True(t, got.RequiresTwoFactor)

	access, _ := c.Tokens()
	assert.Equal(t, "old", access)
}

func TestREST_AuthorizedCallWithoutToken(t *testing.T) {
	c, mt := newTestRESTClient(t)

	_, err := c.Status(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestREST_StatusSendsBearer(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")

	mt.RegisterResponder(http.MethodGet, baseURL+"/v1/status", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer A1", req.Header.Get("Authorization"))
		return httpmock.NewJsonResponse(http.StatusOK, api.StatusResponse{ServerVersion: "1.0.0", VaultRevision: 4})
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.VaultRevision)
}

func TestREST_RefreshesExpiredTokenAndRetries(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")

	var persisted []string
	c.OnTokensRefreshed(func(access, refresh string) {
		persisted = append(persisted, access, refresh)
	})

	calls := 0
	mt.RegisterResponder(http.MethodGet, baseURL+"/v1/vault", func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			assert.Equal(t, "Bearer A1", req.Header.Get("Authorization"))
			return httpmock.NewJsonResponse(http.StatusUnauthorized, api.Error{Code: 401, Message: "token expired"})
		}
		assert.Equal(t, "Bearer A2", req.Header.Get("Authorization"))
		return httpmock.NewJsonResponse(http.StatusOK, api.VaultGetResponse{Vault: api.Vault{Blob: "b", CurrentRevisionNumber: 3}})
	})
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/refresh", func(req *http.Request) (*http.Response, error) {
		var body api.RefreshRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "A1", body.Token)
		assert.Equal(t, "R1", body.RefreshToken)
		return httpmock.NewJsonResponse(http.StatusOK, api.TokenModel{Token: "A2", RefreshToken: "R2"})
	})

	got, err := c.GetVault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", got.Vault.Blob)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"A2", "R2"}, persisted)

	access, refresh := c.Tokens()
	assert.Equal(t, "A2", access)
	assert.Equal(t, "R2", refresh)
}

func TestREST_RefreshFailureIsUnauthorized(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")

	mt.RegisterResponder(http.MethodGet, baseURL+"/v1/status", errorResponder(http.StatusUnauthorized, "token expired"))
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/refresh", errorResponder(http.StatusUnauthorized, "refresh token expired"))

	_, err := c.Status(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, mt.GetCallCountInfo()["GET "+baseURL+"/v1/status"])
}

func TestREST_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    error
	}{
		{"bad credentials", http.StatusUnauthorized, "invalid username or password", common.ErrAuthenticationFailed},
		{"session expired", http.StatusUnauthorized, "login session expired, please start over", common.ErrSessionExpired},
		{"bad 2fa code", http.StatusUnauthorized, "invalid authentication code", common.ErrTwoFactorInvalid},
		{"locked", http.StatusLocked, "account temporarily locked due to too many failed attempts", common.ErrAccountLocked},
		{"blocked", http.StatusForbidden, "account blocked", common.ErrAccountBlocked},
		{"registration", http.StatusForbidden, "public registration is disabled", common.ErrRegistrationDisabled},
		{"username taken", http.StatusConflict, "username is already in use", common.ErrUsernameTaken},
		{"outdated", http.StatusBadRequest, "vault client version is outdated", common.ErrVaultOutdated},
		{"bad input", http.StatusBadRequest, "Username is required", common.ErrInvalidRequest},
		{"not found", http.StatusNotFound, "not found", common.ErrorNotFound},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"internal", http.StatusInternalServerError, "internal error", common.ErrorInternal},
		{"gateway", http.StatusBadGateway, "", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newTestRESTClient(t)
			mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/login", errorResponder(tt.status, tt.message))

			_, err := c.Login(context.Background(), "alice")
			require.ErrorIs(t, err, tt.want)

			var se *ServerError
			require.True(t, errors.As(err, &se))
			if tt.message != "" {
				assert.Equal(t, tt.message, se.Error())
			}
		})
	}
}

func TestREST_UpdateVaultConflict(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/vault", httpmock.NewJsonResponderOrPanic(http.StatusConflict, api.Error{
		Code:           409,
		Message:        "vault was changed on another device, merge required",
		LatestRevision: 7,
	}))

	_, err := c.UpdateVault(context.Background(), &api.Vault{Blob: "b", Version: "1.0.0", CurrentRevisionNumber: 5})
	require.ErrorIs(t, err, common.ErrVaultConflict)

	latest, ok := IsConflict(err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), latest)
}

func TestREST_TransportErrorIsUnavailable(t *testing.T) {
	c, mt := newTestRESTClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/login", httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Login(context.Background(), "alice")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestREST_MergeVaultsQuery(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")
	mt.RegisterResponder(http.MethodGet, baseURL+"/v1/vault/merge?currentRevisionNumber=3",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.VaultMergeResponse{Vaults: []api.Vault{
			{CurrentRevisionNumber: 4}, {CurrentRevisionNumber: 5},
		}}))

	got, err := c.MergeVaults(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got.Vaults, 2)
	assert.Equal(t, int64(5), got.Vaults[1].CurrentRevisionNumber)
}

func TestREST_RevokeForgetsTokens(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/revoke", func(req *http.Request) (*http.Response, error) {
		var body api.RefreshRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "R1", body.RefreshToken)
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	require.NoError(t, c.Revoke(context.Background()))
	access, refresh := c.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	// nothing to revoke
	require.NoError(t, c.Revoke(context.Background()))
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestREST_ValidateUsername(t *testing.T) {
	c, mt := newTestRESTClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/validate-username", httpmock.NewStringResponder(http.StatusOK, ""))
	require.NoError(t, c.ValidateUsername(context.Background(), "alice"))

	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/validate-username", errorResponder(http.StatusConflict, "username is already in use"))
	require.ErrorIs(t, c.ValidateUsername(context.Background(), "alice"), common.ErrUsernameTaken)
}

func TestREST_TwoFactorAndArchive(t *testing.T) {
	c, mt := newTestRESTClient(t)
	c.SetTokens("A1", "R1")

	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/two-factor/enable",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.TwoFactorEnableResponse{Secret: "S", QrCodeUrl: "otpauth://x"}))
	mt.RegisterResponder(http.MethodPost, baseURL+"/v1/auth/two-factor/confirm",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.TwoFactorConfirmResponse{RecoveryCodes: []string{"r1", "r2"}}))
	mt.RegisterResponder(http.MethodGet, baseURL+"/v1/vault/archive/2",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.ArchiveLinkResponse{Url: "https://s3/x"}))

	setup, err := c.EnableTwoFactor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S", setup.Secret)

	confirm, err := c.ConfirmTwoFactor(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, confirm.RecoveryCodes)

	url, err := c.ArchiveLink(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/x", url)
}
