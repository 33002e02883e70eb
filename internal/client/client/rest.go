package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/go-resty/resty/v2"
)

// RESTClient talks to the /v1 HTTP API.
type RESTClient struct {
	tokenHolder
	http *resty.Client
}

// NewRESTClient builds a client for baseURL (scheme and host, without /v1).
// clientName is sent in the client header and as the User-Agent.
func NewRESTClient(baseURL, clientName string, timeout time.Duration) *RESTClient {
	cl := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/") + "/v1").SetTimeout(timeout)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", clientName)
	cl.SetHeader(common.ClientHeaderName, clientName)
	return &RESTClient{http: cl}
}

func (c *RESTClient) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func (c *RESTClient) send(ctx context.Context, method, path string, body, result any, authorized bool) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx).SetError(&api.Error{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if authorized {
		access, _ := c.Tokens()
		if access == "" {
			return nil, ErrUnauthorized
		}
		req.SetAuthToken(access)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// call performs a request and decodes the result. An authorized call that
// fails with an expired access token is retried once after a refresh.
func (c *RESTClient) call(ctx context.Context, method, path string, body, result any, authorized bool) error {
	resp, err := c.send(ctx, method, path, body, result, authorized)
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}

	callErr := mapRESTError(resp)
	if !authorized || !errors.Is(callErr, common.ErrTokenExpired) {
		return callErr
	}

	if err := c.refreshTokens(ctx); err != nil {
		return err
	}
	resp, err = c.send(ctx, method, path, body, result, authorized)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return mapRESTError(resp)
	}
	return nil
}

func (c *RESTClient) refreshTokens(ctx context.Context) error {
	access, refresh := c.Tokens()
	if refresh == "" {
		return ErrUnauthorized
	}
	var out api.TokenModel
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", &api.RefreshRequest{Token: access, RefreshToken: refresh}, &out, false)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return mapRESTError(resp)
	}
	c.rotated(out.Token, out.RefreshToken)
	return nil
}

func mapRESTError(resp *resty.Response) error {
	msg := http.StatusText(resp.StatusCode())
	var latest int64
	if e, ok := resp.Error().(*api.Error); ok && e.Message != "" {
		msg = e.Message
		latest = e.LatestRevision
	}

	var kind error
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		kind = unauthenticated(msg)
	case http.StatusForbidden, http.StatusLocked:
		kind = forbidden(msg)
	case http.StatusConflict:
		if strings.Contains(strings.ToLower(msg), "vault") {
			kind = &common.ConflictError{LatestRevision: latest}
		} else {
			kind = common.ErrUsernameTaken
		}
	case http.StatusBadRequest:
		kind = badRequest(msg)
	case http.StatusNotFound:
		kind = common.ErrorNotFound
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		kind = ErrUnavailable
	default:
		kind = common.ErrorInternal
	}
	return &ServerError{Message: msg, Err: kind}
}

func (c *RESTClient) setFrom(t *api.TokenModel) {
	if t != nil && t.Token != "" {
		c.SetTokens(t.Token, t.RefreshToken)
	}
}

func (c *RESTClient) Login(ctx context.Context, username string) (*api.LoginInitiateResponse, error) {
	var out api.LoginInitiateResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", &api.LoginRequest{Username: username}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) validate(ctx context.Context, path string, req any) (*api.ValidateLoginResponse, error) {
	var out api.ValidateLoginResponse
	if err := c.call(ctx, http.MethodPost, path, req, &out, false); err != nil {
		return nil, err
	}
	c.setFrom(out.Token)
	return &out, nil
}

func (c *RESTClient) ValidateLogin(ctx context.Context, req *api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
	return c.validate(ctx, "/auth/validate-login", req)
}

func (c *RESTClient) ValidateLoginTwoFactor(ctx context.Context, req *api.ValidateLoginTwoFactorRequest) (*api.ValidateLoginResponse, error) {
	return c.validate(ctx, "/auth/validate-login-2fa", req)
}

func (c *RESTClient) ValidateLoginRecoveryCode(ctx context.Context, req *api.ValidateLoginRecoveryCodeRequest) (*api.ValidateLoginResponse, error) {
	return c.validate(ctx, "/auth/validate-login-recovery-code", req)
}

func (c *RESTClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.TokenModel, error) {
	var out api.TokenModel
	if err := c.call(ctx, http.MethodPost, "/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	c.setFrom(&out)
	return &out, nil
}

func (c *RESTClient) ValidateUsername(ctx context.Context, username string) error {
	return c.call(ctx, http.MethodPost, "/auth/validate-username", &api.ValidateUsernameRequest{Username: username}, nil, false)
}

// Revoke invalidates the refresh token on the server and forgets both tokens.
func (c *RESTClient) Revoke(ctx context.Context) error {
	access, refresh := c.Tokens()
	if refresh == "" {
		return nil
	}
	err := c.call(ctx, http.MethodPost, "/auth/revoke", &api.RefreshRequest{Token: access, RefreshToken: refresh}, nil, false)
	c.SetTokens("", "")
	return err
}

func (c *RESTClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.call(ctx, http.MethodGet, "/status", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) PasswordChangeInitiate(ctx context.Context) (*api.LoginInitiateResponse, error) {
	var out api.LoginInitiateResponse
	if err := c.call(ctx, http.MethodGet, "/auth/change-password/initiate", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) EnableTwoFactor(ctx context.Context) (*api.TwoFactorEnableResponse, error) {
	var out api.TwoFactorEnableResponse
	if err := c.call(ctx, http.MethodPost, "/auth/two-factor/enable", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ConfirmTwoFactor(ctx context.Context, code string) (*api.TwoFactorConfirmResponse, error) {
	var out api.TwoFactorConfirmResponse
	if err := c.call(ctx, http.MethodPost, "/auth/two-factor/confirm", &api.TwoFactorCodeRequest{Code: code}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DisableTwoFactor(ctx context.Context, code string) error {
	return c.call(ctx, http.MethodPost, "/auth/two-factor/disable", &api.TwoFactorCodeRequest{Code: code}, nil, true)
}

func (c *RESTClient) GetVault(ctx context.Context) (*api.VaultGetResponse, error) {
	var out api.VaultGetResponse
	if err := c.call(ctx, http.MethodGet, "/vault", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) MergeVaults(ctx context.Context, currentRevision int64) (*api.VaultMergeResponse, error) {
	var out api.VaultMergeResponse
	path := "/vault/merge?currentRevisionNumber=" + strconv.FormatInt(currentRevision, 10)
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) UpdateVault(ctx context.Context, v *api.Vault) (*api.VaultUpdateResponse, error) {
	var out api.VaultUpdateResponse
	if err := c.call(ctx, http.MethodPost, "/vault", v, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ChangePassword(ctx context.Context, req *api.PasswordChangeRequest) (*api.VaultUpdateResponse, error) {
	var out api.VaultUpdateResponse
	if err := c.call(ctx, http.MethodPost, "/vault/change-password", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ArchiveLink(ctx context.Context, revision int64) (string, error) {
	var out api.ArchiveLinkResponse
	if err := c.call(ctx, http.MethodGet, "/vault/archive/"+strconv.FormatInt(revision, 10), nil, &out, true); err != nil {
		return "", err
	}
	return out.Url, nil
}
