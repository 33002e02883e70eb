package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AuthApi struct {
	auth     services.Authenticator
	validate *validator.Validate
	logger   logging.Logger
}

func NewAuthApi(auth services.Authenticator, logger logging.Logger) *AuthApi {
	return &AuthApi{auth: auth, validate: validator.New(), logger: logger}
}

func toTokenModel(t *services.TokenPair) *api.TokenModel {
	if t == nil {
		return nil
	}
	return &api.TokenModel{Token: t.AccessToken, RefreshToken: t.RefreshToken}
}

func toLoginResponse(r *services.LoginResult) api.ValidateLoginResponse {
	return api.ValidateLoginResponse{
		RequiresTwoFactor:  r.RequiresTwoFactor,
		ServerSessionProof: r.ServerSessionProof,
		Token:              toTokenModel(r.Token),
	}
}

func toValidateRequest(r api.ValidateLoginRequest) services.LoginValidateRequest {
	return services.LoginValidateRequest{
		Username:              r.Username,
		ClientPublicEphemeral: r.ClientPublicEphemeral,
		ClientSessionProof:    r.ClientSessionProof,
		RememberMe:            r.RememberMe,
	}
}

// Login is the first SRP step. It answers the same way for unknown users.
func (a *AuthApi) Login(c *gin.Context) {
	var req api.LoginRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	resp, err := a.auth.LoginInitiate(c.Request.Context(), req.Username)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.LoginInitiateResponse{
		Salt:               resp.Salt,
		ServerEphemeral:    resp.ServerEphemeral,
		EncryptionType:     resp.EncryptionType,
		EncryptionSettings: resp.EncryptionSettings,
	})
}

func (a *AuthApi) ValidateLogin(c *gin.Context) {
	var req api.ValidateLoginRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	res, err := a.auth.LoginValidate(c.Request.Context(), toValidateRequest(req), clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

func (a *AuthApi) ValidateLoginTwoFactor(c *gin.Context) {
	var req api.ValidateLoginTwoFactorRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	res, err := a.auth.LoginValidateTwoFactor(c.Request.Context(), toValidateRequest(req.ValidateLoginRequest), req.Code, clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

func (a *AuthApi) ValidateLoginRecoveryCode(c *gin.Context) {
	var req api.ValidateLoginRecoveryCodeRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	res, err := a.auth.LoginValidateRecoveryCode(c.Request.Context(), toValidateRequest(req.ValidateLoginRequest), req.RecoveryCode, clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

func (a *AuthApi) Register(c *gin.Context) {
	var req api.RegisterRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	tokens, err := a.auth.Register(c.Request.Context(), services.RegisterRequest{
		Username:           req.Username,
		Salt:               req.Salt,
		Verifier:           req.Verifier,
		EncryptionType:     req.EncryptionType,
		EncryptionSettings: req.EncryptionSettings,
	}, clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenModel(tokens))
}

func (a *AuthApi) ValidateUsername(c *gin.Context) {
	var req api.ValidateUsernameRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	if err := a.auth.ValidateUsername(c.Request.Context(), req.Username); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (a *AuthApi) Refresh(c *gin.Context) {
	var req api.RefreshRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	tokens, err := a.auth.Refresh(c.Request.Context(), req.Token, req.RefreshToken, clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenModel(tokens))
}

func (a *AuthApi) Revoke(c *gin.Context) {
	var req api.RefreshRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	if err := a.auth.Revoke(c.Request.Context(), req.Token, req.RefreshToken, clientInfo(c)); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (a *AuthApi) Status(c *gin.Context) {
	st, err := a.auth.Status(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.StatusResponse{
		ClientVersionSupported:    true,
		ServerVersion:             st.ServerVersion,
		VaultRevision:             st.VaultRevision,
		PublicRegistrationEnabled: st.PublicRegistrationEnabled,
	})
}

func (a *AuthApi) PasswordChangeInitiate(c *gin.Context) {
	resp, err := a.auth.PasswordChangeInitiate(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.LoginInitiateResponse{
		Salt:               resp.Salt,
		ServerEphemeral:    resp.ServerEphemeral,
		EncryptionType:     resp.EncryptionType,
		EncryptionSettings: resp.EncryptionSettings,
	})
}

func (a *AuthApi) EnableTwoFactor(c *gin.Context) {
	setup, err := a.auth.EnableTwoFactor(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.TwoFactorEnableResponse{Secret: setup.Secret, QrCodeUrl: setup.URI})
}

func (a *AuthApi) ConfirmTwoFactor(c *gin.Context) {
	var req api.TwoFactorCodeRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	codes, err := a.auth.ConfirmTwoFactor(c.Request.Context(), userID(c), req.Code, clientInfo(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.TwoFactorConfirmResponse{RecoveryCodes: codes})
}

func (a *AuthApi) DisableTwoFactor(c *gin.Context) {
	var req api.TwoFactorCodeRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	if err := a.auth.DisableTwoFactor(c.Request.Context(), userID(c), req.Code, clientInfo(c)); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
