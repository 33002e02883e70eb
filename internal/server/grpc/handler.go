package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
)

func toTokenModel(t *services.TokenPair) *api.TokenModel {
	if t == nil {
		return nil
	}
	return &api.TokenModel{Token: t.AccessToken, RefreshToken: t.RefreshToken}
}

func toLoginResponse(r *services.LoginResult) *api.ValidateLoginResponse {
	return &api.ValidateLoginResponse{
		RequiresTwoFactor:  r.RequiresTwoFactor,
		ServerSessionProof: r.ServerSessionProof,
		Token:              toTokenModel(r.Token),
	}
}

func toInitiateResponse(r *services.LoginInitiateResponse) *api.LoginInitiateResponse {
	return &api.LoginInitiateResponse{
		Salt:               r.Salt,
		ServerEphemeral:    r.ServerEphemeral,
		EncryptionType:     r.EncryptionType,
		EncryptionSettings: r.EncryptionSettings,
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

func toApiVault(v *models.Vault) api.Vault {
	return api.Vault{
		Blob:                  v.Blob,
		Version:               v.Version,
		CurrentRevisionNumber: v.RevisionNumber,
		CredentialsCount:      v.CredentialsCount,
		EmailAddressCount:     v.EmailAddressCount,
		Client:                v.Client,
		Salt:                  v.Salt,
		Verifier:              v.Verifier,
		EncryptionType:        v.EncryptionType,
		EncryptionSettings:    v.EncryptionSettings,
		CreatedAt:             v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toUpload(v api.Vault, client string) services.VaultUpload {
	if client == "" {
		client = v.Client
	}
	return services.VaultUpload{
		Blob:                  v.Blob,
		Version:               v.Version,
		CurrentRevisionNumber: v.CurrentRevisionNumber,
		CredentialsCount:      v.CredentialsCount,
		EmailAddressCount:     v.EmailAddressCount,
		Client:                client,
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginInitiateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	resp, err := s.auth.LoginInitiate(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toInitiateResponse(resp), nil
}

func (s *GRPCServer) ValidateLogin(ctx context.Context, req *api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	res, err := s.auth.LoginValidate(ctx, toValidateRequest(*req), clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toLoginResponse(res), nil
}

func (s *GRPCServer) ValidateLoginTwoFactor(ctx context.Context, req *api.ValidateLoginTwoFactorRequest) (*api.ValidateLoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	res, err := s.auth.LoginValidateTwoFactor(ctx, toValidateRequest(req.ValidateLoginRequest), req.Code, clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toLoginResponse(res), nil
}

func (s *GRPCServer) ValidateLoginRecoveryCode(ctx context.Context, req *api.ValidateLoginRecoveryCodeRequest) (*api.ValidateLoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	res, err := s.auth.LoginValidateRecoveryCode(ctx, toValidateRequest(req.ValidateLoginRequest), req.RecoveryCode, clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toLoginResponse(res), nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.TokenModel, error) {

	s.logger.Info(ctx, "Registration request")

	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	tokens, err := s.auth.Register(ctx, services.RegisterRequest{
		Username:           req.Username,
		Salt:               req.Salt,
		Verifier:           req.Verifier,
		EncryptionType:     req.EncryptionType,
		EncryptionSettings: req.EncryptionSettings,
	}, clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username)
	return toTokenModel(tokens), nil
}

func (s *GRPCServer) ValidateUsername(ctx context.Context, req *api.ValidateUsernameRequest) (*api.Empty, error) {
	if err := s.auth.ValidateUsername(ctx, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.TokenModel, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	tokens, err := s.auth.Refresh(ctx, req.Token, req.RefreshToken, clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toTokenModel(tokens), nil
}

func (s *GRPCServer) Revoke(ctx context.Context, req *api.RefreshRequest) (*api.Empty, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	if err := s.auth.Revoke(ctx, req.Token, req.RefreshToken, clientInfo(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) Status(ctx context.Context, _ *api.Empty) (*api.StatusResponse, error) {
	st, err := s.auth.Status(ctx, userIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.StatusResponse{
		ClientVersionSupported:    true,
		ServerVersion:             st.ServerVersion,
		VaultRevision:             st.VaultRevision,
		PublicRegistrationEnabled: st.PublicRegistrationEnabled,
	}, nil
}

func (s *GRPCServer) PasswordChangeInitiate(ctx context.Context, _ *api.Empty) (*api.LoginInitiateResponse, error) {
	resp, err := s.auth.PasswordChangeInitiate(ctx, userIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toInitiateResponse(resp), nil
}

func (s *GRPCServer) EnableTwoFactor(ctx context.Context, _ *api.Empty) (*api.TwoFactorEnableResponse, error) {
	setup, err := s.auth.EnableTwoFactor(ctx, userIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TwoFactorEnableResponse{Secret: setup.Secret, QrCodeUrl: setup.URI}, nil
}

func (s *GRPCServer) ConfirmTwoFactor(ctx context.Context, req *api.TwoFactorCodeRequest) (*api.TwoFactorConfirmResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	codes, err := s.auth.ConfirmTwoFactor(ctx, userIDFromContext(ctx), req.Code, clientInfo(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TwoFactorConfirmResponse{RecoveryCodes: codes}, nil
}

func (s *GRPCServer) DisableTwoFactor(ctx context.Context, req *api.TwoFactorCodeRequest) (*api.Empty, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	if err := s.auth.DisableTwoFactor(ctx, userIDFromContext(ctx), req.Code, clientInfo(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) GetVault(ctx context.Context, _ *api.Empty) (*api.VaultGetResponse, error) {
	v, err := s.vaults.GetLatest(ctx, userIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.VaultGetResponse{Status: api.VaultStatusOk, Vault: toApiVault(v)}, nil
}

func (s *GRPCServer) MergeVault(ctx context.Context, req *api.VaultMergeRequest) (*api.VaultMergeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	list, err := s.vaults.ListSince(ctx, userIDFromContext(ctx), req.CurrentRevisionNumber)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.VaultMergeResponse{Vaults: make([]api.Vault, 0, len(list))}
	for _, v := range list {
		resp.Vaults = append(resp.Vaults, toApiVault(v))
	}
	return resp, nil
}

func (s *GRPCServer) UpdateVault(ctx context.Context, req *api.Vault) (*api.VaultUpdateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	rev, err := s.vaults.AppendRevision(ctx, userIDFromContext(ctx), toUpload(*req, clientInfo(ctx).Client))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.VaultUpdateResponse{Status: api.VaultStatusOk, NewRevisionNumber: rev}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.PasswordChangeRequest) (*api.VaultUpdateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidArgument(err)
	}
	client := clientInfo(ctx)
	rev, err := s.auth.PasswordChange(ctx, userIDFromContext(ctx), services.PasswordChangeRequest{
		CurrentClientPublicEphemeral: req.CurrentClientPublicEphemeral,
		CurrentClientSessionProof:    req.CurrentClientSessionProof,
		NewSalt:                      req.NewPasswordSalt,
		NewVerifier:                  req.NewPasswordVerifier,
		Vault:                        toUpload(req.Vault, client.Client),
	}, client)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.VaultUpdateResponse{Status: api.VaultStatusOk, NewRevisionNumber: rev}, nil
}
