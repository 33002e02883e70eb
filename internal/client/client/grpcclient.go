package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var refreshMethod = method(api.GRPCAuthService, "Refresh")

func method(service, name string) string {
	return "/" + service + "/" + name
}

// GRPCClient calls the aliasvault.v1 services using the json codec.
type GRPCClient struct {
	tokenHolder
	endpointURL string
	clientName  string
	conn        *grpc.ClientConn
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, refreshes the pair and retries the call once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = metadata.AppendToOutgoingContext(ctx, strings.ToLower(common.ClientHeaderName), s.clientName)

	access, refresh := s.Tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	var tokens api.TokenModel
	if err := invoker(ctx, refreshMethod, &api.RefreshRequest{Token: access, RefreshToken: refresh}, &tokens, cc, opts...); err != nil {
		return err
	}
	s.rotated(tokens.Token, tokens.RefreshToken)

	return invoker(withAccessToken(ctx, tokens.Token), method, req, reply, cc, opts...)
}

// NewGRPCClient creates a client for endpointURL (host:port). Extra dial
// options are appended to the defaults.
func NewGRPCClient(endpointURL, clientName string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, clientName: clientName}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(s.clientName),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.GRPCCodecName)),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}
	conn, err := grpc.NewClient(s.endpointURL, append(base, opts...)...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, service, name string, req, reply any) error {
	if err := s.conn.Invoke(ctx, method(service, name), req, reply); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	var kind error
	switch st.Code() {
	case codes.Unauthenticated:
		kind = unauthenticated(msg)
	case codes.PermissionDenied:
		kind = forbidden(msg)
	case codes.Aborted:
		kind = &common.ConflictError{LatestRevision: latestRevision(st)}
	case codes.AlreadyExists:
		kind = common.ErrUsernameTaken
	case codes.FailedPrecondition:
		kind = common.ErrVaultOutdated
	case codes.InvalidArgument:
		kind = common.ErrInvalidRequest
	case codes.NotFound:
		kind = common.ErrorNotFound
	case codes.ResourceExhausted:
		kind = ErrRateLimited
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	default:
		kind = common.ErrorInternal
	}
	return &ServerError{Message: msg, Err: kind}
}

func latestRevision(st *status.Status) int64 {
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetReason() != api.GRPCReasonVaultConflict {
			continue
		}
		n, err := strconv.ParseInt(info.GetMetadata()[api.GRPCLatestRevisionKey], 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}

func (s *GRPCClient) setFrom(t *api.TokenModel) {
	if t != nil && t.Token != "" {
		s.SetTokens(t.Token, t.RefreshToken)
	}
}

func (s *GRPCClient) Login(ctx context.Context, username string) (*api.LoginInitiateResponse, error) {
	var out api.LoginInitiateResponse
	if err := s.invoke(ctx, api.GRPCAuthService, "Login", &api.LoginRequest{Username: username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) validate(ctx context.Context, name string, req any) (*api.ValidateLoginResponse, error) {
	var out api.ValidateLoginResponse
	if err := s.invoke(ctx, api.GRPCAuthService, name, req, &out); err != nil {
		return nil, err
	}
	s.setFrom(out.Token)
	return &out, nil
}

func (s *GRPCClient) ValidateLogin(ctx context.Context, req *api.ValidateLoginRequest) (*api.ValidateLoginResponse, error) {
	return s.validate(ctx, "ValidateLogin", req)
}

func (s *GRPCClient) ValidateLoginTwoFactor(ctx context.Context, req *api.ValidateLoginTwoFactorRequest) (*api.ValidateLoginResponse, error) {
	return s.validate(ctx, "ValidateLoginTwoFactor", req)
}

func (s *GRPCClient) ValidateLoginRecoveryCode(ctx context.Context, req *api.ValidateLoginRecoveryCodeRequest) (*api.ValidateLoginResponse, error) {
	return s.validate(ctx, "ValidateLoginRecoveryCode", req)
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.TokenModel, error) {
	var out api.TokenModel
	if err := s.invoke(ctx, api.GRPCAuthService, "Register", req, &out); err != nil {
		return nil, err
	}
	s.setFrom(&out)
	return &out, nil
}

func (s *GRPCClient) ValidateUsername(ctx context.Context, username string) error {
	return s.invoke(ctx, api.GRPCAuthService, "ValidateUsername", &api.ValidateUsernameRequest{Username: username}, &api.Empty{})
}

func (s *GRPCClient) Revoke(ctx context.Context) error {
	access, refresh := s.Tokens()
	if refresh == "" {
		return nil
	}
	err := s.invoke(ctx, api.GRPCAuthService, "Revoke", &api.RefreshRequest{Token: access, RefreshToken: refresh}, &api.Empty{})
	s.SetTokens("", "")
	return err
}

func (s *GRPCClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := s.invoke(ctx, api.GRPCAuthService, "Status", &api.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) PasswordChangeInitiate(ctx context.Context) (*api.LoginInitiateResponse, error) {
	var out api.LoginInitiateResponse
	if err := s.invoke(ctx, api.GRPCAuthService, "PasswordChangeInitiate", &api.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) EnableTwoFactor(ctx context.Context) (*api.TwoFactorEnableResponse, error) {
	var out api.TwoFactorEnableResponse
	if err := s.invoke(ctx, api.GRPCAuthService, "EnableTwoFactor", &api.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) ConfirmTwoFactor(ctx context.Context, code string) (*api.TwoFactorConfirmResponse, error) {
	var out api.TwoFactorConfirmResponse
	if err := s.invoke(ctx, api.GRPCAuthService, "ConfirmTwoFactor", &api.TwoFactorCodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) DisableTwoFactor(ctx context.Context, code string) error {
	return s.invoke(ctx, api.GRPCAuthService, "DisableTwoFactor", &api.TwoFactorCodeRequest{Code: code}, &api.Empty{})
}

func (s *GRPCClient) GetVault(ctx context.Context) (*api.VaultGetResponse, error) {
	var out api.VaultGetResponse
	if err := s.invoke(ctx, api.GRPCVaultService, "Get", &api.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) MergeVaults(ctx context.Context, currentRevision int64) (*api.VaultMergeResponse, error) {
	var out api.VaultMergeResponse
	if err := s.invoke(ctx, api.GRPCVaultService, "Merge", &api.VaultMergeRequest{CurrentRevisionNumber: currentRevision}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) UpdateVault(ctx context.Context, v *api.Vault) (*api.VaultUpdateResponse, error) {
	var out api.VaultUpdateResponse
	if err := s.invoke(ctx, api.GRPCVaultService, "Update", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, req *api.PasswordChangeRequest) (*api.VaultUpdateResponse, error) {
	var out api.VaultUpdateResponse
	if err := s.invoke(ctx, api.GRPCVaultService, "ChangePassword", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) ArchiveLink(context.Context, int64) (string, error) {
	return "", ErrNotSupported
}

var (
	_ API = (*GRPCClient)(nil)
	_ API = (*RESTClient)(nil)
)
