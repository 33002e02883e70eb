package grpc

import (
	"context"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"google.golang.org/grpc"
)

const (
	authServiceName  = api.GRPCAuthService
	vaultServiceName = api.GRPCVaultService
)

// unary adapts a typed handler to a grpc.MethodDesc. The request is decoded
// by the json codec before interceptors run.
func unary[Req, Resp any](service, method string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: authServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(authServiceName, "Login", (*GRPCServer).Login),
		unary(authServiceName, "ValidateLogin", (*GRPCServer).ValidateLogin),
		unary(authServiceName, "ValidateLoginTwoFactor", (*GRPCServer).ValidateLoginTwoFactor),
		unary(authServiceName, "ValidateLoginRecoveryCode", (*GRPCServer).ValidateLoginRecoveryCode),
		unary(authServiceName, "Register", (*GRPCServer).Register),
		unary(authServiceName, "ValidateUsername", (*GRPCServer).ValidateUsername),
		unary(authServiceName, "Refresh", (*GRPCServer).Refresh),
		unary(authServiceName, "Revoke", (*GRPCServer).Revoke),
		unary(authServiceName, "Status", (*GRPCServer).Status),
		unary(authServiceName, "PasswordChangeInitiate", (*GRPCServer).PasswordChangeInitiate),
		unary(authServiceName, "EnableTwoFactor", (*GRPCServer).EnableTwoFactor),
		unary(authServiceName, "ConfirmTwoFactor", (*GRPCServer).ConfirmTwoFactor),
		unary(authServiceName, "DisableTwoFactor", (*GRPCServer).DisableTwoFactor),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aliasvault/v1/json",
}

var vaultServiceDesc = grpc.ServiceDesc{
	ServiceName: vaultServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(vaultServiceName, "Get", (*GRPCServer).GetVault),
		unary(vaultServiceName, "Merge", (*GRPCServer).MergeVault),
		unary(vaultServiceName, "Update", (*GRPCServer).UpdateVault),
		unary(vaultServiceName, "ChangePassword", (*GRPCServer).ChangePassword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aliasvault/v1/json",
}

// publicMethods can be called without an access token.
var publicMethods = map[string]bool{
	"/" + authServiceName + "/Login":                     true,
	"/" + authServiceName + "/ValidateLogin":             true,
	"/" + authServiceName + "/ValidateLoginTwoFactor":    true,
	"/" + authServiceName + "/ValidateLoginRecoveryCode": true,
	"/" + authServiceName + "/Register":                  true,
	"/" + authServiceName + "/ValidateUsername":          true,
	"/" + authServiceName + "/Refresh":                   true,
	"/" + authServiceName + "/Revoke":                    true,
}
