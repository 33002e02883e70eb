package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/server/auth"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// accessTokenInterceptor requires a valid access token on every method
// outside publicMethods and stores the user id in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !publicMethods[info.FullMethod] {

		accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := auth.ParseToken(accessToken, s.jwtSecret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, UserIDKey, claims.UserID)

	}

	return handler(ctx, req)
}

// clientInfo reads the caller description from metadata and the peer.
func clientInfo(ctx context.Context) services.ClientInfo {
	ci := services.ClientInfo{
		UserAgent:      firstMetadata(ctx, "user-agent"),
		AcceptLanguage: firstMetadata(ctx, "accept-language"),
		Client:         firstMetadata(ctx, strings.ToLower(common.ClientHeaderName)),
	}
	if fwd := firstMetadata(ctx, "x-forwarded-for"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		ci.IPAddress = strings.TrimSpace(first)
	} else if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err != nil {
			host = p.Addr.String()
		}
		ci.IPAddress = host
	}
	return ci
}
