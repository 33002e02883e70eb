// Package grpc exposes the auth and vault services over gRPC. Messages are
// the api package structs encoded with a JSON codec.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/metrics"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	auth      services.Authenticator
	vaults    services.VaultStore
	validate  *validator.Validate
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, as services.Authenticator, vs services.VaultStore, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		auth:      as,
		vaults:    vs,
		validate:  validator.New(),
		jwtSecret: []byte(secretKey),
	}, nil
}

// newServer creates the grpc.Server with interceptors and both services
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor(), s.accessTokenInterceptor))
	srv.RegisterService(&authServiceDesc, s)
	srv.RegisterService(&vaultServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, lis)
}

// serve accepts connections on lis. Cancelling ctx drains in-flight calls
// and makes serve return nil.
func (s *GRPCServer) serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	<-stopped
	return nil
}
