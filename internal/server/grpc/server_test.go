package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

func TestServe_AnswersUntilCancelled(t *testing.T) {
	auth := &fakeAuth{}
	srv, err := NewGRPCServer("", nopLogger{}, auth, &fakeVaults{}, testSecret)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.GRPCCodecName)),
	)
	require.NoError(t, err)
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(ctx, 2*time.Second)
	defer callCancel()
	var out api.LoginInitiateResponse
	err = conn.Invoke(callCtx, "/"+authServiceName+"/Login", &api.LoginRequest{Username: "alice"}, &out)
	require.NoError(t, err)
	require.Equal(t, "alice", auth.gotUsername)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRun_BadAddress(t *testing.T) {
	srv, err := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &fakeAuth{}, &fakeVaults{}, testSecret)
	require.NoError(t, err)

	require.Error(t, srv.Run(context.Background()))
}
