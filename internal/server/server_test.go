package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/meetbot/internal/logger"
	"github.com/oggyb/meetbot/internal/server"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/meetbot.v1.MatchEngine/PickNext"}

func TestNewGRPCServer_RunsRegistrars(t *testing.T) {
	called := 0
	gs := server.NewGRPCServer(logger.Discard(), server.RegistrarFunc(func(s *grpc.Server) {
		called++
		assert.NotNil(t, s)
	}))
	defer gs.Stop()

	assert.Equal(t, 1, called)
	// reflection is always registered
	assert.Contains(t, gs.GetServiceInfo(), "grpc.reflection.v1.ServerReflection")
}

func TestTimeoutInterceptor(t *testing.T) {
	intercept := server.TimeoutInterceptor(50 * time.Millisecond)

	_, err := intercept(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		dl, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), dl, 50*time.Millisecond)
		return nil, nil
	})
	require.NoError(t, err)

	// An existing deadline is kept.
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := ctx.Deadline()
	_, err = intercept(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got)
		return nil, nil
	})
	require.NoError(t, err)
}

func TestRecoveryInterceptor(t *testing.T) {
	intercept := server.RecoveryInterceptor(logger.Discard())

	_, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	intercept := server.LoggingInterceptor(logger.Discard())

	resp, err := intercept(context.Background(), "req", info, func(_ context.Context, req any) (any, error) {
		return req, status.Error(codes.NotFound, "nope")
	})
	assert.Equal(t, "req", resp)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
