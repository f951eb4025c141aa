package healthcheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// check asks the server for the status of the gpufan service.
func check(t *testing.T, address string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() {
		_ = conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)

	return resp.GetStatus()
}

// TestServer_FollowsControlState verifies the reported status tracks takeover and release.
func TestServer_FollowsControlState(t *testing.T) {
	t.Parallel()

	s, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	defer s.Stop()

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s.Address()))

	s.SetControlState(fan.Controlled)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s.Address()))

	s.SetControlState(fan.Uncontrolled)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s.Address()))
}

// TestServer_StopIsIdempotent ensures Stop can be called more than once.
func TestServer_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	s.Stop()
	s.Stop()
}

// TestListen_BadAddress reports listen failures.
func TestListen_BadAddress(t *testing.T) {
	t.Parallel()

	_, err := Listen(context.Background(), "256.0.0.1:bad")
	require.Error(t, err)
}
