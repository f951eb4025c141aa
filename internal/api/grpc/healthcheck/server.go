package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

// ServiceName is the health service name reported for the controller.
const ServiceName = "gpufan"

// Server serves grpc.health.v1 for the controller.
type Server struct {
	// grpcServer is the underlying gRPC server.
	grpcServer *grpc.Server
	// health holds the serving status of every service name.
	health *health.Server
	// listener accepts health check connections.
	listener net.Listener
	// done is closed when Serve returns.
	done chan struct{}
	// stopOnce makes Stop idempotent.
	stopOnce sync.Once
}

// Listen binds address and starts serving in the background.
// The controller starts as NOT_SERVING.
func Listen(ctx context.Context, address string) (*Server, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	s := &Server{
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		listener:   lis,
		done:       make(chan struct{}),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.SetControlState(fan.Uncontrolled)

	go func() {
		defer close(s.done)

		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "Health server stopped unexpectedly", "error", err)
		}
	}()

	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", s.Address())

	return s, nil
}

// Address returns the bound listen address.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// SetControlState maps the control state onto the health status.
func (s *Server) SetControlState(state fan.ControlState) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == fan.Controlled {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Stop marks every service NOT_SERVING and shuts the server down gracefully.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		<-s.done
	})
}
