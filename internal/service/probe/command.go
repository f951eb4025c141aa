package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/gpufan/internal/api/grpc/healthcheck"
	"github.com/oshokin/gpufan/internal/logger"
	"github.com/oshokin/gpufan/internal/service/common"
)

// Options controls the health command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the health address from the settings.
	Address string
	// Timeout is the per-call timeout. Zero uses the command timeout from the settings.
	Timeout time.Duration
	// Output receives the status line. Nil uses stdout.
	Output io.Writer
}

var (
	// ErrNotServing is returned when the controller does not hold the fans.
	ErrNotServing = errors.New("controller is not serving")
	// errNoAddress is returned when neither the flag nor the settings name an address.
	errNoAddress = errors.New("health address is not configured")
)

// Run probes the controller and prints its status.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "gpufan-health")

	cfg, err := common.LoadSettings(opts.ConfigPath, common.Overrides{})
	if err != nil {
		return err
	}

	address := cfg.HealthAddress
	if opts.Address != "" {
		address = opts.Address
	}

	if address == "" {
		return errNoAddress
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.CommandTimeout
	}

	status, err := Check(ctx, address, timeout)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	_, _ = fmt.Fprintf(output, "%s: %s\n", address, status)

	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, status)
	}

	return nil
}

// Check returns the serving status of the controller at address.
func Check(ctx context.Context, address string, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	client, err := common.Dial(ctx, address, common.WithCallTimeout(timeout))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}

	defer func() {
		_ = client.Close()
	}()

	status, err := client.Check(ctx, healthcheck.ServiceName)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}

	logger.DebugKV(ctx, "Health status received", "address", address, "status", status.String())

	return status, nil
}
