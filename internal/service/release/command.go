package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
	"github.com/oshokin/gpufan/internal/repository/state"
	"github.com/oshokin/gpufan/internal/service/common"
	"github.com/oshokin/gpufan/internal/service/controller"
)

// Options controls the release command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the log level from the settings.
	LogLevel string
	// Force releases even when the marker belongs to a live controller.
	Force bool
}

// Dependencies are the collaborators Release talks to.
type Dependencies struct {
	// Telemetry counts devices.
	Telemetry fan.Telemetry
	// Actuator sends fan commands.
	Actuator fan.Actuator
	// Markers holds the takeover marker. Nil skips marker handling.
	Markers state.Repository
	// Processes inspects the process recorded in a marker.
	Processes common.ProcessTable
	// Executable is the process name a live controller runs under.
	Executable string
}

// Run restores automatic fan control on every device.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := common.LoadSettings(opts.ConfigPath, common.Overrides{LogLevel: opts.LogLevel})
	if err != nil {
		return err
	}

	common.ConfigureLogging(cfg)
	defer logger.Close()

	ctx = logger.WithName(ctx, "gpufan-release")

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	defer func() {
		_ = backend.Close()
	}()

	return Release(ctx, &Dependencies{
		Telemetry:  backend.Telemetry,
		Actuator:   backend.Actuator,
		Markers:    state.NewFileRepository(cfg.StateFile),
		Processes:  common.SystemProcesses{},
		Executable: filepath.Base(os.Args[0]),
	}, opts.Force)
}

// Release disables manual fan control on every device that is either
// enumerated now or recorded in the takeover marker, then removes the marker.
func Release(ctx context.Context, deps *Dependencies, force bool) error {
	marker, err := loadMarker(ctx, deps.Markers)
	if err != nil {
		return err
	}

	if marker != nil && !force {
		held, heldErr := common.IsHeldBy(deps.Processes, marker.PID, deps.Executable)
		if heldErr != nil {
			return fmt.Errorf("inspect marker owner: %w", heldErr)
		}

		if held {
			return fmt.Errorf("%w: pid %d, stop it first or use --force", controller.ErrAlreadyRunning, marker.PID)
		}
	}

	count, err := deps.Telemetry.DeviceCount(ctx)
	if err != nil {
		if marker == nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}

		logger.WarnKV(ctx, "Enumeration failed, using device count from takeover marker", "error", err)
	}

	if marker != nil {
		count = max(count, marker.DeviceCount)
	}

	logger.InfoKV(ctx, "Restoring automatic fan control", "devices", count)

	if err = controller.ReleaseDevices(ctx, deps.Actuator, count); err != nil {
		return err
	}

	if deps.Markers != nil {
		if err = deps.Markers.Remove(ctx); err != nil {
			return fmt.Errorf("remove takeover marker: %w", err)
		}
	}

	logger.Info(ctx, "Automatic fan control restored")

	return nil
}

func loadMarker(ctx context.Context, markers state.Repository) (*fan.Takeover, error) {
	if markers == nil {
		return nil, nil //nolint:nilnil // No repository means no marker.
	}

	marker, err := markers.Load(ctx)

	switch {
	case errors.Is(err, state.ErrNotFound):
		return nil, nil //nolint:nilnil // A missing marker is not an error here.
	case err != nil:
		logger.WarnKV(ctx, "Ignoring unreadable takeover marker", "error", err)
		return nil, nil //nolint:nilnil // Released by enumeration alone.
	}

	return marker, nil
}
