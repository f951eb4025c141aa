package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/gpufan/internal/api/grpc/healthcheck"
	"github.com/oshokin/gpufan/internal/api/mqtt"
	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
	"github.com/oshokin/gpufan/internal/repository/state"
	"github.com/oshokin/gpufan/internal/service/common"
)

// Options controls how the controller is started from the command line.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// SpeedTablePath overrides the speed table location from the settings.
	SpeedTablePath string
	// LogLevel overrides the log level from the settings.
	LogLevel string
	// Output receives speed change lines. Nil uses stdout.
	Output io.Writer
}

// Dependencies are the collaborators Serve talks to.
type Dependencies struct {
	// Telemetry reads device state.
	Telemetry fan.Telemetry
	// Actuator sends fan commands.
	Actuator fan.Actuator
	// Markers persists the takeover marker. Nil disables the marker.
	Markers state.Repository
	// Processes inspects the process recorded in a marker. Nil uses the system table.
	Processes common.ProcessTable
	// Executable is the process name a live controller runs under.
	Executable string
	// Notices receives speed change lines. Nil uses stdout.
	Notices io.Writer
	// Reporters are told about control state changes in addition to the health endpoint.
	Reporters []StateReporter
	// Observers are told about every fan speed change.
	Observers []ChangeObserver
}

// ErrAlreadyRunning is returned when another live controller holds the fans.
var ErrAlreadyRunning = errors.New("another controller holds fan control")

// Run loads settings, builds the hardware backend and serves until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := common.LoadSettings(opts.ConfigPath, common.Overrides{
		SpeedTable: opts.SpeedTablePath,
		LogLevel:   opts.LogLevel,
	})
	if err != nil {
		return err
	}

	common.ConfigureLogging(cfg)
	defer logger.Close()

	// The named logger must be derived from the configured one.
	ctx = logger.WithName(ctx, "gpufan")

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close backend", "error", closeErr)
		}
	}()

	executable := filepath.Base(os.Args[0])
	warnAboutOtherInstances(ctx, executable)

	deps := &Dependencies{
		Telemetry:  backend.Telemetry,
		Actuator:   backend.Actuator,
		Markers:    state.NewFileRepository(cfg.StateFile),
		Processes:  common.SystemProcesses{},
		Executable: executable,
		Notices:    opts.Output,
	}

	if cfg.MQTT.Broker != "" {
		publisher, connectErr := mqtt.Connect(ctx, &cfg.MQTT)
		if connectErr != nil {
			return fmt.Errorf("connect event publisher: %w", connectErr)
		}

		defer publisher.Close()

		deps.Reporters = append(deps.Reporters, publisher)
		deps.Observers = append(deps.Observers, publisher)
	}

	return Serve(ctx, cfg, deps)
}

// Serve takes the fans over and runs the control loop until ctx is cancelled.
// Once any device has been touched, every exit path hands control back.
//
//nolint:cyclop,funlen // The startup sequence is linear and reads best in one place.
func Serve(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	deps = withDefaults(deps)

	table, err := config.LoadSpeedTable(cfg.SpeedTable)
	if err != nil {
		return fmt.Errorf("load speed table: %w", err)
	}

	lowest, highest := table.Range()
	logger.InfoKV(ctx, "Speed table loaded",
		"path", cfg.SpeedTable, "entries", table.Len(), "lowest", lowest, "highest", highest)

	policy := NewReloadablePolicy(table)

	if cfg.WatchSpeedTable {
		stopWatching := watchSpeedTable(ctx, cfg.SpeedTable, policy)
		defer stopWatching()
	}

	if err = recoverStaleTakeover(ctx, deps); err != nil {
		return err
	}

	reporters := append([]StateReporter(nil), deps.Reporters...)

	if cfg.HealthAddress != "" {
		server, listenErr := healthcheck.Listen(ctx, cfg.HealthAddress)
		if listenErr != nil {
			return fmt.Errorf("start health endpoint: %w", listenErr)
		}

		// Registered first so it stops after release has been reported.
		defer server.Stop()

		reporters = append(reporters, server)
	}

	manager := NewManager(deps.Telemetry, deps.Actuator, reporters...)

	count, err := manager.Enumerate(ctx)
	if err != nil {
		return interrupted(ctx, fmt.Errorf("enumerate devices: %w", err))
	}

	defer restore(ctx, cfg.ReleaseTimeout, manager, deps.Markers)

	saveMarker(ctx, deps.Markers, count)

	if err = manager.Takeover(ctx); err != nil {
		return interrupted(ctx, err)
	}

	loop := NewLoop(LoopConfig{
		Telemetry:         deps.Telemetry,
		Actuator:          deps.Actuator,
		Policy:            policy,
		DeviceCount:       count,
		Interval:          cfg.PollInterval,
		Notices:           deps.Notices,
		SkipFailedQueries: cfg.SkipFailedQueries(),
		Observers:         deps.Observers,
	})

	if err = loop.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Control loop failed", "error", err)
		return err
	}

	logger.Info(ctx, "Received interrupt, restoring automatic fan control")

	return nil
}

// watchSpeedTable reloads policy from path in the background until the
// returned function is called.
func watchSpeedTable(ctx context.Context, path string, policy *ReloadablePolicy) func() {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := config.WatchSpeedTable(watchCtx, path, policy.Store); err != nil {
			logger.WarnKV(ctx, "Speed table reload disabled", "error", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// restore releases every device on a context that outlives ctx and drops the
// marker once every device is back under automatic control.
func restore(ctx context.Context, timeout time.Duration, manager *Manager, markers state.Repository) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := manager.Release(releaseCtx); err != nil {
		// The marker stays so the next start or "gpufan release" retries.
		logger.ErrorKV(ctx, "Automatic fan control was not restored on every device", "error", err)
		return
	}

	if markers == nil {
		return
	}

	if err := markers.Remove(releaseCtx); err != nil {
		logger.WarnKV(ctx, "Failed to remove takeover marker", "error", err)
	}
}

// saveMarker records the takeover before the first device is touched.
func saveMarker(ctx context.Context, markers state.Repository, count int) {
	if markers == nil {
		return
	}

	takeover, err := common.NewTakeover(count)
	if err == nil {
		err = markers.Save(ctx, takeover)
	}

	if err != nil {
		logger.WarnKV(ctx, "Failed to save takeover marker, crash recovery will need a manual release", "error", err)
	}
}

// recoverStaleTakeover hands back devices left under manual control by a
// controller that died without releasing them.
func recoverStaleTakeover(ctx context.Context, deps *Dependencies) error {
	if deps.Markers == nil {
		return nil
	}

	marker, err := deps.Markers.Load(ctx)

	switch {
	case errors.Is(err, state.ErrNotFound):
		return nil
	case err != nil:
		logger.WarnKV(ctx, "Ignoring unreadable takeover marker", "error", err)
		return nil
	}

	held, err := common.IsHeldBy(deps.Processes, marker.PID, deps.Executable)
	if err != nil {
		return fmt.Errorf("inspect marker owner: %w", err)
	}

	if held {
		return fmt.Errorf("%w: pid %d on %s since %s",
			ErrAlreadyRunning, marker.PID, marker.Hostname, marker.Timestamp.Format(time.RFC3339))
	}

	logger.WarnKV(ctx, "Found takeover marker of a stopped controller, restoring automatic fan control",
		"pid", marker.PID,
		"devices", marker.DeviceCount,
		"taken_over_at", marker.Timestamp.Format(time.RFC3339),
	)

	if err = ReleaseDevices(ctx, deps.Actuator, marker.DeviceCount); err != nil {
		logger.WarnKV(ctx, "Stale takeover not fully released", "error", err)
	}

	return nil
}

// warnAboutOtherInstances logs a warning when another process with the same name runs.
func warnAboutOtherInstances(ctx context.Context, executable string) {
	pids, err := common.OtherInstances(executable)
	if err != nil {
		logger.DebugKV(ctx, "Failed to list processes", "error", err)
		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "Other instances are running, fan commands may conflict", "pids", pids)
	}
}

// interrupted turns a failure caused by cancellation into a clean stop.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}

	logger.InfoKV(ctx, "Interrupted during startup", "error", err)

	return nil
}

func withDefaults(deps *Dependencies) *Dependencies {
	resolved := *deps

	if resolved.Processes == nil {
		resolved.Processes = common.SystemProcesses{}
	}

	if resolved.Notices == nil {
		resolved.Notices = os.Stdout
	}

	return &resolved
}
