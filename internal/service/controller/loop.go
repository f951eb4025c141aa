package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

// SpeedPolicy maps a temperature to a target fan speed percentage.
type SpeedPolicy interface {
	Resolve(temperature int) (int, error)
}

// ChangeObserver is told about every fan speed the loop has set.
type ChangeObserver interface {
	FanChanged(ctx context.Context, reading *fan.Reading, target int)
}

// LoopConfig holds everything a Loop needs for its lifetime.
type LoopConfig struct {
	// Telemetry reads device state every cycle.
	Telemetry fan.Telemetry
	// Actuator receives speed changes.
	Actuator fan.Actuator
	// Policy resolves the target speed.
	Policy SpeedPolicy
	// DeviceCount is the number of devices enumerated at startup.
	DeviceCount int
	// Interval is the fixed sweep cadence.
	Interval time.Duration
	// Notices receives one line per speed change.
	Notices io.Writer
	// SkipFailedQueries skips a device for one cycle instead of stopping on a failed read.
	SkipFailedQueries bool
	// Observers are told about every speed change after it has been sent.
	Observers []ChangeObserver
}

// Loop polls every device on a fixed cadence and corrects fan speeds.
type Loop struct {
	cfg LoopConfig
}

// NewLoop creates a loop. A non-positive interval falls back to the default cadence.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultPollInterval
	}

	if cfg.Notices == nil {
		cfg.Notices = io.Discard
	}

	return &Loop{cfg: cfg}
}

// Run sweeps immediately and then once per interval until ctx is cancelled.
// Cancellation is a normal stop and returns nil; any other failure is returned.
func (l *Loop) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Starting control loop",
		"devices", l.cfg.DeviceCount,
		"interval", l.cfg.Interval.String(),
		"skip_failed_queries", l.cfg.SkipFailedQueries,
	)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := l.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Control loop interrupted during sweep")
				return nil
			}

			return err
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Control loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep visits every device once, in index order.
// It gives up as soon as ctx is cancelled, leaving the remaining devices untouched.
func (l *Loop) Sweep(ctx context.Context) error {
	for index := range l.cfg.DeviceCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.adjust(ctx, index)
		if err == nil {
			continue
		}

		if l.cfg.SkipFailedQueries && errors.Is(err, fan.ErrQuery) && ctx.Err() == nil {
			logger.WarnKV(ctx, "Skipping device for this cycle", "gpu", index, "error", err)
			continue
		}

		return err
	}

	return nil
}

// adjust reads one device and sets its fan speed if it differs from the target.
func (l *Loop) adjust(ctx context.Context, index int) error {
	ctx = logger.WithKV(ctx, "gpu", index)

	reading, err := l.cfg.Telemetry.Read(ctx, index)
	if err != nil {
		return fmt.Errorf("read gpu %d: %w", index, err)
	}

	target, err := l.cfg.Policy.Resolve(reading.Temperature)
	if err != nil {
		return fmt.Errorf("gpu %d (%s): %w", index, reading.Name, err)
	}

	if target == reading.FanSpeed {
		logger.DebugKV(ctx, "Fan speed on target", "temperature", reading.Temperature, "fan_speed", reading.FanSpeed)

		return nil
	}

	//nolint:errcheck // A lost notice must not stop the loop.
	_, _ = fmt.Fprintf(l.cfg.Notices, "GPU%d: %s, temp %d, fan speed %d, target speed %d\n",
		index, reading.Name, reading.Temperature, reading.FanSpeed, target)

	if err := l.cfg.Actuator.SetSpeed(ctx, index, target); err != nil {
		if ctx.Err() != nil {
			return err
		}

		// The next sweep sees the old speed again and retries.
		logger.WarnKV(ctx, "Failed to set fan speed", "target", target, "error", err)

		return nil
	}

	for _, observer := range l.cfg.Observers {
		observer.FanChanged(ctx, reading, target)
	}

	return nil
}
