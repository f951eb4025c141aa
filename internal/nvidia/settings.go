package nvidia

import (
	"context"
	"fmt"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// Settings issues fan commands through nvidia-settings.
// Fan N is assumed to belong to GPU N.
type Settings struct {
	runner  Runner
	binary  string
	display string
}

// NewSettings returns an actuator backed by the nvidia-settings executable at binary.
// A non-empty display is passed with --display.
func NewSettings(runner Runner, binary, display string) *Settings {
	return &Settings{
		runner:  runner,
		binary:  binary,
		display: display,
	}
}

// SetControlMode implements fan.Actuator.
func (s *Settings) SetControlMode(ctx context.Context, index int, enabled bool) error {
	state := 0
	if enabled {
		state = 1
	}

	if err := s.assign(ctx, fmt.Sprintf("[gpu:%d]/GPUFanControlState=%d", index, state)); err != nil {
		return fmt.Errorf("gpu %d: set fan control state %d: %w: %w", index, state, fan.ErrActuation, err)
	}

	return nil
}

// SetSpeed implements fan.Actuator.
func (s *Settings) SetSpeed(ctx context.Context, index, percent int) error {
	if percent < 0 || percent > fan.MaxSpeed {
		return fmt.Errorf("gpu %d: fan speed %d%% is out of range: %w", index, percent, fan.ErrActuation)
	}

	if err := s.assign(ctx, fmt.Sprintf("[fan-%d]/GPUTargetFanSpeed=%d", index, percent)); err != nil {
		return fmt.Errorf("gpu %d: set target fan speed %d: %w: %w", index, percent, fan.ErrActuation, err)
	}

	return nil
}

// assign runs a single nvidia-settings attribute assignment.
func (s *Settings) assign(ctx context.Context, assignment string) error {
	args := make([]string, 0, 3)
	if s.display != "" {
		args = append(args, "--display="+s.display)
	}

	args = append(args, "-a", assignment)

	_, err := s.runner.Run(ctx, s.binary, args...)

	return err
}
