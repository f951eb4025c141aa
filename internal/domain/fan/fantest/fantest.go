// Package fantest provides scripted fan.Telemetry and recording fan.Actuator
// implementations for tests that must run without GPU hardware.
package fantest

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// Telemetry returns scripted readings. Each device has a queue of readings;
// every Read pops the head and the last reading repeats once the queue drains.
type Telemetry struct {
	// CountErr, when set, is returned by DeviceCount.
	CountErr error
	// OnRead, when set, runs before every Read with the requested index.
	OnRead func(ctx context.Context, index int)

	mu       sync.Mutex
	count    int
	scripts  map[int][]fan.Reading
	failures map[int]error
	reads    map[int]int
}

// NewTelemetry creates a fake with one device per reading; the reading index
// is taken from the argument position.
func NewTelemetry(readings ...fan.Reading) *Telemetry {
	t := &Telemetry{
		count:    len(readings),
		scripts:  make(map[int][]fan.Reading, len(readings)),
		failures: make(map[int]error),
		reads:    make(map[int]int),
	}

	for i, r := range readings {
		r.Index = i
		t.scripts[i] = []fan.Reading{r}
	}

	return t
}

// Script appends readings to the queue of device index.
func (t *Telemetry) Script(index int, readings ...fan.Reading) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range readings {
		r.Index = index
		t.scripts[index] = append(t.scripts[index], r)
	}
}

// Fail makes every following Read of device index return err.
// A nil err clears the failure.
func (t *Telemetry) Fail(index int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		delete(t.failures, index)
		return
	}

	t.failures[index] = err
}

// Reads returns how many times device index was read.
func (t *Telemetry) Reads(index int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reads[index]
}

// DeviceCount implements fan.Telemetry.
func (t *Telemetry) DeviceCount(context.Context) (int, error) {
	if t.CountErr != nil {
		return 0, t.CountErr
	}

	return t.count, nil
}

// Read implements fan.Telemetry.
func (t *Telemetry) Read(ctx context.Context, index int) (*fan.Reading, error) {
	if t.OnRead != nil {
		t.OnRead(ctx, index)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.reads[index]++

	if err := t.failures[index]; err != nil {
		return nil, err
	}

	script := t.scripts[index]
	if len(script) == 0 {
		return nil, fmt.Errorf("device %d has no scripted reading: %w", index, fan.ErrQuery)
	}

	reading := script[0]
	if len(script) > 1 {
		t.scripts[index] = script[1:]
	}

	return &reading, nil
}

// ModeCall records one SetControlMode invocation.
type ModeCall struct {
	Index   int
	Enabled bool
}

// SpeedCall records one SetSpeed invocation.
type SpeedCall struct {
	Index   int
	Percent int
}

// Actuator records every command it receives.
type Actuator struct {
	// OnMode, when set, runs after a SetControlMode call has been recorded.
	OnMode func(call ModeCall)

	mu          sync.Mutex
	modeErrors  map[ModeCall]error
	speedErrors map[int]error
	modes       []ModeCall
	speeds      []SpeedCall
}

// NewActuator creates an Actuator that accepts every command.
func NewActuator() *Actuator {
	return &Actuator{
		modeErrors:  make(map[ModeCall]error),
		speedErrors: make(map[int]error),
	}
}

// FailMode makes SetControlMode(index, enabled) return err.
func (a *Actuator) FailMode(index int, enabled bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.modeErrors[ModeCall{Index: index, Enabled: enabled}] = err
}

// FailSpeed makes SetSpeed on device index return err.
func (a *Actuator) FailSpeed(index int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.speedErrors[index] = err
}

// ModeCalls returns a copy of the recorded SetControlMode calls.
func (a *Actuator) ModeCalls() []ModeCall {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]ModeCall(nil), a.modes...)
}

// SpeedCalls returns a copy of the recorded SetSpeed calls.
func (a *Actuator) SpeedCalls() []SpeedCall {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]SpeedCall(nil), a.speeds...)
}

// Releases counts SetControlMode(index, false) calls for device index.
func (a *Actuator) Releases(index int) int {
	return a.countModes(ModeCall{Index: index, Enabled: false})
}

// Takeovers counts SetControlMode(index, true) calls for device index.
func (a *Actuator) Takeovers(index int) int {
	return a.countModes(ModeCall{Index: index, Enabled: true})
}

// SetControlMode implements fan.Actuator.
func (a *Actuator) SetControlMode(_ context.Context, index int, enabled bool) error {
	call := ModeCall{Index: index, Enabled: enabled}

	a.mu.Lock()
	a.modes = append(a.modes, call)
	err := a.modeErrors[call]
	a.mu.Unlock()

	if a.OnMode != nil {
		a.OnMode(call)
	}

	return err
}

// SetSpeed implements fan.Actuator.
func (a *Actuator) SetSpeed(_ context.Context, index, percent int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.speeds = append(a.speeds, SpeedCall{Index: index, Percent: percent})

	return a.speedErrors[index]
}

func (a *Actuator) countModes(want ModeCall) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n int

	for _, call := range a.modes {
		if call == want {
			n++
		}
	}

	return n
}
