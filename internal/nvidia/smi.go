package nvidia

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// SMI reads telemetry from the nvidia-smi XML report.
type SMI struct {
	runner Runner
	binary string
}

// NewSMI returns telemetry backed by the nvidia-smi executable at binary.
func NewSMI(runner Runner, binary string) *SMI {
	return &SMI{
		runner: runner,
		binary: binary,
	}
}

// smiLog mirrors the subset of the nvidia_smi_log document the controller reads.
type smiLog struct {
	XMLName      xml.Name `xml:"nvidia_smi_log"`
	AttachedGPUs *string  `xml:"attached_gpus"`
	GPUs         []smiGPU `xml:"gpu"`
}

type smiGPU struct {
	ProductName *string         `xml:"product_name"`
	FanSpeed    *string         `xml:"fan_speed"`
	Temperature *smiTemperature `xml:"temperature"`
}

type smiTemperature struct {
	GPUTemp *string `xml:"gpu_temp"`
}

// DeviceCount implements fan.Telemetry.
func (s *SMI) DeviceCount(ctx context.Context) (int, error) {
	report, err := s.query(ctx, "-q", "-x")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", fan.ErrEnumeration, err)
	}

	if report.AttachedGPUs == nil || strings.TrimSpace(*report.AttachedGPUs) == "" {
		return 0, fmt.Errorf("attached_gpus is missing: %w", fan.ErrEnumeration)
	}

	count, err := strconv.Atoi(strings.TrimSpace(*report.AttachedGPUs))
	if err != nil || count < 0 {
		return 0, fmt.Errorf("attached_gpus %q is not a count: %w", *report.AttachedGPUs, fan.ErrEnumeration)
	}

	return count, nil
}

// Read implements fan.Telemetry.
func (s *SMI) Read(ctx context.Context, index int) (*fan.Reading, error) {
	report, err := s.query(ctx, "-q", "-x", "-i", strconv.Itoa(index))
	if err != nil {
		return nil, fmt.Errorf("gpu %d: %w: %w", index, fan.ErrQuery, err)
	}

	if len(report.GPUs) == 0 {
		return nil, fmt.Errorf("gpu %d: report has no gpu element: %w", index, fan.ErrQuery)
	}

	gpu := report.GPUs[0]

	if gpu.Temperature == nil || gpu.Temperature.GPUTemp == nil {
		return nil, fmt.Errorf("gpu %d: temperature/gpu_temp is missing: %w", index, fan.ErrQuery)
	}

	temperature, err := ParseNumber(*gpu.Temperature.GPUTemp)
	if err != nil {
		return nil, fmt.Errorf("gpu %d: temperature %q: %w: %w", index, *gpu.Temperature.GPUTemp, fan.ErrQuery, err)
	}

	if gpu.FanSpeed == nil {
		return nil, fmt.Errorf("gpu %d: fan_speed is missing: %w", index, fan.ErrQuery)
	}

	speed, err := ParseNumber(*gpu.FanSpeed)
	if err != nil {
		return nil, fmt.Errorf("gpu %d: fan speed %q: %w: %w", index, *gpu.FanSpeed, fan.ErrQuery, err)
	}

	if gpu.ProductName == nil {
		return nil, fmt.Errorf("gpu %d: product_name is missing: %w", index, fan.ErrQuery)
	}

	return &fan.Reading{
		Index:       index,
		Name:        strings.TrimSpace(*gpu.ProductName),
		Temperature: temperature,
		FanSpeed:    speed,
	}, nil
}

// query runs nvidia-smi with args and decodes the XML report.
func (s *SMI) query(ctx context.Context, args ...string) (*smiLog, error) {
	output, err := s.runner.Run(ctx, s.binary, args...)
	if err != nil {
		return nil, err
	}

	var report smiLog
	if err := xml.Unmarshal(output, &report); err != nil {
		return nil, fmt.Errorf("decode nvidia-smi report: %w", err)
	}

	return &report, nil
}
