package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
	"github.com/oshokin/gpufan/internal/service/common"
)

// Options controls the status command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// SpeedTablePath overrides the speed table location from the settings.
	SpeedTablePath string
	// LogLevel overrides the log level from the settings.
	LogLevel string
	// Output receives the table. Nil uses stdout.
	Output io.Writer
}

// SpeedPolicy maps a temperature to a target fan speed percentage.
type SpeedPolicy interface {
	Resolve(temperature int) (int, error)
}

// Row is one device line of the status table.
type Row struct {
	// Reading is the device state, nil when the read failed.
	Reading *fan.Reading
	// Index is the device index.
	Index int
	// Target is the resolved fan speed, or a marker when it cannot be resolved.
	Target string
	// Err is the read failure, if any.
	Err error
}

const (
	targetUnknown = "unknown"
	targetNone    = "-"
)

// Run reads every device once and prints a table.
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

	ctx = logger.WithName(ctx, "gpufan-status")

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	defer func() {
		_ = backend.Close()
	}()

	var policy SpeedPolicy

	table, err := config.LoadSpeedTable(cfg.SpeedTable)
	if err != nil {
		logger.WarnKV(ctx, "Speed table unavailable, targets are not shown", "error", err)
	} else {
		policy = table
	}

	rows, err := Collect(ctx, backend.Telemetry, policy)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	Render(output, rows)

	return nil
}

// Collect reads every device once. A failed device read is reported in its row;
// only enumeration failures are returned.
func Collect(ctx context.Context, telemetry fan.Telemetry, policy SpeedPolicy) ([]Row, error) {
	count, err := telemetry.DeviceCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	rows := make([]Row, 0, count)

	for index := range count {
		row := Row{Index: index, Target: targetNone}

		row.Reading, row.Err = telemetry.Read(ctx, index)
		if row.Err == nil && policy != nil {
			row.Target = resolveTarget(policy, row.Reading.Temperature)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func resolveTarget(policy SpeedPolicy, temperature int) string {
	target, err := policy.Resolve(temperature)
	if errors.Is(err, fan.ErrUnknownTemperature) {
		return targetUnknown
	}

	if err != nil {
		return targetNone
	}

	return strconv.Itoa(target)
}

// Render writes rows as a borderless table.
func Render(w io.Writer, rows []Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"GPU", "Name", "Temp", "Fan", "Target"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for _, row := range rows {
		if row.Err != nil {
			table.Append([]string{strconv.Itoa(row.Index), "error: " + row.Err.Error(), targetNone, targetNone, targetNone})
			continue
		}

		table.Append([]string{
			strconv.Itoa(row.Index),
			row.Reading.Name,
			strconv.Itoa(row.Reading.Temperature),
			strconv.Itoa(row.Reading.FanSpeed),
			row.Target,
		})
	}

	table.Render()
}
