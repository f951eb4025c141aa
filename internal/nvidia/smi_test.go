package nvidia

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

const summaryReport = `<?xml version="1.0" ?>
<!DOCTYPE nvidia_smi_log SYSTEM "nvsmi_device_v12.dtd">
<nvidia_smi_log>
	<timestamp>Mon Oct 19 10:00:00 2026</timestamp>
	<driver_version>550.54.14</driver_version>
	<attached_gpus>2</attached_gpus>
	<gpu id="00000000:01:00.0"></gpu>
	<gpu id="00000000:02:00.0"></gpu>
</nvidia_smi_log>
`

const deviceReport = `<?xml version="1.0" ?>
<!DOCTYPE nvidia_smi_log SYSTEM "nvsmi_device_v12.dtd">
<nvidia_smi_log>
	<attached_gpus>2</attached_gpus>
	<gpu id="00000000:02:00.0">
		<product_name>NVIDIA GeForce GTX 1080 Ti</product_name>
		<fan_speed>60 %</fan_speed>
		<temperature>
			<gpu_temp>45 C</gpu_temp>
			<gpu_temp_max_threshold>96 C</gpu_temp_max_threshold>
		</temperature>
	</gpu>
</nvidia_smi_log>
`

var errTestCommand = errors.New("command failed")

// TestSMI_DeviceCount reads attached_gpus from the summary report.
func TestSMI_DeviceCount(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	runner.on("nvidia-smi -q -x", summaryReport)

	count, err := NewSMI(runner, "nvidia-smi").DeviceCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

// TestSMI_DeviceCount_Failures maps every failure to ErrEnumeration.
func TestSMI_DeviceCount_Failures(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing count": `<nvidia_smi_log><driver_version>1</driver_version></nvidia_smi_log>`,
		"empty count":   `<nvidia_smi_log><attached_gpus> </attached_gpus></nvidia_smi_log>`,
		"bad count":     `<nvidia_smi_log><attached_gpus>two</attached_gpus></nvidia_smi_log>`,
		"not xml":       `NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver.`,
		"wrong root":    `<report><attached_gpus>1</attached_gpus></report>`,
	}

	for name, output := range cases {
		runner := newScriptedRunner()
		runner.on("nvidia-smi -q -x", output)

		_, err := NewSMI(runner, "nvidia-smi").DeviceCount(context.Background())
		require.ErrorIs(t, err, fan.ErrEnumeration, name)
	}

	runner := newScriptedRunner()
	runner.fail("nvidia-smi -q -x", errTestCommand)

	_, err := NewSMI(runner, "nvidia-smi").DeviceCount(context.Background())
	require.ErrorIs(t, err, fan.ErrEnumeration)
	require.ErrorIs(t, err, errTestCommand)
}

// TestSMI_Read extracts temperature, fan speed and name of a single device.
func TestSMI_Read(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	runner.on("/usr/bin/nvidia-smi -q -x -i 1", deviceReport)

	reading, err := NewSMI(runner, "/usr/bin/nvidia-smi").Read(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, &fan.Reading{
		Index:       1,
		Name:        "NVIDIA GeForce GTX 1080 Ti",
		Temperature: 45,
		FanSpeed:    60,
	}, reading)
	require.Equal(t, []string{"/usr/bin/nvidia-smi -q -x -i 1"}, runner.calls)
}

// TestSMI_Read_Malformed maps missing or unparsable fields to ErrQuery.
func TestSMI_Read_Malformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no gpu": `<nvidia_smi_log><attached_gpus>1</attached_gpus></nvidia_smi_log>`,
		"no temperature": `<nvidia_smi_log><gpu><product_name>A</product_name>` +
			`<fan_speed>60 %</fan_speed></gpu></nvidia_smi_log>`,
		"no gpu_temp": `<nvidia_smi_log><gpu><product_name>A</product_name><fan_speed>60 %</fan_speed>` +
			`<temperature></temperature></gpu></nvidia_smi_log>`,
		"no fan speed": `<nvidia_smi_log><gpu><product_name>A</product_name>` +
			`<temperature><gpu_temp>45 C</gpu_temp></temperature></gpu></nvidia_smi_log>`,
		"fan not supported": `<nvidia_smi_log><gpu><product_name>A</product_name><fan_speed>N/A</fan_speed>` +
			`<temperature><gpu_temp>45 C</gpu_temp></temperature></gpu></nvidia_smi_log>`,
		"no name": `<nvidia_smi_log><gpu><fan_speed>60 %</fan_speed>` +
			`<temperature><gpu_temp>45 C</gpu_temp></temperature></gpu></nvidia_smi_log>`,
		"truncated": `<nvidia_smi_log><gpu><product_name>A`,
	}

	for name, output := range cases {
		runner := newScriptedRunner()
		runner.on("nvidia-smi -q -x -i 0", output)

		_, err := NewSMI(runner, "nvidia-smi").Read(context.Background(), 0)
		require.ErrorIs(t, err, fan.ErrQuery, name)
	}

	runner := newScriptedRunner()
	runner.fail("nvidia-smi -q -x -i 3", errTestCommand)

	_, err := NewSMI(runner, "nvidia-smi").Read(context.Background(), 3)
	require.ErrorIs(t, err, fan.ErrQuery)
	require.ErrorIs(t, err, errTestCommand)
}
