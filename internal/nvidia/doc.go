// Package nvidia talks to the NVIDIA driver tools.
//
// SMI implements fan.Telemetry by running `nvidia-smi -q -x` and decoding its
// XML report. Settings implements fan.Actuator with `nvidia-settings -a`.
// NVML is an alternative telemetry backend built with the "nvml" tag.
// Every external command goes through a Runner so tests can script output.
package nvidia
