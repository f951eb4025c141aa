package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

// Config holds the controller settings.
type Config struct {
	// SpeedTable is the path to the temperature to fan speed mapping.
	SpeedTable string `yaml:"speed_table"`
	// WatchSpeedTable reloads the speed table when the file changes.
	WatchSpeedTable bool `yaml:"watch_speed_table"`
	// PollInterval is the fixed cadence of the control loop.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Telemetry selects the telemetry backend: "smi" or "nvml".
	Telemetry string `yaml:"telemetry"`
	// NvidiaSMI is the nvidia-smi executable.
	NvidiaSMI string `yaml:"nvidia_smi"`
	// NvidiaSettings is the nvidia-settings executable.
	NvidiaSettings string `yaml:"nvidia_settings"`
	// Display is the X display handed to nvidia-settings, empty for the inherited one.
	Display string `yaml:"display"`
	// CommandTimeout bounds every external telemetry or actuation command.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// ReleaseTimeout bounds the whole release sweep on shutdown.
	ReleaseTimeout time.Duration `yaml:"release_timeout"`
	// OnQueryError is "abort" or "skip".
	OnQueryError string `yaml:"on_query_error"`
	// StateFile is where the takeover marker is kept while fans are controlled.
	StateFile string `yaml:"state_file"`
	// HealthAddress enables the gRPC health endpoint when set.
	HealthAddress string `yaml:"health_address"`
	// LogLevel is the minimum zap level.
	LogLevel string `yaml:"log_level"`
	// LogFile enables a rotated log file when set.
	LogFile string `yaml:"log_file"`
	// LogMaxSizeMB is the rotation size of LogFile.
	LogMaxSizeMB int `yaml:"log_max_size_mb"`
	// LogMaxBackups is the number of rotated log files kept.
	LogMaxBackups int `yaml:"log_max_backups"`
	// MQTT publishes fan changes and control state to a broker when Broker is set.
	MQTT MQTT `yaml:"mqtt"`
}

// MQTT holds the optional event publisher settings.
type MQTT struct {
	// Broker is the broker URI, for example tcp://127.0.0.1:1883. Empty disables publishing.
	Broker string `yaml:"broker"`
	// ClientID identifies the controller to the broker.
	ClientID string `yaml:"client_id"`
	// Username authenticates against the broker.
	Username string `yaml:"username"`
	// Password authenticates against the broker.
	Password string `yaml:"password"`
	// TopicPrefix is prepended to every topic.
	TopicPrefix string `yaml:"topic_prefix"`
	// Timeout bounds connecting and every publish.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultSpeedTableFilename is the default speed table location.
	DefaultSpeedTableFilename = "fanspeed.json"

	// DefaultStateFilename is the default takeover marker location.
	DefaultStateFilename = "gpufan-state.json"

	// DefaultPollInterval is the control loop cadence.
	DefaultPollInterval = time.Second

	// DefaultCommandTimeout bounds a single external command.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultReleaseTimeout bounds the release sweep on shutdown.
	DefaultReleaseTimeout = 10 * time.Second

	// DefaultLogMaxSizeMB is the rotation size of the log file.
	DefaultLogMaxSizeMB = 10

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3

	// DefaultMQTTTopicPrefix is the root of every published topic.
	DefaultMQTTTopicPrefix = "gpufan"

	// DefaultMQTTTimeout bounds broker round trips.
	DefaultMQTTTimeout = 2 * time.Second

	// DefaultFilePermissions is the permission for files written by the controller.
	DefaultFilePermissions = 0o600
)

// Telemetry backends.
const (
	TelemetrySMI  = "smi"
	TelemetryNVML = "nvml"
)

// Query error policies.
const (
	OnQueryErrorAbort = "abort"
	OnQueryErrorSkip  = "skip"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownTelemetry is returned for an unsupported telemetry backend.
	errUnknownTelemetry = errors.New("unknown telemetry backend")
	// errUnknownQueryPolicy is returned for an unsupported on_query_error value.
	errUnknownQueryPolicy = errors.New("unknown query error policy")
	// errUnknownLogLevel is returned for an unsupported log level.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns settings with every default filled in.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads settings from path. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w: %w", fan.ErrConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w: %w", fan.ErrConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults.
//
//nolint:cyclop // A flat list of independent defaults reads best.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.SpeedTable == "" {
		cfg.SpeedTable = DefaultSpeedTableFilename
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.Telemetry == "" {
		cfg.Telemetry = TelemetrySMI
	}

	if cfg.Telemetry != TelemetrySMI && cfg.Telemetry != TelemetryNVML {
		return fmt.Errorf("%w %q: %w", errUnknownTelemetry, cfg.Telemetry, fan.ErrConfig)
	}

	if cfg.NvidiaSMI == "" {
		cfg.NvidiaSMI = "nvidia-smi"
	}

	if cfg.NvidiaSettings == "" {
		cfg.NvidiaSettings = "nvidia-settings"
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}

	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}

	if cfg.OnQueryError == "" {
		cfg.OnQueryError = OnQueryErrorAbort
	}

	if cfg.OnQueryError != OnQueryErrorAbort && cfg.OnQueryError != OnQueryErrorSkip {
		return fmt.Errorf("%w %q: %w", errUnknownQueryPolicy, cfg.OnQueryError, fan.ErrConfig)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.HealthAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w: %w", fan.ErrConfig, err)
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w %q: %w", errUnknownLogLevel, cfg.LogLevel, fan.ErrConfig)
	}

	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = DefaultLogMaxSizeMB
	}

	if cfg.LogMaxBackups <= 0 {
		cfg.LogMaxBackups = DefaultLogMaxBackups
	}

	return validateMQTT(&cfg.MQTT)
}

func validateMQTT(cfg *MQTT) error {
	if cfg.Broker == "" {
		return nil
	}

	if _, err := url.Parse(cfg.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w: %w", fan.ErrConfig, err)
	}

	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultMQTTTopicPrefix
	}

	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")

	if cfg.ClientID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}

		cfg.ClientID = "gpufan-" + hostname
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMQTTTimeout
	}

	return nil
}

// SkipFailedQueries reports whether a failed device read skips the device for one cycle.
func (c *Config) SkipFailedQueries() bool {
	return c.OnQueryError == OnQueryErrorSkip
}
