//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"

	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/grpclog"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/logger"
)

// Overrides are command line values that win over the settings file.
type Overrides struct {
	// SpeedTable replaces the speed table path.
	SpeedTable string
	// LogLevel replaces the log level.
	LogLevel string
}

// LoadSettings reads the settings file at path and applies overrides on top.
func LoadSettings(path string, overrides Overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if overrides.SpeedTable != "" {
		cfg.SpeedTable = overrides.SpeedTable
	}

	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return cfg, nil
}

// ConfigureLogging points the global logger at the sinks named in the settings
// and routes gRPC warnings through it. It must run before any gRPC call.
// Callers must call logger.Close before exiting.
func ConfigureLogging(cfg *config.Config) {
	level, _ := logger.ParseLogLevel(cfg.LogLevel)

	logger.Configure(level, logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	grpclog.SetLoggerV2(logger.GRPCLogger(zapcore.WarnLevel))
}
