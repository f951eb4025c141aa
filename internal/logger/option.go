package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapgrpc"
	"google.golang.org/grpc/grpclog"
)

// coreWithFloor wraps a zapcore.Core and drops entries below floor.
// The wrapped core still applies its own level on top.
type coreWithFloor struct {
	zapcore.Core

	// floor is the minimum level passed through to the wrapped core.
	floor zapcore.Level
}

// Enabled reports whether l clears both the floor and the wrapped core's level.
func (c *coreWithFloor) Enabled(l zapcore.Level) bool {
	return c.floor.Enabled(l) && c.Core.Enabled(l)
}

// Check adds the core to a checked entry if the entry level is enabled.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *coreWithFloor) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With returns a copy of the core with fields added, keeping the floor.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *coreWithFloor) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithFloor{
		Core:  c.Core.With(fields),
		floor: c.floor,
	}
}

// WithLevel raises the minimum level of a logger derived from an existing one.
// The shared level set by SetLevel still applies, so the stricter of the two wins.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(
		func(core zapcore.Core) zapcore.Core {
			return &coreWithFloor{Core: core, floor: lvl}
		})
}

// GRPCLogger adapts the global logger for grpclog, passing through only
// messages at level or above. gRPC is chatty at info about connection state.
//
//nolint:ireturn,nolintlint // grpclog.SetLoggerV2 takes the interface.
func GRPCLogger(level zapcore.Level) grpclog.LoggerV2 {
	return zapgrpc.NewLogger(Logger().Desugar().Named("grpc").WithOptions(WithLevel(level)))
}
