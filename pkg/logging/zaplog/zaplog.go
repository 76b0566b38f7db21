// Package zaplog adapts bridge and rule logging to go.uber.org/zap.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"

	roomsync "github.com/goliatone/go-roomsync"
	"github.com/goliatone/go-roomsync/rules"
)

// Bridge logs reconciliations. Changes log at info, failures at warn and
// everything else at debug. A nil logger is replaced with zap.NewNop.
func Bridge(logger *zap.Logger) roomsync.BridgeLoggerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(event roomsync.ReconcileEvent) {
		fields := []zap.Field{
			zap.String("bridge_id", event.BridgeID),
			zap.String("source", string(event.Source)),
			zap.String("resolution", string(event.Resolution)),
			zap.Stringer("room", event.Room),
			zap.Stringer("previous", event.Previous),
			zap.Duration("duration", event.Duration),
		}
		if event.HookErr != nil {
			fields = append(fields, zap.NamedError("hook_error", event.HookErr))
		}
		switch {
		case event.Err != nil:
			logger.Warn("room accessor failed", append(fields, zap.Error(event.Err))...)
		case event.HookErr != nil:
			logger.Warn("room activity hook failed", fields...)
		case event.Room != event.Previous:
			logger.Info("room changed", fields...)
		default:
			logger.Debug("room reconciled", fields...)
		}
	}
}

// Rules logs policy evaluations: failures at warn, results at debug.
func Rules(logger *zap.Logger) rules.LoggerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(event rules.LogEvent) {
		fields := []zap.Field{
			zap.String("engine", event.Engine),
			zap.String("expr", event.Expr),
			zap.String("scope", event.Scope),
			zap.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			logger.Warn("rule evaluation failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("rule evaluated", append(fields, zap.String("result", fmt.Sprint(event.Result)))...)
	}
}
