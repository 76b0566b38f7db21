package roomsync

import "time"

// ReconcileEvent describes a reconciliation attempt for logging. Err carries
// the accessor failure that was absorbed into NoRoom; HookErr carries activity
// hook failures.
type ReconcileEvent struct {
	BridgeID   string
	Source     Source
	Resolution Resolution
	Room       RoomID
	Previous   RoomID
	Duration   time.Duration
	Err        error
	HookErr    error
}

// BridgeLogger records bridge events.
type BridgeLogger interface {
	LogReconcile(ReconcileEvent)
}

// BridgeLoggerFunc adapts a function to BridgeLogger.
type BridgeLoggerFunc func(ReconcileEvent)

// LogReconcile implements BridgeLogger.
func (f BridgeLoggerFunc) LogReconcile(event ReconcileEvent) {
	if f != nil {
		f(event)
	}
}

type noopBridgeLogger struct{}

func (noopBridgeLogger) LogReconcile(ReconcileEvent) {}
