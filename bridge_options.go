package roomsync

import (
	"strings"
	"time"

	"github.com/goliatone/go-roomsync/pkg/activity"
)

const (
	// DefaultNamespace is the global the external loader installs.
	DefaultNamespace = "RoboScapeOnline_fns"
	// DefaultAccessor is the zero-argument room getter on the namespace.
	DefaultAccessor = "room_id"
	// DefaultNotifierKey is the global the push callback is published under.
	DefaultNotifierKey = "RoboScapeOnline_notifyRoom"
	// DefaultPollInterval is used when StartPolling receives a non-positive
	// interval.
	DefaultPollInterval = time.Second
)

// BridgeOption configures a Bridge.
type BridgeOption func(*bridgeConfig)

type bridgeConfig struct {
	namespace   string
	accessor    string
	notifierKey string
	interval    time.Duration
	room        *Observable[RoomID]
	logger      BridgeLogger
	emitter     *activity.Emitter
	id          string
}

func applyBridgeOptions(opts []BridgeOption) bridgeConfig {
	cfg := bridgeConfig{
		namespace:   DefaultNamespace,
		accessor:    DefaultAccessor,
		notifierKey: DefaultNotifierKey,
		interval:    DefaultPollInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithNamespace overrides the global namespace name.
func WithNamespace(name string) BridgeOption {
	return func(cfg *bridgeConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.namespace = name
		}
	}
}

// WithAccessor overrides the accessor member name.
func WithAccessor(name string) BridgeOption {
	return func(cfg *bridgeConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.accessor = name
		}
	}
}

// WithNotifierKey overrides the global key the push callback is published
// under.
func WithNotifierKey(key string) BridgeOption {
	return func(cfg *bridgeConfig) {
		if key = strings.TrimSpace(key); key != "" {
			cfg.notifierKey = key
		}
	}
}

// WithDefaultInterval sets the interval StartPolling falls back to.
func WithDefaultInterval(every time.Duration) BridgeOption {
	return func(cfg *bridgeConfig) {
		if every > 0 {
			cfg.interval = every
		}
	}
}

// WithObservable makes the bridge write into an existing cell, typically one
// created at process start and shared with the UI.
func WithObservable(room *Observable[RoomID]) BridgeOption {
	return func(cfg *bridgeConfig) {
		cfg.room = room
	}
}

// WithBridgeLogger attaches a logger. A nil logger disables logging.
func WithBridgeLogger(logger BridgeLogger) BridgeOption {
	return func(cfg *bridgeConfig) {
		if logger == nil {
			cfg.logger = noopBridgeLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityEmitter attaches an activity emitter.
func WithActivityEmitter(emitter *activity.Emitter) BridgeOption {
	return func(cfg *bridgeConfig) {
		cfg.emitter = emitter
	}
}

// WithBridgeID sets the instance id reported in logs and activity events.
func WithBridgeID(id string) BridgeOption {
	return func(cfg *bridgeConfig) {
		cfg.id = strings.TrimSpace(id)
	}
}
