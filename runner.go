package roomsync

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-roomsync/host"
	"github.com/goliatone/go-roomsync/rules"
	"github.com/goliatone/go-roomsync/settings"
)

// Mode describes which triggers drive a running bridge.
type Mode string

const (
	ModeIdle   Mode = ""
	ModeManual Mode = "manual"
	ModePush   Mode = "push"
	ModePoll   Mode = "poll"
	ModeHybrid Mode = "hybrid"
)

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	bridgeOpts []BridgeOption
	ruleOpts   []rules.Option
}

// WithBridgeOptions appends options applied after the ones derived from
// settings, so they take precedence.
func WithBridgeOptions(opts ...BridgeOption) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.bridgeOpts = append(cfg.bridgeOpts, opts...)
	}
}

// WithRuleOptions configures the polling policy evaluator.
func WithRuleOptions(opts ...rules.Option) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.ruleOpts = append(cfg.ruleOpts, opts...)
	}
}

// Runner drives a Bridge from resolved settings.
type Runner struct {
	bridge   *Bridge
	settings settings.Effective
	policy   *rules.Policy

	mu   sync.Mutex
	mode Mode
}

// NewRunner validates eff, compiles its polling policy and builds the
// bridge. Nothing is installed on the host until Start or Run.
func NewRunner(h host.Host, eff settings.Effective, opts ...RunnerOption) (*Runner, error) {
	cfg := runnerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := eff.Validate(); err != nil {
		return nil, err
	}
	policy, err := rules.NewPolicy(eff.RuleEngine, eff.PollWhen, cfg.ruleOpts...)
	if err != nil {
		return nil, err
	}
	bridgeOpts := []BridgeOption{
		WithNamespace(eff.Namespace),
		WithAccessor(eff.Accessor),
		WithNotifierKey(eff.NotifierKey),
		WithDefaultInterval(eff.PollInterval),
	}
	bridgeOpts = append(bridgeOpts, cfg.bridgeOpts...)
	return &Runner{
		bridge:   NewBridge(h, bridgeOpts...),
		settings: eff,
		policy:   policy,
	}, nil
}

// Bridge returns the driven bridge.
func (r *Runner) Bridge() *Bridge {
	return r.bridge
}

// Mode reports the triggers chosen by the last Start, or ModeIdle.
func (r *Runner) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// ShouldPoll evaluates the polling policy against the current settings and
// room.
func (r *Runner) ShouldPoll() (bool, error) {
	return r.policy.Allow(rules.Context{
		Snapshot: r.policySnapshot(),
		Scope:    "bridge:" + r.bridge.ID(),
	})
}

func (r *Runner) policySnapshot() map[string]any {
	var room any
	id, has := r.bridge.Room().Get().Value()
	if has {
		room = id
	}
	return map[string]any{
		"push_enabled":  r.settings.Push,
		"poll_fallback": r.settings.PollFallback,
		"interval_ms":   r.settings.PollInterval.Milliseconds(),
		"room":          room,
		"has_room":      has,
	}
}

// Start installs the notifier when push is enabled, starts polling when the
// policy allows it, and performs one reconciliation. A policy error is
// returned before anything is installed.
func (r *Runner) Start() (Mode, error) {
	poll, err := r.ShouldPoll()
	if err != nil {
		return ModeIdle, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings.Push {
		r.bridge.InstallNotifier()
	}
	if poll {
		r.bridge.StartPolling(r.settings.PollInterval)
	}
	r.bridge.Reconcile()

	switch {
	case r.settings.Push && poll:
		r.mode = ModeHybrid
	case r.settings.Push:
		r.mode = ModePush
	case poll:
		r.mode = ModePoll
	default:
		r.mode = ModeManual
	}
	return r.mode, nil
}

// Stop halts polling. The published notifier stays in place; invoking it
// after Stop still reconciles.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridge.StopPolling()
	r.mode = ModeIdle
}

// Run starts the runner and blocks until ctx is done. Cancellation is a
// clean shutdown; deadline expiry is returned.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
