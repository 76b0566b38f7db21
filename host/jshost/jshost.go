// Package jshost provides a browser-like host backed by a goja runtime running
// on a goja_nodejs event loop. Loader scripts install globals on the runtime
// and the Bridge reads them through the loop, so every touch of the runtime
// happens on the loop goroutine.
package jshost

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/goliatone/go-roomsync/host"
)

// ErrStopped is returned when work is submitted to a host whose loop is not
// running.
var ErrStopped = errors.New("jshost: event loop is not running")

// Option configures a Host.
type Option func(*config)

type config struct {
	console  bool
	registry *require.Registry
}

// WithConsole toggles the console global inside the runtime.
func WithConsole(enabled bool) Option {
	return func(cfg *config) {
		cfg.console = enabled
	}
}

// WithRegistry sets the require registry used by loader scripts.
func WithRegistry(registry *require.Registry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// Host runs a goja runtime on an event loop and implements host.Host.
type Host struct {
	loop *eventloop.EventLoop

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
}

var _ host.Host = (*Host)(nil)

// New constructs a Host. The loop does not run until Start is called.
func New(opts ...Option) *Host {
	cfg := config{console: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	loopOpts := []eventloop.Option{eventloop.EnableConsole(cfg.console)}
	if cfg.registry != nil {
		loopOpts = append(loopOpts, eventloop.WithRegistry(cfg.registry))
	}
	return &Host{
		loop: eventloop.NewEventLoop(loopOpts...),
		done: make(chan struct{}),
	}
}

// Start runs the event loop in the background. Calling Start more than once,
// or after Stop, has no effect.
func (h *Host) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.stopped {
		return
	}
	h.started = true
	h.loop.Start()
}

// Stop halts the event loop. Pending and future Globals calls report false.
func (h *Host) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	started := h.started
	close(h.done)
	h.mu.Unlock()
	if started {
		h.loop.Stop()
	}
}

// Running reports whether the loop accepts work.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started && !h.stopped
}

// Eval executes src on the loop and returns its exported completion value.
// JS undefined and null are returned as nil.
func (h *Host) Eval(name, src string) (any, error) {
	var (
		value any
		err   error
	)
	ok := h.run(func(vm *goja.Runtime) {
		result, runErr := vm.RunScript(name, src)
		if runErr != nil {
			err = fmt.Errorf("jshost: run %s: %w", name, runErr)
			return
		}
		value = export(result)
	})
	if !ok {
		return nil, ErrStopped
	}
	return value, err
}

// RunScript executes loader code on the loop. Timers the script schedules run
// later on the same loop.
func (h *Host) RunScript(name, src string) error {
	_, err := h.Eval(name, src)
	return err
}

// Globals implements host.Host. It blocks until fn has run on the loop and
// must not be called from loop callbacks.
func (h *Host) Globals(fn func(host.Globals)) bool {
	if fn == nil {
		return h.Running()
	}
	return h.run(func(vm *goja.Runtime) {
		fn(globals{vm: vm})
	})
}

// SetInterval implements host.Host using the loop's interval timers.
func (h *Host) SetInterval(every time.Duration, fn func(host.Globals)) (host.PollHandle, bool) {
	if fn == nil || !h.Running() {
		return nil, false
	}
	interval := h.loop.SetInterval(func(vm *goja.Runtime) {
		fn(globals{vm: vm})
	}, every)
	return interval, true
}

// ClearInterval implements host.Host.
func (h *Host) ClearInterval(handle host.PollHandle) {
	interval, ok := handle.(*eventloop.Interval)
	if !ok || interval == nil {
		return
	}
	h.loop.ClearInterval(interval)
}

func (h *Host) run(fn func(*goja.Runtime)) bool {
	if !h.Running() {
		return false
	}
	finished := make(chan struct{})
	h.loop.RunOnLoop(func(vm *goja.Runtime) {
		defer close(finished)
		fn(vm)
	})
	select {
	case <-finished:
		return true
	case <-h.done:
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

type globals struct {
	vm *goja.Runtime
}

func (g globals) Namespace(name string) (host.Namespace, bool) {
	value := g.vm.Get(name)
	if isNullish(value) {
		return nil, false
	}
	object, ok := value.(*goja.Object)
	if !ok {
		return nil, false
	}
	return namespace{object: object}, true
}

func (g globals) Publish(key string, fn func(host.Globals)) {
	if fn == nil {
		_ = g.vm.Set(key, goja.Undefined())
		return
	}
	_ = g.vm.Set(key, func(goja.FunctionCall) goja.Value {
		fn(g)
		return goja.Undefined()
	})
}

type namespace struct {
	object *goja.Object
}

func (n namespace) Member(name string) (any, bool) {
	value := n.object.Get(name)
	if value == nil || goja.IsUndefined(value) {
		return nil, false
	}
	callable, ok := goja.AssertFunction(value)
	if !ok {
		return export(value), true
	}
	this := n.object
	return host.Accessor(func() (any, error) {
		result, err := callable(this)
		if err != nil {
			return nil, err
		}
		return export(result), nil
	}), true
}

func isNullish(value goja.Value) bool {
	return value == nil || goja.IsUndefined(value) || goja.IsNull(value)
}

func export(value goja.Value) any {
	if isNullish(value) {
		return nil
	}
	return value.Export()
}
