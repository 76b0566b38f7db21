// Package roomsync keeps an observable room identifier consistent with an
// external, globally scoped API that a third-party loader installs at an
// unknown time. The Bridge reads the API lazily on every reconciliation and
// can be driven by a push callback it publishes, by a poll timer, or both.
package roomsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-roomsync/host"
	"github.com/goliatone/go-roomsync/pkg/activity"
)

// Source identifies what triggered a reconciliation.
type Source string

const (
	SourceManual Source = "manual"
	SourcePush   Source = "push"
	SourcePoll   Source = "poll"
)

// Resolution records how far accessor lookup got.
type Resolution string

const (
	ResolutionNoGlobal         Resolution = "no-global"
	ResolutionNamespaceMissing Resolution = "namespace-missing"
	ResolutionMemberMissing    Resolution = "member-missing"
	ResolutionNotCallable      Resolution = "not-callable"
	ResolutionAccessorError    Resolution = "accessor-error"
	ResolutionResolved         Resolution = "resolved"
)

// Bridge reconciles an Observable[RoomID] against an external accessor.
//
// Reconciliations are serialized. Subscribers run while the bridge holds its
// reconciliation lock and must not call Reconcile synchronously. On hosts
// that run callbacks on an event loop, such as jshost, a subscriber must not
// call Reconcile, InstallNotifier or StartPolling either: those wait on the
// same loop and never return.
//
// StopPolling prevents new ticks but does not wait for one already in
// flight, so subscribers may still be notified by a poll shortly after it
// returns.
type Bridge struct {
	id   string
	host host.Host
	room *Observable[RoomID]
	cfg  bridgeConfig

	reconcileMu sync.Mutex

	pollMu    sync.Mutex
	poll      host.PollHandle
	pollEvery time.Duration
}

// NewBridge constructs a Bridge over h. A nil host behaves as host.None.
func NewBridge(h host.Host, opts ...BridgeOption) *Bridge {
	if h == nil {
		h = host.None{}
	}
	cfg := applyBridgeOptions(opts)
	room := cfg.room
	if room == nil {
		room = NewObservable(NoRoom)
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	return &Bridge{
		id:   id,
		host: h,
		room: room,
		cfg:  cfg,
	}
}

// ID returns the bridge instance id.
func (b *Bridge) ID() string {
	return b.id
}

// Room returns the observable cell the bridge writes into.
func (b *Bridge) Room() *Observable[RoomID] {
	return b.room
}

// NotifierKey returns the global key InstallNotifier publishes under.
func (b *Bridge) NotifierKey() string {
	return b.cfg.notifierKey
}

// Reconcile reads the external accessor, writes the result into the
// observable, and returns it. It never panics: a missing global scope,
// namespace or member, a non-callable member, and accessor failures all yield
// NoRoom. Every call notifies subscribers, even when the value is unchanged.
func (b *Bridge) Reconcile() RoomID {
	return b.reconcileFrom(SourceManual)
}

// InstallNotifier publishes a zero-argument callback under the notifier key
// that performs exactly one reconciliation when the external system invokes
// it. Installing again replaces the slot. It is a no-op without a global
// scope.
func (b *Bridge) InstallNotifier() {
	installed := b.host.Globals(func(g host.Globals) {
		g.Publish(b.cfg.notifierKey, func(current host.Globals) {
			b.reconcileIn(SourcePush, current)
		})
	})
	if installed {
		b.emit(activity.BuildNotifierInstalledEvent(b.bridgeContext(), b.cfg.notifierKey))
	}
}

// StartPolling stops any running poll timer and starts a new one that
// reconciles every period. Non-positive periods use the default interval. It
// is a no-op when the host has no global scope or timer facility.
func (b *Bridge) StartPolling(every time.Duration) {
	if every <= 0 {
		every = b.cfg.interval
	}

	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	b.stopPollingLocked()
	if !b.host.Globals(nil) {
		return
	}
	handle, ok := b.host.SetInterval(every, func(g host.Globals) {
		b.reconcileIn(SourcePoll, g)
	})
	if !ok {
		return
	}
	b.poll = handle
	b.pollEvery = every
	b.emit(activity.BuildPollStartedEvent(b.bridgeContext(), every))
}

// StopPolling cancels the poll timer. A tick already running may still
// complete after it returns. Calling it while idle is a no-op.
func (b *Bridge) StopPolling() {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()
	b.stopPollingLocked()
}

// Polling reports whether a poll timer is active.
func (b *Bridge) Polling() bool {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()
	return b.poll != nil
}

// PollInterval returns the period of the active poll timer, or zero when idle.
func (b *Bridge) PollInterval() time.Duration {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()
	if b.poll == nil {
		return 0
	}
	return b.pollEvery
}

func (b *Bridge) stopPollingLocked() {
	if b.poll == nil {
		return
	}
	b.host.ClearInterval(b.poll)
	b.poll = nil
	b.pollEvery = 0
	b.emit(activity.BuildPollStoppedEvent(b.bridgeContext()))
}

func (b *Bridge) reconcileFrom(source Source) RoomID {
	var room RoomID
	if !b.host.Globals(func(g host.Globals) {
		room = b.reconcileIn(source, g)
	}) {
		room = b.reconcileIn(source, nil)
	}
	return room
}

func (b *Bridge) reconcileIn(source Source, g host.Globals) RoomID {
	b.reconcileMu.Lock()
	defer b.reconcileMu.Unlock()

	start := time.Now()
	room, resolution, err := b.resolve(g)
	previous := b.room.Get()
	b.room.Set(room)
	duration := time.Since(start)

	hookErr := b.emitReconciled(source, resolution, room, previous)
	b.logger().LogReconcile(ReconcileEvent{
		BridgeID:   b.id,
		Source:     source,
		Resolution: resolution,
		Room:       room,
		Previous:   previous,
		Duration:   duration,
		Err:        err,
		HookErr:    hookErr,
	})
	return room
}

func (b *Bridge) resolve(g host.Globals) (RoomID, Resolution, error) {
	if g == nil {
		return NoRoom, ResolutionNoGlobal, nil
	}
	ns, ok := g.Namespace(b.cfg.namespace)
	if !ok || ns == nil {
		return NoRoom, ResolutionNamespaceMissing, nil
	}
	member, ok := ns.Member(b.cfg.accessor)
	if !ok {
		return NoRoom, ResolutionMemberMissing, nil
	}
	accessor, ok := asAccessor(member)
	if !ok {
		return NoRoom, ResolutionNotCallable, nil
	}
	room, err := invoke(accessor)
	if err != nil {
		return NoRoom, ResolutionAccessorError, err
	}
	return room, ResolutionResolved, nil
}

func asAccessor(member any) (host.Accessor, bool) {
	switch fn := member.(type) {
	case host.Accessor:
		return fn, fn != nil
	case func() (any, error):
		return fn, fn != nil
	case func() any:
		if fn == nil {
			return nil, false
		}
		return func() (any, error) { return fn(), nil }, true
	case func() string:
		if fn == nil {
			return nil, false
		}
		return func() (any, error) { return fn(), nil }, true
	case func() *string:
		if fn == nil {
			return nil, false
		}
		return func() (any, error) { return fn(), nil }, true
	case func() (string, error):
		if fn == nil {
			return nil, false
		}
		return func() (any, error) { return fn() }, true
	default:
		return nil, false
	}
}

// invoke calls the accessor and coerces its result. Panics from either step,
// such as a String method on a nil receiver, become errors.
func invoke(accessor host.Accessor) (room RoomID, err error) {
	defer func() {
		if r := recover(); r != nil {
			room = NoRoom
			err = fmt.Errorf("roomsync: accessor panicked: %v", r)
		}
	}()
	value, err := accessor()
	if err != nil {
		return NoRoom, err
	}
	return coerceRoom(value), nil
}

func (b *Bridge) emitReconciled(source Source, resolution Resolution, room, previous RoomID) error {
	if !b.cfg.emitter.Enabled() {
		return nil
	}
	id, has := room.Value()
	prev, had := previous.Value()
	input := activity.RoomEventInput{
		Bridge:       b.bridgeContext(),
		Source:       string(source),
		Room:         id,
		HasRoom:      has,
		PreviousRoom: prev,
		HadRoom:      had,
		Resolution:   string(resolution),
	}
	ctx := context.Background()
	err := b.cfg.emitter.Emit(ctx, activity.BuildRoomReconciledEvent(input))
	if room != previous {
		if changeErr := b.cfg.emitter.Emit(ctx, activity.BuildRoomChangedEvent(input)); changeErr != nil && err == nil {
			err = changeErr
		}
	}
	return err
}

func (b *Bridge) emit(event activity.Event) {
	if !b.cfg.emitter.Enabled() {
		return
	}
	_ = b.cfg.emitter.Emit(context.Background(), event)
}

func (b *Bridge) bridgeContext() activity.BridgeContext {
	return activity.BridgeContext{
		BridgeID:  b.id,
		Namespace: b.cfg.namespace,
		Accessor:  b.cfg.accessor,
	}
}

func (b *Bridge) logger() BridgeLogger {
	if b.cfg.logger != nil {
		return b.cfg.logger
	}
	return noopBridgeLogger{}
}
