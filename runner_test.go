package roomsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-roomsync/host"
	"github.com/goliatone/go-roomsync/rules"
	"github.com/goliatone/go-roomsync/settings"
)

func effective(t *testing.T, layer settings.Settings) settings.Effective {
	t.Helper()
	resolved, err := settings.Resolve(settings.FlagsLayer(layer))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return resolved.Effective
}

func newMemoryRunner(t *testing.T, layer settings.Settings, opts ...RunnerOption) (*Runner, *host.Memory, *host.ManualScheduler) {
	t.Helper()
	scheduler := host.NewManualScheduler()
	mem := host.NewMemory(host.WithScheduler(scheduler))
	runner, err := NewRunner(mem, effective(t, layer), opts...)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner, mem, scheduler
}

func TestRunnerModes(t *testing.T) {
	cases := []struct {
		name     string
		push     bool
		fallback bool
		mode     Mode
		polling  bool
		notifier bool
	}{
		{name: "hybrid", push: true, fallback: true, mode: ModeHybrid, polling: true, notifier: true},
		{name: "push only", push: true, fallback: false, mode: ModePush, polling: false, notifier: true},
		{name: "poll only", push: false, fallback: false, mode: ModePoll, polling: true, notifier: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner, mem, _ := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
				Push:         settings.Bool(tc.push),
				PollFallback: settings.Bool(tc.fallback),
			}})
			mode, err := runner.Start()
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if mode != tc.mode || runner.Mode() != tc.mode {
				t.Fatalf("expected mode %s, got %s", tc.mode, mode)
			}
			if runner.Bridge().Polling() != tc.polling {
				t.Fatalf("expected polling=%v", tc.polling)
			}
			if _, ok := mem.Get(DefaultNotifierKey); ok != tc.notifier {
				t.Fatalf("expected notifier installed=%v", tc.notifier)
			}
			runner.Stop()
			if runner.Bridge().Polling() || runner.Mode() != ModeIdle {
				t.Fatalf("stop should halt polling")
			}
		})
	}
}

func TestRunnerManualModeWhenPolicyDeclines(t *testing.T) {
	runner, _, _ := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
		Push:     settings.Bool(false),
		PollWhen: settings.String("false"),
	}})
	mode, err := runner.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if mode != ModeManual || runner.Bridge().Polling() {
		t.Fatalf("expected manual mode without polling, got %s", mode)
	}
}

func TestRunnerStartReconcilesAndPolls(t *testing.T) {
	runner, mem, scheduler := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
		PollIntervalMS: settings.Int64(250),
	}})
	room := "lobby"
	mem.Set(DefaultNamespace, map[string]any{"room_id": func() *string { return &room }})

	if _, err := runner.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := runner.Bridge().Room().Get(); got != Room("lobby") {
		t.Fatalf("expected initial reconcile to read lobby, got %v", got)
	}
	if runner.Bridge().PollInterval() != 250*time.Millisecond {
		t.Fatalf("expected configured interval, got %v", runner.Bridge().PollInterval())
	}

	room = "arena"
	scheduler.Advance(250 * time.Millisecond)
	if got := runner.Bridge().Room().Get(); got != Room("arena") {
		t.Fatalf("expected poll to pick up arena, got %v", got)
	}

	room = "hall"
	if !mem.Invoke(DefaultNotifierKey) {
		t.Fatalf("expected notifier to be installed")
	}
	if got := runner.Bridge().Room().Get(); got != Room("hall") {
		t.Fatalf("expected push to pick up hall, got %v", got)
	}
}

func TestRunnerCustomNames(t *testing.T) {
	runner, mem, _ := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
		Namespace:   settings.String("Custom_fns"),
		Accessor:    settings.String("current"),
		NotifierKey: settings.String("Custom_notify"),
	}})
	mem.Set("Custom_fns", map[string]any{"current": func() string { return "r1" }})
	if _, err := runner.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := runner.Bridge().Room().Get(); got != Room("r1") {
		t.Fatalf("expected r1, got %v", got)
	}
	if _, ok := mem.Get("Custom_notify"); !ok {
		t.Fatalf("expected notifier under custom key")
	}
}

func TestRunnerPolicySeesRoom(t *testing.T) {
	runner, mem, _ := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
		PollWhen: settings.String("!has_room"),
	}}, WithRuleOptions(rules.WithFunctionRegistry(rules.DefaultFunctions())))

	poll, err := runner.ShouldPoll()
	if err != nil || !poll {
		t.Fatalf("expected poll without a room, got %v %v", poll, err)
	}
	mem.Set(DefaultNamespace, map[string]any{"room_id": func() string { return "lobby" }})
	runner.Bridge().Reconcile()
	poll, err = runner.ShouldPoll()
	if err != nil || poll {
		t.Fatalf("expected no poll once a room is known, got %v %v", poll, err)
	}
}

func TestRunnerPolicyErrorHasNoSideEffects(t *testing.T) {
	runner, mem, scheduler := newMemoryRunner(t, settings.Settings{Bridge: settings.Bridge{
		PollWhen: settings.String("interval_ms + 1"),
	}})
	notified := countNotifications(runner.Bridge())

	if _, err := runner.Start(); !errors.Is(err, rules.ErrNotBool) {
		t.Fatalf("expected ErrNotBool, got %v", err)
	}
	if _, ok := mem.Get(DefaultNotifierKey); ok {
		t.Fatalf("notifier must not be installed on policy error")
	}
	if scheduler.Active() != 0 || *notified != 0 {
		t.Fatalf("expected no timers and no reconciliation")
	}
	if runner.Mode() != ModeIdle {
		t.Fatalf("expected idle mode")
	}
}

func TestNewRunnerRejectsInvalidSettings(t *testing.T) {
	eff := settings.Defaults().Effective()
	eff.RuleEngine = "lua"
	if _, err := NewRunner(host.None{}, eff); err == nil {
		t.Fatalf("expected validation error")
	}

	eff = settings.Defaults().Effective()
	eff.PollWhen = "push_enabled &&"
	_, err := NewRunner(host.None{}, eff)
	var evalErr *rules.EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected compile error, got %v", err)
	}

	eff.RuleEngine = rules.EngineCEL
	_, err = NewRunner(host.None{}, eff)
	if !errors.As(err, &evalErr) || evalErr.Engine != rules.EngineCEL {
		t.Fatalf("expected cel compile error, got %v", err)
	}
}

func TestRunnerWithoutGlobalScope(t *testing.T) {
	runner, err := NewRunner(nil, settings.Defaults().Effective())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	mode, err := runner.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if mode != ModeHybrid {
		t.Fatalf("policy decides the mode even without a global scope, got %s", mode)
	}
	if runner.Bridge().Polling() {
		t.Fatalf("no timer should start without a global scope")
	}
	if runner.Bridge().Room().Get() != NoRoom {
		t.Fatalf("expected NoRoom")
	}
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	runner, _, scheduler := newMemoryRunner(t, settings.Settings{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for scheduler.Active() == 0 {
		select {
		case <-deadline:
			t.Fatalf("runner did not start polling")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	if scheduler.Active() != 0 {
		t.Fatalf("expected timer cleared")
	}
}

func TestRunnerRunReturnsDeadline(t *testing.T) {
	runner, _, _ := newMemoryRunner(t, settings.Settings{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := runner.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
