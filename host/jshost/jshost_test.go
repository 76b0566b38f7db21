package jshost_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	roomsync "github.com/goliatone/go-roomsync"
	"github.com/goliatone/go-roomsync/host/jshost"
)

func startHost(t *testing.T) *jshost.Host {
	t.Helper()
	h := jshost.New(jshost.WithConsole(false))
	h.Start()
	t.Cleanup(h.Stop)
	return h
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type resolutions struct {
	mu   sync.Mutex
	seen []roomsync.Resolution
}

func (r *resolutions) logger() roomsync.BridgeLogger {
	return roomsync.BridgeLoggerFunc(func(event roomsync.ReconcileEvent) {
		r.mu.Lock()
		r.seen = append(r.seen, event.Resolution)
		r.mu.Unlock()
	})
}

func (r *resolutions) last() roomsync.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return ""
	}
	return r.seen[len(r.seen)-1]
}

func TestEval(t *testing.T) {
	h := startHost(t)
	value, err := h.Eval("sum.js", "1 + 2")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if value != int64(3) {
		t.Fatalf("expected 3, got %#v", value)
	}
	if value, _ := h.Eval("undef.js", "undefined"); value != nil {
		t.Fatalf("expected nil for undefined, got %#v", value)
	}
	if err := h.RunScript("bad.js", "throw new Error('nope')"); err == nil {
		t.Fatalf("expected script error")
	}
}

func TestBridgeReadsLateLoader(t *testing.T) {
	h := startHost(t)
	bridge := roomsync.NewBridge(h)

	if got := bridge.Reconcile(); got != roomsync.NoRoom {
		t.Fatalf("expected NoRoom before the loader runs, got %v", got)
	}

	err := h.RunScript("loader.js", `
		var current = "room42";
		setTimeout(function () {
			globalThis.RoboScapeOnline_fns = { room_id: function () { return current; } };
		}, 20);
	`)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	eventually(t, "late loader", func() bool {
		return bridge.Reconcile() == roomsync.Room("room42")
	})
}

func TestPushNotifierRunsOnLoop(t *testing.T) {
	h := startHost(t)
	bridge := roomsync.NewBridge(h)
	bridge.InstallNotifier()

	err := h.RunScript("loader.js", `
		var current = "a";
		RoboScapeOnline_fns = { room_id: function () { return current; } };
	`)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	if err := h.RunScript("push.js", `current = "b"; RoboScapeOnline_notifyRoom();`); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := bridge.Room().Get(); got != roomsync.Room("b") {
		t.Fatalf("expected push to reconcile to b, got %v", got)
	}

	kind, err := h.Eval("typeof.js", "typeof RoboScapeOnline_notifyRoom")
	if err != nil || kind != "function" {
		t.Fatalf("expected notifier function, got %v %v", kind, err)
	}
}

func TestPollingOnLoop(t *testing.T) {
	h := startHost(t)
	bridge := roomsync.NewBridge(h)
	bridge.StartPolling(10 * time.Millisecond)
	if !bridge.Polling() {
		t.Fatalf("expected polling to start on a running host")
	}

	if err := h.RunScript("loader.js", `RoboScapeOnline_fns = { room_id: function () { return "lobby"; } };`); err != nil {
		t.Fatalf("loader: %v", err)
	}
	eventually(t, "poll", func() bool {
		return bridge.Room().Get() == roomsync.Room("lobby")
	})
	bridge.StopPolling()
	if bridge.Polling() {
		t.Fatalf("expected polling stopped")
	}
}

func TestAccessorFailuresYieldNoRoom(t *testing.T) {
	cases := []struct {
		name       string
		script     string
		resolution roomsync.Resolution
	}{
		{name: "throws", script: `RoboScapeOnline_fns = { room_id: function () { throw new Error("x"); } };`, resolution: roomsync.ResolutionAccessorError},
		{name: "null", script: `RoboScapeOnline_fns = { room_id: function () { return null; } };`, resolution: roomsync.ResolutionResolved},
		{name: "not callable", script: `RoboScapeOnline_fns = { room_id: "room42" };`, resolution: roomsync.ResolutionNotCallable},
		{name: "namespace null", script: `RoboScapeOnline_fns = null;`, resolution: roomsync.ResolutionNamespaceMissing},
		{name: "member missing", script: `RoboScapeOnline_fns = {};`, resolution: roomsync.ResolutionMemberMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := startHost(t)
			seen := &resolutions{}
			bridge := roomsync.NewBridge(h, roomsync.WithBridgeLogger(seen.logger()))
			if err := h.RunScript("loader.js", tc.script); err != nil {
				t.Fatalf("loader: %v", err)
			}
			if got := bridge.Reconcile(); got != roomsync.NoRoom {
				t.Fatalf("expected NoRoom, got %v", got)
			}
			if seen.last() != tc.resolution {
				t.Fatalf("expected %s, got %s", tc.resolution, seen.last())
			}
		})
	}
}

func TestStoppedHostHasNoGlobalScope(t *testing.T) {
	h := jshost.New(jshost.WithConsole(false))
	if h.Globals(nil) {
		t.Fatalf("host should not report globals before Start")
	}
	h.Start()
	if !h.Running() {
		t.Fatalf("expected running host")
	}
	h.Stop()
	h.Stop()

	if h.Globals(nil) {
		t.Fatalf("stopped host should not report globals")
	}
	if _, err := h.Eval("x.js", "1"); !errors.Is(err, jshost.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if _, ok := h.SetInterval(time.Millisecond, nil); ok {
		t.Fatalf("expected no interval on stopped host")
	}

	seen := &resolutions{}
	bridge := roomsync.NewBridge(h, roomsync.WithBridgeLogger(seen.logger()))
	bridge.StartPolling(time.Millisecond)
	if bridge.Polling() {
		t.Fatalf("expected polling to be a no-op")
	}
	if got := bridge.Reconcile(); got != roomsync.NoRoom || seen.last() != roomsync.ResolutionNoGlobal {
		t.Fatalf("expected NoRoom/no-global, got %v %s", got, seen.last())
	}
}
