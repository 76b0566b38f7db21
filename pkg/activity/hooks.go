package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes a bridge occurrence that can be fanned out to hooks. Room
// values are plain strings with presence flags so hooks stay decoupled from
// the roomsync types.
type Event struct {
	Verb         string
	BridgeID     string
	Namespace    string
	Accessor     string
	Source       string
	Room         string
	HasRoom      bool
	PreviousRoom string
	HadRoom      bool
	Channel      string
	Metadata     map[string]any
	OccurredAt   time.Time
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any fail.
// Events without a verb or bridge id are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.BridgeID == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, clones metadata and stamps a time. Room
// values are opaque and left untouched.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.BridgeID = strings.TrimSpace(event.BridgeID)
	normalized.Namespace = strings.TrimSpace(event.Namespace)
	normalized.Accessor = strings.TrimSpace(event.Accessor)
	normalized.Source = strings.TrimSpace(event.Source)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if !normalized.HasRoom {
		normalized.Room = ""
	}
	if !normalized.HadRoom {
		normalized.PreviousRoom = ""
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
