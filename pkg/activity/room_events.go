package activity

import "time"

const (
	VerbRoomReconciled    = "room.reconciled"
	VerbRoomChanged       = "room.changed"
	VerbNotifierInstalled = "notifier.installed"
	VerbPollStarted       = "poll.started"
	VerbPollStopped       = "poll.stopped"
)

// BridgeContext identifies the bridge an event originates from.
type BridgeContext struct {
	BridgeID  string
	Namespace string
	Accessor  string
}

// RoomEventInput describes a reconciliation outcome.
type RoomEventInput struct {
	Bridge       BridgeContext
	Source       string
	Room         string
	HasRoom      bool
	PreviousRoom string
	HadRoom      bool
	Resolution   string
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildRoomReconciledEvent constructs the event emitted for every
// reconciliation attempt.
func BuildRoomReconciledEvent(input RoomEventInput) Event {
	return buildRoomEvent(VerbRoomReconciled, input)
}

// BuildRoomChangedEvent constructs the event emitted when the reconciled room
// differs from the previous one.
func BuildRoomChangedEvent(input RoomEventInput) Event {
	return buildRoomEvent(VerbRoomChanged, input)
}

// BuildNotifierInstalledEvent records publication of the push callback.
func BuildNotifierInstalledEvent(bridge BridgeContext, key string) Event {
	return Event{
		Verb:      VerbNotifierInstalled,
		BridgeID:  bridge.BridgeID,
		Namespace: bridge.Namespace,
		Accessor:  bridge.Accessor,
		Source:    "push",
		Metadata:  map[string]any{"notifier_key": key},
	}
}

// BuildPollStartedEvent records a new poll timer.
func BuildPollStartedEvent(bridge BridgeContext, every time.Duration) Event {
	return Event{
		Verb:      VerbPollStarted,
		BridgeID:  bridge.BridgeID,
		Namespace: bridge.Namespace,
		Accessor:  bridge.Accessor,
		Source:    "poll",
		Metadata:  map[string]any{"interval_ms": every.Milliseconds()},
	}
}

// BuildPollStoppedEvent records teardown of the poll timer.
func BuildPollStoppedEvent(bridge BridgeContext) Event {
	return Event{
		Verb:      VerbPollStopped,
		BridgeID:  bridge.BridgeID,
		Namespace: bridge.Namespace,
		Accessor:  bridge.Accessor,
		Source:    "poll",
	}
}

func buildRoomEvent(verb string, input RoomEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Resolution != "" {
		metadata = ensureMetadata(metadata)
		metadata["resolution"] = input.Resolution
	}
	return Event{
		Verb:         verb,
		BridgeID:     input.Bridge.BridgeID,
		Namespace:    input.Bridge.Namespace,
		Accessor:     input.Bridge.Accessor,
		Source:       input.Source,
		Room:         input.Room,
		HasRoom:      input.HasRoom,
		PreviousRoom: input.PreviousRoom,
		HadRoom:      input.HadRoom,
		Metadata:     metadata,
		OccurredAt:   input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
