package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-roomsync/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// ObjectTypeRoom is the object type recorded for bridge events.
const ObjectTypeRoom = "room"

// Hook adapts activity events to a go-users ActivitySink. The bridge id is
// recorded as the actor; UserID and TenantID attribute the session that owns
// the bridge.
type Hook struct {
	Sink     usertypes.ActivitySink
	UserID   string
	TenantID string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.BridgeID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	objectID := "none"
	if normalized.HasRoom {
		objectID = normalized.Room
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.BridgeID),
		UserID:     parseUUID(h.UserID),
		TenantID:   parseUUID(h.TenantID),
		Verb:       normalized.Verb,
		ObjectType: ObjectTypeRoom,
		ObjectID:   objectID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	record.Data = withValue(record.Data, "namespace", normalized.Namespace)
	record.Data = withValue(record.Data, "accessor", normalized.Accessor)
	record.Data = withValue(record.Data, "source", normalized.Source)
	if normalized.HadRoom {
		record.Data = withValue(record.Data, "previous_room", normalized.PreviousRoom)
	}

	return h.Sink.Log(ctx, record)
}

func withValue(data map[string]any, key, value string) map[string]any {
	if value == "" {
		return data
	}
	if data == nil {
		data = map[string]any{}
	}
	data[key] = value
	return data
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
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
