package roomsync

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// RoomID is an optional room identifier. The zero value is NoRoom, meaning no
// active room or an external API that is not available yet.
type RoomID struct {
	id    string
	valid bool
}

// NoRoom is the absent room identifier.
var NoRoom RoomID

// Room returns a present room identifier. The empty string is a valid id.
func Room(id string) RoomID {
	return RoomID{id: id, valid: true}
}

// RoomFromPtr maps nil to NoRoom.
func RoomFromPtr(id *string) RoomID {
	if id == nil {
		return NoRoom
	}
	return Room(*id)
}

// Value returns the identifier and whether it is present.
func (r RoomID) Value() (string, bool) {
	return r.id, r.valid
}

// Valid reports whether a room is present.
func (r RoomID) Valid() bool {
	return r.valid
}

// Ptr returns nil for NoRoom.
func (r RoomID) Ptr() *string {
	if !r.valid {
		return nil
	}
	id := r.id
	return &id
}

func (r RoomID) String() string {
	if !r.valid {
		return "<none>"
	}
	return r.id
}

// MarshalJSON encodes NoRoom as null.
func (r RoomID) MarshalJSON() ([]byte, error) {
	if !r.valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON decodes null as NoRoom.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	var id *string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("roomsync: room id: %w", err)
	}
	*r = RoomFromPtr(id)
	return nil
}

// coerceRoom normalises an accessor result. Nil values, including typed nil
// pointers, maps, slices and funcs, are NoRoom; anything else is passed
// through as text.
func coerceRoom(value any) RoomID {
	if isNil(value) {
		return NoRoom
	}
	switch v := value.(type) {
	case nil:
		return NoRoom
	case RoomID:
		return v
	case string:
		return Room(v)
	case *string:
		return RoomFromPtr(v)
	case fmt.Stringer:
		return Room(v.String())
	default:
		return Room(fmt.Sprint(v))
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
