package host

import "time"

// None is a host without a global scope, such as server-side evaluation.
type None struct{}

// Globals implements Host.
func (None) Globals(func(Globals)) bool { return false }

// SetInterval implements Host.
func (None) SetInterval(time.Duration, func(Globals)) (PollHandle, bool) { return nil, false }

// ClearInterval implements Host.
func (None) ClearInterval(PollHandle) {}
