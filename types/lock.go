package types

// ------------------------
// Press → action
// ------------------------

// Action is the command a press resolves to.
type Action uint8

const (
	ActionUnlock Action = iota // short press
	ActionLock                 // long press
)

// DefaultLongPressMs is the press length at and above which a press means LOCK.
const DefaultLongPressMs uint32 = 1000

// String returns the command name used on the wire.
func (a Action) String() string {
	if a == ActionLock {
		return "lock"
	}
	return "unlock"
}

// Classify maps a press duration to an action. Equality with the threshold is LONG.
func Classify(durationMs, longPressMs uint32) Action {
	if durationMs < longPressMs {
		return ActionUnlock
	}
	return ActionLock
}

// PressMeasurement is created once per wake cycle and not modified afterwards.
type PressMeasurement struct {
	DurationMs uint32 `json:"duration_ms"`
	Action     Action `json:"action"`
}

// ------------------------
// Colour
// ------------------------

// RGB is an unscaled pixel colour.
type RGB struct {
	R, G, B uint8
}
