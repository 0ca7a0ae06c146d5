package indicator

import (
	"time"

	"lockbutton-go/types"
)

// Palette (unscaled).
var (
	Off     = types.RGB{}
	Green   = types.RGB{G: 255}
	Red     = types.RGB{R: 255}
	Blue    = types.RGB{B: 255}
	Cyan    = types.RGB{G: 255, B: 255}
	Yellow  = types.RGB{R: 255, G: 200}
	Magenta = types.RGB{R: 255, B: 255}
)

// Steady is a colour held until the next change.
type Steady uint8

const (
	SteadyOff Steady = iota
	ShortPress
	LongPress
	Discovering
	FastReconnect
)

var steadyNames = [...]string{"off", "short_press", "long_press", "discovering", "fast_reconnect"}

func (s Steady) String() string {
	if int(s) < len(steadyNames) {
		return steadyNames[s]
	}
	return "unknown"
}

// Color returns the palette entry for s.
func (s Steady) Color() types.RGB {
	switch s {
	case ShortPress:
		return Green
	case LongPress:
		return Red
	case Discovering:
		return Blue
	case FastReconnect:
		return Cyan
	default:
		return Off
	}
}

// ForAction is the provisional colour shown while the button is held.
func ForAction(a types.Action) Steady {
	if a == types.ActionLock {
		return LongPress
	}
	return ShortPress
}

// Pattern is a blink sequence that reports an outcome to the operator.
type Pattern uint8

const (
	PatternNone Pattern = iota
	SuccessUnlock
	SuccessLock
	TimeSyncFailed
	TimeSyncError
	NetworkTimeout
	APIError
	AuthError
)

// Blink is the timing of one pattern.
type Blink struct {
	Color types.RGB
	Count int
	On    time.Duration
	Off   time.Duration
}

var patterns = [...]struct {
	name string
	b    Blink
}{
	PatternNone:    {"none", Blink{}},
	SuccessUnlock:  {"success_unlock", Blink{Green, 2, 200 * time.Millisecond, 200 * time.Millisecond}},
	SuccessLock:    {"success_lock", Blink{Red, 2, 200 * time.Millisecond, 200 * time.Millisecond}},
	TimeSyncFailed: {"time_sync_failed", Blink{Yellow, 2, 100 * time.Millisecond, 100 * time.Millisecond}},
	TimeSyncError:  {"time_sync_error", Blink{Yellow, 4, 100 * time.Millisecond, 100 * time.Millisecond}},
	NetworkTimeout: {"network_timeout", Blink{Blue, 5, 100 * time.Millisecond, 100 * time.Millisecond}},
	APIError:       {"api_error", Blink{Magenta, 3, 300 * time.Millisecond, 300 * time.Millisecond}},
	AuthError:      {"auth_error", Blink{Red, 6, 80 * time.Millisecond, 80 * time.Millisecond}},
}

func (p Pattern) String() string {
	if int(p) < len(patterns) {
		return patterns[p].name
	}
	return "unknown"
}

// Timing returns the blink definition for p.
func (p Pattern) Timing() Blink {
	if int(p) < len(patterns) {
		return patterns[p].b
	}
	return Blink{}
}

// SuccessFor returns the success pattern for a.
func SuccessFor(a types.Action) Pattern {
	if a == types.ActionLock {
		return SuccessLock
	}
	return SuccessUnlock
}
