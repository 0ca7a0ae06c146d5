package timebase

// Epoch is the zero point of a board's native clock.
type Epoch uint8

const (
	EpochUnix Epoch = iota
	// Epoch2000 counts from 2000-01-01T00:00:00Z.
	Epoch2000
)

// Offset2000 is 2000-01-01 in Unix seconds.
const Offset2000 int64 = 946684800

func (e Epoch) offsetMs() int64 {
	if e == Epoch2000 {
		return Offset2000 * 1000
	}
	return 0
}

// ToUnixMilli converts native milliseconds to Unix milliseconds.
func (e Epoch) ToUnixMilli(native int64) int64 { return native + e.offsetMs() }

// FromUnixMilli converts Unix milliseconds to native milliseconds.
func (e Epoch) FromUnixMilli(unix int64) int64 { return unix - e.offsetMs() }

func (e Epoch) String() string {
	if e == Epoch2000 {
		return "2000"
	}
	return "unix"
}
