// Package rtcmem keeps the last-known access point in sleep-retained memory.
//
// Record layout (8 bytes):
//
//	[0..5] BSSID
//	[6]    channel (diagnostic only)
//	[7]    validity marker, ValidMarker when the record is usable
//
// The marker is a sentinel rather than 1 so that zero-initialised memory
// never reads back as valid.
package rtcmem

import (
	"lockbutton-go/x/mathx"
)

const (
	RecordSize = 8

	offBSSID   = 0
	offChannel = 6
	offMarker  = 7

	ValidMarker byte = 0xA5
)

// LinkState is the decoded record.
type LinkState struct {
	BSSID   [6]byte
	Channel uint8
	Valid   bool
}

// KnownChannel reports the channel when it is a 2.4 GHz channel (1..14).
func (s LinkState) KnownChannel() (uint8, bool) {
	if !s.Valid || !mathx.Between[uint8](s.Channel, 1, 14) {
		return 0, false
	}
	return s.Channel, true
}

// Encode renders s as a full record. Invalid states encode to all zeroes.
func Encode(s LinkState) [RecordSize]byte {
	var b [RecordSize]byte
	if !s.Valid || isZero(s.BSSID) {
		return b
	}
	copy(b[offBSSID:offChannel], s.BSSID[:])
	b[offChannel] = s.Channel
	b[offMarker] = ValidMarker
	return b
}

// Decode parses a record. Anything other than a full record carrying the
// marker and a non-zero BSSID decodes as invalid.
func Decode(b []byte) LinkState {
	if len(b) != RecordSize || b[offMarker] != ValidMarker {
		return LinkState{}
	}
	var s LinkState
	copy(s.BSSID[:], b[offBSSID:offChannel])
	if isZero(s.BSSID) {
		return LinkState{}
	}
	s.Channel = b[offChannel]
	s.Valid = true
	return s
}

func isZero(b [6]byte) bool {
	return b == [6]byte{}
}
