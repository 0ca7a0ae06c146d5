package rtcmem

import (
	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
)

// Cache reads and replaces the link record in a sleep-retained region.
type Cache struct {
	r halcore.Region
}

func NewCache(r halcore.Region) (*Cache, error) {
	if r == nil || r.Size() < RecordSize {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "rtcmem.new", Msg: "region smaller than record"}
	}
	return &Cache{r: r}, nil
}

// Load returns the stored state. Short reads yield an invalid state.
func (c *Cache) Load() LinkState {
	var b [RecordSize]byte
	if n, _ := c.r.ReadAt(b[:], 0); n != RecordSize {
		return LinkState{}
	}
	return Decode(b[:])
}

// Save replaces the whole record with bssid/channel.
//
// Write order: clear marker, write payload, set marker. A reset at any
// point leaves either the old record or one without the marker, never a
// torn record that reads back valid.
func (c *Cache) Save(bssid []byte, channel uint8) error {
	if len(bssid) != 6 {
		return &errcode.E{C: errcode.InvalidParams, Op: "rtcmem.save", Msg: "bssid must be 6 bytes"}
	}
	var s LinkState
	copy(s.BSSID[:], bssid)
	if isZero(s.BSSID) {
		return &errcode.E{C: errcode.InvalidParams, Op: "rtcmem.save", Msg: "zero bssid"}
	}
	s.Channel = channel
	s.Valid = true
	rec := Encode(s)

	if _, err := c.r.WriteAt([]byte{0}, offMarker); err != nil {
		return &errcode.E{C: errcode.Error, Op: "rtcmem.save", Err: err}
	}
	if _, err := c.r.WriteAt(rec[:offMarker], offBSSID); err != nil {
		return &errcode.E{C: errcode.Error, Op: "rtcmem.save", Err: err}
	}
	if _, err := c.r.WriteAt(rec[offMarker:], offMarker); err != nil {
		return &errcode.E{C: errcode.Error, Op: "rtcmem.save", Err: err}
	}
	return nil
}
