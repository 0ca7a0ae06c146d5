package rtcmem

import (
	"bytes"
	"errors"
	"testing"

	"lockbutton-go/errcode"
)

func newCache(t *testing.T) (*Cache, *Mem) {
	t.Helper()
	m := &Mem{}
	c, err := NewCache(m)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c, m
}

func TestRoundTrip(t *testing.T) {
	c, m := newCache(t)
	bssid := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if err := c.Save(bssid, 6); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s := c.Load()
	if !s.Valid || !bytes.Equal(s.BSSID[:], bssid) || s.Channel != 6 {
		t.Fatalf("Load = %+v", s)
	}
	raw := m.Bytes()
	want := [RecordSize]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 6, ValidMarker}
	if raw != want {
		t.Fatalf("raw record % X, want % X", raw, want)
	}
}

func TestZeroRegionIsInvalid(t *testing.T) {
	c, _ := newCache(t)
	if s := c.Load(); s.Valid {
		t.Fatalf("zeroed region read back valid: %+v", s)
	}
	// A zero record with a boolean-style marker must not alias valid either.
	if s := Decode([]byte{0, 0, 0, 0, 0, 0, 0, 1}); s.Valid {
		t.Fatal("marker 1 accepted as valid")
	}
	// Marker present but BSSID zero.
	if s := Decode([]byte{0, 0, 0, 0, 0, 0, 3, ValidMarker}); s.Valid {
		t.Fatal("zero BSSID accepted as valid")
	}
	if s := Decode([]byte{1, 2, 3}); s.Valid {
		t.Fatal("short record accepted as valid")
	}
}

func TestSaveRejectsBadBSSID(t *testing.T) {
	c, m := newCache(t)
	if err := c.Save([]byte{1, 2, 3, 4, 5, 6}, 1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before := m.Bytes()

	for _, b := range [][]byte{{0xAA, 0xBB, 0xCC}, nil, make([]byte, 7), make([]byte, 6)} {
		err := c.Save(b, 6)
		if !errors.Is(err, errcode.InvalidParams) {
			t.Fatalf("Save(% X) err = %v, want invalid_params", b, err)
		}
	}
	if m.Bytes() != before {
		t.Fatal("rejected save modified the region")
	}
}

func TestSupersede(t *testing.T) {
	c, _ := newCache(t)
	_ = c.Save([]byte{1, 1, 1, 1, 1, 1}, 1)
	_ = c.Save([]byte{2, 2, 2, 2, 2, 2}, 11)
	s := c.Load()
	if s.BSSID != [6]byte{2, 2, 2, 2, 2, 2} || s.Channel != 11 {
		t.Fatalf("record not replaced: %+v", s)
	}
}

func TestKnownChannel(t *testing.T) {
	bssid := []byte{1, 2, 3, 4, 5, 6}
	cases := []struct {
		ch uint8
		ok bool
	}{{0, false}, {1, true}, {14, true}, {15, false}}
	for _, cs := range cases {
		c, _ := newCache(t)
		_ = c.Save(bssid, cs.ch)
		s := c.Load()
		if !s.Valid {
			t.Fatalf("channel %d: BSSID should stay usable", cs.ch)
		}
		if ch, ok := s.KnownChannel(); ok != cs.ok || (ok && ch != cs.ch) {
			t.Fatalf("KnownChannel(%d) = %d,%v", cs.ch, ch, ok)
		}
	}
}

// tornRegion fails every write after the first n, as a reset would.
type tornRegion struct {
	Mem
	n int
}

func (r *tornRegion) WriteAt(p []byte, off int64) (int, error) {
	if r.n == 0 {
		return 0, errors.New("reset")
	}
	r.n--
	return r.Mem.WriteAt(p, off)
}

func TestTornWriteNeverValid(t *testing.T) {
	old := []byte{9, 9, 9, 9, 9, 9}
	for cut := 0; cut < 3; cut++ {
		r := &tornRegion{n: 3}
		c, _ := NewCache(r)
		if err := c.Save(old, 1); err != nil {
			t.Fatalf("seed: %v", err)
		}
		r.n = cut
		if err := c.Save([]byte{1, 2, 3, 4, 5, 6}, 6); err == nil {
			t.Fatalf("cut %d: expected error", cut)
		}
		s := c.Load()
		if s.Valid && s.BSSID != [6]byte{9, 9, 9, 9, 9, 9} {
			t.Fatalf("cut %d: torn record read back valid: %+v", cut, s)
		}
		if cut > 0 && s.Valid {
			t.Fatalf("cut %d: marker should be cleared", cut)
		}
	}
}

func TestNewCacheRejectsSmallRegion(t *testing.T) {
	if _, err := NewCache(nil); err == nil {
		t.Fatal("nil region accepted")
	}
}
