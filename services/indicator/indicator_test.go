package indicator

import (
	"errors"
	"testing"
	"time"

	"lockbutton-go/types"
)

type recPixel struct {
	writes []types.RGB
	fail   bool
}

func (p *recPixel) SetRGB(c types.RGB) error {
	if p.fail {
		return errors.New("spi busy")
	}
	p.writes = append(p.writes, c)
	return nil
}

func TestScaleBrightness(t *testing.T) {
	cases := []struct {
		b    uint8
		in   uint8
		want uint8
	}{
		{255, 255, 255},
		{128, 255, 128},
		{64, 255, 64},
		{255, 0, 0},
		{0, 255, 0},
		{0, 128, 0},
	}
	for _, c := range cases {
		i := New(&recPixel{}, c.b)
		got := i.Scale(types.RGB{R: c.in, G: c.in, B: c.in})
		if got.R != c.want || got.G != c.want || got.B != c.want {
			t.Fatalf("brightness %d: Scale(%d) = %+v, want %d", c.b, c.in, got, c.want)
		}
	}
}

func TestShowUsesSteadyColours(t *testing.T) {
	px := &recPixel{}
	i := New(px, 255)
	for _, s := range []Steady{ShortPress, LongPress, Discovering, FastReconnect} {
		i.Show(s)
	}
	want := []types.RGB{Green, Red, Blue, Cyan}
	if len(px.writes) != len(want) {
		t.Fatalf("writes = %v", px.writes)
	}
	for n := range want {
		if px.writes[n] != want[n] {
			t.Fatalf("write %d = %+v, want %+v", n, px.writes[n], want[n])
		}
	}
	if ShortPress.Color() == LongPress.Color() || Discovering.Color() == FastReconnect.Color() {
		t.Fatal("steady colours must be distinct")
	}
}

func TestRenderPlaysPatternAndEndsOff(t *testing.T) {
	px := &recPixel{}
	var slept time.Duration
	i := New(px, 255, WithSleep(func(d time.Duration) { slept += d }))

	i.Render(AuthError)

	b := AuthError.Timing()
	// on+off per blink, then a final off.
	if got, want := len(px.writes), 2*b.Count+1; got != want {
		t.Fatalf("writes = %d, want %d", got, want)
	}
	on := 0
	for _, w := range px.writes {
		if w == b.Color {
			on++
		}
	}
	if on != b.Count {
		t.Fatalf("on-writes = %d, want %d", on, b.Count)
	}
	if px.writes[len(px.writes)-1] != Off {
		t.Fatal("pattern must leave the pixel off")
	}
	if want := time.Duration(b.Count) * (b.On + b.Off); slept != want {
		t.Fatalf("slept %v, want %v", slept, want)
	}
}

func TestPatternsAreDistinct(t *testing.T) {
	seen := map[Blink]Pattern{}
	for p := SuccessUnlock; p <= AuthError; p++ {
		b := p.Timing()
		if b.Count == 0 {
			t.Fatalf("%s has no blinks", p)
		}
		if prev, dup := seen[b]; dup {
			t.Fatalf("%s and %s share timing", p, prev)
		}
		seen[b] = p
	}
	if SuccessFor(types.ActionLock) != SuccessLock || SuccessFor(types.ActionUnlock) != SuccessUnlock {
		t.Fatal("SuccessFor mapping")
	}
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	px := &recPixel{fail: true}
	i := New(px, 255, WithSleep(func(time.Duration) {}))
	i.Render(APIError) // must not panic
	if len(px.writes) != 0 {
		t.Fatal("failed writes recorded")
	}
}
