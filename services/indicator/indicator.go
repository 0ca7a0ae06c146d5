// Package indicator drives the status pixel through a fixed vocabulary of
// steady colours and blink patterns.
package indicator

import (
	"log/slog"
	"time"

	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/types"
	"lockbutton-go/x/logx"
	"lockbutton-go/x/mathx"
)

// DefaultBrightness keeps the pixel readable without wasting battery.
const DefaultBrightness uint8 = 64

type Indicator struct {
	px         halcore.Pixel
	brightness uint8
	sleep      func(time.Duration)
	log        *slog.Logger
}

type Option func(*Indicator)

// WithSleep replaces time.Sleep for blink timing.
func WithSleep(f func(time.Duration)) Option { return func(i *Indicator) { i.sleep = f } }

func WithLogger(l *slog.Logger) Option { return func(i *Indicator) { i.log = l } }

func New(px halcore.Pixel, brightness uint8, opts ...Option) *Indicator {
	i := &Indicator{px: px, brightness: brightness, sleep: time.Sleep}
	for _, o := range opts {
		o(i)
	}
	i.log = logx.OrDiscard(i.log)
	return i
}

// Scale applies the configured brightness to c.
func (i *Indicator) Scale(c types.RGB) types.RGB {
	return types.RGB{
		R: mathx.ScaleU8(uint16(c.R), i.brightness),
		G: mathx.ScaleU8(uint16(c.G), i.brightness),
		B: mathx.ScaleU8(uint16(c.B), i.brightness),
	}
}

func (i *Indicator) write(c types.RGB) {
	if err := i.px.SetRGB(i.Scale(c)); err != nil {
		i.log.Warn("led:write-failed", slog.String("err", err.Error()))
	}
}

// Show holds steady colour s.
func (i *Indicator) Show(s Steady) {
	i.write(s.Color())
}

// Off turns the pixel off.
func (i *Indicator) Off() { i.write(Off) }

// Render plays p to completion and leaves the pixel off.
func (i *Indicator) Render(p Pattern) {
	b := p.Timing()
	i.log.Info("led:render", slog.String("pattern", p.String()))
	for n := 0; n < b.Count; n++ {
		i.write(b.Color)
		i.sleep(b.On)
		i.write(Off)
		i.sleep(b.Off)
	}
	i.Off()
}
