// Package press measures how long the wake button is held.
package press

import (
	"log/slog"
	"time"

	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/indicator"
	"lockbutton-go/types"
	"lockbutton-go/x/logx"
)

const DefaultPollInterval = 10 * time.Millisecond

// Feedback receives the provisional colour on every poll.
type Feedback interface {
	Show(s indicator.Steady)
}

type Config struct {
	LongPressMs  uint32
	ActiveLow    bool // pressed == low (pull-up wiring)
	PollInterval time.Duration
}

type Sampler struct {
	pin   halcore.InputPin
	cfg   Config
	now   func() time.Time
	sleep func(time.Duration)
	log   *slog.Logger
}

type Option func(*Sampler)

// WithClock replaces time.Now and time.Sleep.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Sampler) { s.now, s.sleep = now, sleep }
}

func WithLogger(l *slog.Logger) Option { return func(s *Sampler) { s.log = l } }

func New(pin halcore.InputPin, cfg Config, opts ...Option) *Sampler {
	if cfg.LongPressMs == 0 {
		cfg.LongPressMs = types.DefaultLongPressMs
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	s := &Sampler{pin: pin, cfg: cfg, now: time.Now, sleep: time.Sleep}
	for _, o := range opts {
		o(s)
	}
	s.log = logx.OrDiscard(s.log)
	return s
}

func (s *Sampler) pressed() bool {
	lvl := s.pin.Get()
	if s.cfg.ActiveLow {
		return !lvl
	}
	return lvl
}

// Measure polls from the start of the cycle until release. The wake event is
// the press start. There is no timeout; the watchdog bounds a stuck button.
func (s *Sampler) Measure(fb Feedback) types.PressMeasurement {
	start := s.now()
	shown := indicator.SteadyOff
	for {
		held := s.pressed()
		ms := uint32(s.now().Sub(start) / time.Millisecond)
		act := types.Classify(ms, s.cfg.LongPressMs)
		if st := indicator.ForAction(act); st != shown {
			fb.Show(st)
			shown = st
		}
		if !held {
			s.log.Info("press:released",
				slog.Int("duration_ms", int(ms)),
				slog.String("action", act.String()),
			)
			return types.PressMeasurement{DurationMs: ms, Action: act}
		}
		s.sleep(s.cfg.PollInterval)
	}
}
