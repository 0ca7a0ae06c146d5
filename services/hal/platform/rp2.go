//go:build rp2040 && ninafw

package platform

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"machine"
	"net"
	"net/http"
	"runtime"
	"runtime/interrupt"
	"sync"
	"time"

	"device/rp"

	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
	"tinygo.org/x/drivers/ws2812"

	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/timebase"
	"lockbutton-go/types"
	"lockbutton-go/x/logx"
)

// maxWatchdog is the longest timeout the RP2040 watchdog counter holds.
const maxWatchdog = 8388 * time.Millisecond

// NewRP2 assembles the Nano RP2040 Connect: NINA-W102 radio over SPI, an
// external WS2812 pixel and a button on a GPIO.
func NewRP2(w Wiring, log *slog.Logger) *Board {
	log = logx.OrDiscard(log)

	led := machine.Pin(w.LEDPin)
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	st := &rp2Station{log: log}

	return &Board{
		Name:     "nano-rp2040",
		Button:   &rp2Pin{p: machine.Pin(w.ButtonPin), n: w.ButtonPin},
		Pixel:    &rp2Pixel{dev: ws2812.NewWS2812(led)},
		RTC:      scratchRegion{},
		Station:  st,
		Clock:    rp2Clock{},
		Epoch:    timebase.EpochUnix,
		Watchdog: &rp2Watchdog{},
		Power:    &rp2Power{log: log},
		HTTP:     &http.Client{},
		Dial: func(_ context.Context, network, addr string) (net.Conn, error) {
			return net.Dial(network, addr)
		},
		LowMemory: true,
	}
}

// ---- GPIO ----

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(p halcore.Pull) error {
	var mode machine.PinMode
	switch p {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) Get() bool   { return r.p.Get() }
func (r *rp2Pin) Number() int { return r.n }

// ---- Pixel ----

type rp2Pixel struct {
	dev ws2812.Device
	buf [1]color.RGBA
}

func (p *rp2Pixel) SetRGB(c types.RGB) error {
	p.buf[0] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	// The bit timing breaks if an interrupt lands mid-frame.
	state := interrupt.Disable()
	err := p.dev.WriteColors(p.buf[:])
	interrupt.Restore(state)
	return err
}

// ---- Retained memory ----

// scratchRegion maps the eight record bytes onto watchdog scratch registers
// 0 and 1, which keep their contents across a watchdog reset. Each byte
// write is a single 32-bit store.
type scratchRegion struct{}

func (scratchRegion) Size() int { return 8 }

func scratchWord(i int64) uint32 {
	if i < 4 {
		return rp.WATCHDOG.SCRATCH0.Get()
	}
	return rp.WATCHDOG.SCRATCH1.Get()
}

func (scratchRegion) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > 8 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "rtc.read", Msg: "offset out of range"}
	}
	n := 0
	for i := off; i < 8 && n < len(p); i++ {
		p[n] = byte(scratchWord(i) >> (8 * uint(i%4)))
		n++
	}
	return n, nil
}

func (scratchRegion) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > 8 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "rtc.write", Msg: "write past end of region"}
	}
	for n, b := range p {
		i := off + int64(n)
		shift := 8 * uint(i%4)
		w := scratchWord(i)&^(0xFF<<shift) | uint32(b)<<shift
		if i < 4 {
			rp.WATCHDOG.SCRATCH0.Set(w)
		} else {
			rp.WATCHDOG.SCRATCH1.Set(w)
		}
	}
	return len(p), nil
}

// ---- Wi-Fi ----

// rp2Station drives the NINA firmware through netlink. The firmware picks
// the access point itself and exposes neither scan results nor the joined
// BSSID, so those operations are unsupported.
//
// The radio is probed on first use: resetting the NINA module takes long
// enough to distort the press measurement that runs before connect.
type rp2Station struct {
	log *slog.Logger

	once sync.Once
	link netlink.Netlinker

	mu    sync.Mutex
	assoc bool
}

func (s *rp2Station) radio() netlink.Netlinker {
	s.once.Do(func() {
		s.link, _ = probe.Probe()
		s.link.NetNotify(s.notify)
	})
	return s.link
}

func (s *rp2Station) notify(e netlink.Event) {
	s.mu.Lock()
	s.assoc = e == netlink.EventNetUp
	s.mu.Unlock()
	s.log.Debug("wifi:event", slog.Bool("up", e == netlink.EventNetUp))
}

func (s *rp2Station) Associated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assoc
}

// SetStaticAddr is unsupported: the NINA firmware always runs DHCP.
func (s *rp2Station) SetStaticAddr(halcore.StaticAddr) error {
	return &errcode.E{C: errcode.Unsupported, Op: "wifi.static"}
}

func (s *rp2Station) Scan(context.Context) ([]halcore.AccessPoint, error) {
	return nil, &errcode.E{C: errcode.Unsupported, Op: "wifi.scan"}
}

func (s *rp2Station) Join(ctx context.Context, ssid, passphrase string, bssid []byte) error {
	if bssid != nil {
		return &errcode.E{C: errcode.Unsupported, Op: "wifi.join", Msg: "bssid targeting"}
	}
	timeout := netlink.DefaultConnectTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return &errcode.E{C: errcode.Timeout, Op: "wifi.join", Err: ctx.Err()}
	}
	err := s.radio().NetConnect(&netlink.ConnectParams{
		ConnectMode:    netlink.ConnectModeSTA,
		Ssid:           ssid,
		Passphrase:     passphrase,
		AuthType:       netlink.AuthTypeWPA2,
		Retries:        1,
		ConnectTimeout: timeout,
	})
	switch {
	case err == nil, errors.Is(err, netlink.ErrConnected):
		s.mu.Lock()
		s.assoc = true
		s.mu.Unlock()
		return nil
	case errors.Is(err, netlink.ErrConnectTimeout):
		return &errcode.E{C: errcode.Timeout, Op: "wifi.join", Err: err}
	default:
		return &errcode.E{C: errcode.ConnectFailed, Op: "wifi.join", Err: err}
	}
}

func (s *rp2Station) LinkInfo() ([6]byte, uint8, error) {
	return [6]byte{}, 0, &errcode.E{C: errcode.Unsupported, Op: "wifi.link"}
}

func (s *rp2Station) Disconnect() error {
	s.radio().NetDisconnect()
	s.mu.Lock()
	s.assoc = false
	s.mu.Unlock()
	return nil
}

// ---- Clock ----

// rp2Clock is the runtime clock. It restarts from zero on every reset, so
// the cycle syncs it each wake.
type rp2Clock struct{}

func (rp2Clock) NowNativeMs() int64 { return time.Now().UnixMilli() }

func (rp2Clock) SetNativeMs(ms int64) error {
	runtime.AdjustTimeOffset((ms - time.Now().UnixMilli()) * int64(time.Millisecond))
	return nil
}

// ---- Watchdog ----

// rp2Watchdog stretches the hardware watchdog, whose counter tops out near
// 8.4 s, to any timeout. A goroutine refreshes the hardware counter until
// the software deadline passes; a hang that starves the scheduler still
// trips the hardware reset.
type rp2Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	deadline time.Time
	running  bool
}

func (w *rp2Watchdog) Configure(timeout time.Duration) error {
	if timeout <= 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.configure", Msg: "timeout must be positive"}
	}
	w.mu.Lock()
	w.timeout = timeout
	w.mu.Unlock()
	hw := timeout
	if hw > maxWatchdog {
		hw = maxWatchdog
	}
	return machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: uint32(hw / time.Millisecond)})
}

func (w *rp2Watchdog) Start() error {
	w.mu.Lock()
	w.deadline = time.Now().Add(w.timeout)
	stretch := w.timeout > maxWatchdog && !w.running
	w.running = true
	w.mu.Unlock()
	if stretch {
		go w.refresh()
	}
	return machine.Watchdog.Start()
}

func (w *rp2Watchdog) Feed() {
	w.mu.Lock()
	w.deadline = time.Now().Add(w.timeout)
	w.mu.Unlock()
	machine.Watchdog.Update()
}

func (w *rp2Watchdog) refresh() {
	for {
		time.Sleep(maxWatchdog / 4)
		w.mu.Lock()
		alive := time.Now().Before(w.deadline)
		w.mu.Unlock()
		if !alive {
			return
		}
		machine.Watchdog.Update()
	}
}

// ---- Power ----

// rp2Power emulates deep sleep with a low-rate poll of the wake pin
// followed by a forced watchdog reset, which the next boot reads back as
// a wake.
type rp2Power struct {
	log     *slog.Logger
	wakePin machine.Pin
	wakeLvl bool
	armed   bool
}

func (p *rp2Power) ResetCause() halcore.ResetCause {
	r := rp.WATCHDOG.REASON.Get()
	switch {
	case r&rp.WATCHDOG_REASON_FORCE != 0:
		return halcore.ResetWakeFromSleep
	case r&rp.WATCHDOG_REASON_TIMER != 0:
		return halcore.ResetWatchdog
	default:
		return halcore.ResetPowerOn
	}
}

// SetCPUFrequency is unsupported: the system clock is fixed at startup.
func (p *rp2Power) SetCPUFrequency(uint32) error {
	return &errcode.E{C: errcode.Unsupported, Op: "power.freq"}
}

func (p *rp2Power) ArmWake(pin int, level bool) error {
	p.wakePin, p.wakeLvl, p.armed = machine.Pin(pin), level, true
	return nil
}

func (p *rp2Power) DeepSleep() {
	rp.WATCHDOG.CTRL.ClearBits(rp.WATCHDOG_CTRL_ENABLE)
	if p.armed {
		// Wait for release first so a long hold does not re-trigger.
		for p.wakePin.Get() == p.wakeLvl {
			time.Sleep(50 * time.Millisecond)
		}
		for p.wakePin.Get() != p.wakeLvl {
			time.Sleep(20 * time.Millisecond)
		}
	} else {
		p.log.Warn("power:sleep-unarmed")
		for {
			time.Sleep(time.Hour)
		}
	}
	rp.WATCHDOG.CTRL.SetBits(rp.WATCHDOG_CTRL_TRIGGER)
	for {
	}
}
