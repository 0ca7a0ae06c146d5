//go:build !(rp2040 && ninafw)

package platform

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/timebase"
	"lockbutton-go/types"
	"lockbutton-go/x/conv"
	"lockbutton-go/x/logx"
)

// DefaultHostBSSID is the simulated access point's hardware address, a
// locally administered MAC.
var DefaultHostBSSID = [6]byte{0x02, 0x4C, 0x42, 0x00, 0x00, 0x01}

const (
	hostRegionSize   = 8
	defaultJoinDelay = 150 * time.Millisecond
)

// HostOptions selects what the simulated board does this run.
type HostOptions struct {
	Wiring Wiring
	// Hold is how long the simulated button stays pressed after boot.
	Hold  time.Duration
	Cause halcore.ResetCause
	// RTCPath backs the sleep-retained region.
	RTCPath    string
	StaleClock bool
	SSID       string
	Log        *slog.Logger
	// Exit is called when the watchdog expires; default os.Exit.
	Exit func(code int)
}

// NewHost assembles the simulated board.
func NewHost(o HostOptions) *Board {
	log := logx.OrDiscard(o.Log)
	wd := &HostWatchdog{Log: log, Exit: o.Exit}
	clk := &HostClock{}
	if o.StaleClock {
		clk.Reset()
	}
	return &Board{
		Name:     "host",
		Button:   NewScriptedPin(o.Wiring.ButtonPin, o.Wiring.ButtonActiveLow, o.Hold),
		Pixel:    &LogPixel{Log: log},
		RTC:      &FileRegion{Path: o.RTCPath},
		Station:  NewHostStation(halcore.AccessPoint{SSID: o.SSID, BSSID: DefaultHostBSSID, Channel: 6, RSSI: -48}, log),
		Clock:    clk,
		Epoch:    timebase.Epoch2000,
		Watchdog: wd,
		Power:    &HostPower{Cause: o.Cause, Watchdog: wd, Log: log},
	}
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin is an input whose level tests set directly.
type FakePin struct {
	mu     sync.RWMutex
	number int
	level  bool
	pull   halcore.Pull
}

func NewFakePin(n int, level bool) *FakePin { return &FakePin{number: n, level: level} }

func (p *FakePin) ConfigureInput(pull halcore.Pull) error {
	p.mu.Lock()
	p.pull = pull
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) Pull() halcore.Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

// ScriptedPin reads pressed for a fixed hold measured from ConfigureInput,
// then released.
type ScriptedPin struct {
	number    int
	activeLow bool
	hold      time.Duration
	now       func() time.Time

	mu    sync.Mutex
	start time.Time
}

func NewScriptedPin(n int, activeLow bool, hold time.Duration) *ScriptedPin {
	return &ScriptedPin{number: n, activeLow: activeLow, hold: hold, now: time.Now}
}

func (p *ScriptedPin) Number() int { return p.number }

func (p *ScriptedPin) ConfigureInput(_ halcore.Pull) error {
	p.mu.Lock()
	p.start = p.now()
	p.mu.Unlock()
	return nil
}

func (p *ScriptedPin) Get() bool {
	p.mu.Lock()
	if p.start.IsZero() {
		p.start = p.now()
	}
	pressed := p.now().Sub(p.start) < p.hold
	p.mu.Unlock()
	return pressed != p.activeLow
}

// ----------------------------- Pixel (host) ----------------------------------

// LogPixel logs every colour it is given.
type LogPixel struct {
	Log *slog.Logger

	mu   sync.Mutex
	last types.RGB
	n    int
}

func (p *LogPixel) SetRGB(c types.RGB) error {
	p.mu.Lock()
	same := p.n > 0 && c == p.last
	p.last = c
	p.n++
	p.mu.Unlock()
	if !same {
		logx.OrDiscard(p.Log).Debug("led:rgb", slog.Int("r", int(c.R)), slog.Int("g", int(c.G)), slog.Int("b", int(c.B)))
	}
	return nil
}

// Last is the most recent colour and the number of writes so far.
func (p *LogPixel) Last() (types.RGB, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.n
}

// ----------------------------- Retained memory (host) ------------------------

// FileRegion keeps the retained bytes in a small file so they outlive the
// process the way scratch registers outlive deep sleep. A missing file
// reads as zeros.
type FileRegion struct {
	Path string
	mu   sync.Mutex
}

func (r *FileRegion) Size() int { return hostRegionSize }

func (r *FileRegion) load() ([]byte, error) {
	b := make([]byte, hostRegionSize)
	data, err := os.ReadFile(r.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	copy(b, data)
	return b, nil
}

func (r *FileRegion) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if off < 0 || off > hostRegionSize {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "rtc.read", Msg: "offset out of range"}
	}
	b, err := r.load()
	if err != nil {
		return 0, err
	}
	return copy(p, b[off:]), nil
}

func (r *FileRegion) WriteAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if off < 0 || off+int64(len(p)) > hostRegionSize {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "rtc.write", Msg: "write past end of region"}
	}
	b, err := r.load()
	if err != nil {
		return 0, err
	}
	copy(b[off:], p)
	if err := os.WriteFile(r.Path, b, 0o600); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Clear drops the retained bytes, as a power cycle would.
func (r *FileRegion) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ----------------------------- Wi-Fi (host) ----------------------------------

// HostStation simulates one access point. Association is bookkeeping only;
// traffic goes over the workstation's own network.
type HostStation struct {
	AP        halcore.AccessPoint
	JoinDelay time.Duration

	mu     sync.Mutex
	assoc  bool
	static *halcore.StaticAddr
	joins  int
	log    *slog.Logger
}

func NewHostStation(ap halcore.AccessPoint, log *slog.Logger) *HostStation {
	return &HostStation{AP: ap, JoinDelay: defaultJoinDelay, log: logx.OrDiscard(log)}
}

func (s *HostStation) Associated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assoc
}

func (s *HostStation) SetStaticAddr(a halcore.StaticAddr) error {
	s.mu.Lock()
	s.static = &a
	s.mu.Unlock()
	s.log.Debug("wifi:static", slog.String("addr", a.Address))
	return nil
}

func (s *HostStation) Scan(ctx context.Context) ([]halcore.AccessPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errcode.E{C: errcode.Timeout, Op: "wifi.scan", Err: err}
	}
	return []halcore.AccessPoint{s.AP}, nil
}

func (s *HostStation) Join(ctx context.Context, ssid, _ string, bssid []byte) error {
	s.mu.Lock()
	s.joins++
	s.mu.Unlock()
	if ssid != s.AP.SSID {
		return &errcode.E{C: errcode.ConnectFailed, Op: "wifi.join", Msg: "no network " + ssid}
	}
	if bssid != nil && !bytes.Equal(bssid, s.AP.BSSID[:]) {
		return &errcode.E{C: errcode.ConnectFailed, Op: "wifi.join", Msg: "bssid not in range"}
	}
	t := time.NewTimer(s.JoinDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return &errcode.E{C: errcode.Timeout, Op: "wifi.join", Err: ctx.Err()}
	case <-t.C:
	}
	s.mu.Lock()
	s.assoc = true
	s.mu.Unlock()
	s.log.Debug("wifi:associated", slog.String("bssid", conv.MACString(s.AP.BSSID)))
	return nil
}

func (s *HostStation) LinkInfo() ([6]byte, uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.assoc {
		return [6]byte{}, 0, &errcode.E{C: errcode.NotAssociated, Op: "wifi.link"}
	}
	return s.AP.BSSID, s.AP.Channel, nil
}

func (s *HostStation) Disconnect() error {
	s.mu.Lock()
	s.assoc = false
	s.mu.Unlock()
	return nil
}

// Joins counts Join calls, successful or not.
func (s *HostStation) Joins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joins
}

// ----------------------------- Clock (host) ----------------------------------

// HostClock is the workstation clock shifted by an adjustable offset and
// expressed in the 2000 epoch.
type HostClock struct {
	mu     sync.Mutex
	offset int64
}

func hostNativeMs() int64 {
	return timebase.Epoch2000.FromUnixMilli(time.Now().UnixMilli())
}

func (c *HostClock) NowNativeMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hostNativeMs() + c.offset
}

func (c *HostClock) SetNativeMs(ms int64) error {
	c.mu.Lock()
	c.offset = ms - hostNativeMs()
	c.mu.Unlock()
	return nil
}

// Reset winds the clock back to its epoch, as after power loss.
func (c *HostClock) Reset() { _ = c.SetNativeMs(0) }

// ----------------------------- Watchdog (host) -------------------------------

// HostWatchdog exits the process when not fed in time.
type HostWatchdog struct {
	Log  *slog.Logger
	Exit func(code int)

	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	feeds   int
}

const watchdogExitCode = 3

func (w *HostWatchdog) Configure(timeout time.Duration) error {
	if timeout <= 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.configure", Msg: "timeout must be positive"}
	}
	w.mu.Lock()
	w.timeout = timeout
	w.mu.Unlock()
	return nil
}

func (w *HostWatchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timeout <= 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.start", Msg: "not configured"}
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.timeout, w.expire)
	return nil
}

func (w *HostWatchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.feeds++
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

// Stop disarms the timer, as entering deep sleep does on hardware.
func (w *HostWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Feeds counts Feed calls.
func (w *HostWatchdog) Feeds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.feeds
}

func (w *HostWatchdog) expire() {
	logx.OrDiscard(w.Log).Error("wdt:expired")
	exit := w.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(watchdogExitCode)
}

// ----------------------------- Power (host) ----------------------------------

// HostPower reports a chosen reset cause and returns from DeepSleep.
type HostPower struct {
	Cause    halcore.ResetCause
	Watchdog *HostWatchdog
	Log      *slog.Logger

	mu      sync.Mutex
	hz      uint32
	wakePin int
	wakeLvl bool
	armed   bool
	slept   int
}

func (p *HostPower) ResetCause() halcore.ResetCause { return p.Cause }

func (p *HostPower) SetCPUFrequency(hz uint32) error {
	p.mu.Lock()
	p.hz = hz
	p.mu.Unlock()
	return nil
}

func (p *HostPower) ArmWake(pin int, level bool) error {
	p.mu.Lock()
	p.wakePin, p.wakeLvl, p.armed = pin, level, true
	p.mu.Unlock()
	return nil
}

func (p *HostPower) DeepSleep() {
	if p.Watchdog != nil {
		p.Watchdog.Stop()
	}
	p.mu.Lock()
	p.slept++
	pin, lvl := p.wakePin, p.wakeLvl
	p.mu.Unlock()
	logx.OrDiscard(p.Log).Info("power:deep-sleep", slog.Int("wake_pin", pin), slog.Bool("wake_level", lvl))
}

// Frequency is the last clock rate requested.
func (p *HostPower) Frequency() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hz
}

// Slept counts DeepSleep calls.
func (p *HostPower) Slept() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slept
}
