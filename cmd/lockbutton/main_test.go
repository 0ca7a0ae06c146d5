//go:build !(rp2040 && ninafw)

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"lockbutton-go/bus"
	"lockbutton-go/errcode"
	"lockbutton-go/services/config"
	"lockbutton-go/services/cycle"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/hal/platform"
	"lockbutton-go/services/indicator"
	"lockbutton-go/services/timebase"
	"lockbutton-go/services/wifi"
	"lockbutton-go/types"
)

type apiRecorder struct {
	mu       sync.Mutex
	commands []string
}

func (a *apiRecorder) handler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	a.mu.Lock()
	a.commands = append(a.commands, body.Command)
	a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"statusCode":100,"message":"success","body":{}}`))
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
wifi:
  ssid: home
  password: hunter22
switchbot:
  token: tok
  secret: sec
  device_id: DEV001
button:
  long_press_ms: 400
led:
  brightness: 32
`), config.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	cfg.SwitchBot.BaseURL = baseURL
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	config.Normalize(cfg)
	return cfg
}

func runHost(t *testing.T, cfg *config.Config, rtc string, hold time.Duration, cause halcore.ResetCause) (cycle.Report, *bus.Subscription) {
	t.Helper()
	board := platform.NewHost(platform.HostOptions{
		Wiring:  wiring(cfg),
		Hold:    hold,
		Cause:   cause,
		RTCPath: rtc,
		SSID:    cfg.WiFi.SSID,
		Exit:    func(int) { t.Error("watchdog expired") },
	})
	return runBoard(t, cfg, board)
}

func runBoard(t *testing.T, cfg *config.Config, board *platform.Board) (cycle.Report, *bus.Subscription) {
	t.Helper()
	b := bus.NewBus(16)
	mon := b.NewConnection("monitor").Subscribe(bus.T("cycle/phase"))
	deps, err := buildDeps(cfg, board, b.NewConnection("cycle"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return cycle.Run(context.Background(), deps), mon
}

func TestHostCycleUsesCacheOnSecondWake(t *testing.T) {
	api := &apiRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	rtc := filepath.Join(t.TempDir(), "rtc.bin")

	first, _ := runHost(t, cfg, rtc, 50*time.Millisecond, halcore.ResetWakeFromSleep)
	if first.Press.Action != types.ActionUnlock || first.Path != wifi.PathScan || !first.Outcome.Success() {
		t.Fatalf("first = %+v", first)
	}
	if first.Final() != indicator.SuccessUnlock {
		t.Fatalf("first final = %v", first.Final())
	}
	if _, err := os.Stat(rtc); err != nil {
		t.Fatalf("retained file not written: %v", err)
	}

	second, _ := runHost(t, cfg, rtc, 450*time.Millisecond, halcore.ResetWakeFromSleep)
	if second.Press.Action != types.ActionLock || second.Path != wifi.PathFast {
		t.Fatalf("second = %+v", second)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.commands) != 2 || api.commands[0] != "unlock" || api.commands[1] != "lock" {
		t.Fatalf("commands = %v", api.commands)
	}
}

func TestHostColdBootSkipsCycle(t *testing.T) {
	api := &apiRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	rep, mon := runHost(t, cfg, filepath.Join(t.TempDir(), "rtc.bin"), time.Second, halcore.ResetPowerOn)
	if rep.Attempts != 0 || len(api.commands) != 0 {
		t.Fatalf("cold boot dispatched: %+v", rep)
	}
	var phases []string
	for len(mon.Channel()) > 0 {
		phases = append(phases, (<-mon.Channel()).Payload.(string))
	}
	if len(phases) != 2 || phases[0] != cycle.PhaseBoot || phases[1] != cycle.PhaseSleep {
		t.Fatalf("phases = %v", phases)
	}
}

func TestHostSignsWithStaleBoardClock(t *testing.T) {
	api := &apiRecorder{}
	var mu sync.Mutex
	var stamps []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts, err := strconv.ParseInt(r.Header.Get("t"), 10, 64)
		if err != nil {
			t.Errorf("t header %q: %v", r.Header.Get("t"), err)
		}
		mu.Lock()
		stamps = append(stamps, ts)
		mu.Unlock()
		api.handler(w, r)
	}))
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	cfg.Time.SyncTimeoutMs = 200

	board := platform.NewHost(platform.HostOptions{
		Wiring:     wiring(cfg),
		Hold:       50 * time.Millisecond,
		Cause:      halcore.ResetWakeFromSleep,
		RTCPath:    filepath.Join(t.TempDir(), "rtc.bin"),
		StaleClock: true,
		SSID:       cfg.WiFi.SSID,
		Exit:       func(int) { t.Error("watchdog expired") },
	})
	board.Dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("network unreachable")
	}

	rep, _ := runBoard(t, cfg, board)
	if rep.Sync == timebase.SyncOK || rep.Sync == timebase.SyncSkipped {
		t.Fatalf("sync = %v", rep.Sync)
	}
	if !rep.Outcome.Success() {
		t.Fatalf("outcome = %+v", rep.Outcome)
	}

	device := timebase.Epoch2000.ToUnixMilli(board.Clock.NowNativeMs())
	mu.Lock()
	defer mu.Unlock()
	if len(stamps) != 1 {
		t.Fatalf("requests = %d", len(stamps))
	}
	if stamps[0] > device || device-stamps[0] > time.Minute.Milliseconds() {
		t.Fatalf("signed t = %d, device clock = %d", stamps[0], device)
	}
	if y := time.UnixMilli(stamps[0]).UTC().Year(); y != 2000 {
		t.Fatalf("signed with year %d", y)
	}
}

func TestWiringFailureStillSleeps(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	board := platform.NewHost(platform.HostOptions{
		Wiring: wiring(cfg),
		Cause:  halcore.ResetWakeFromSleep,
		SSID:   cfg.WiFi.SSID,
		Exit:   func(int) { t.Error("watchdog expired") },
	})
	board.RTC = nil

	_, err := buildDeps(cfg, board, nil, nil)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("buildDeps err = %v", err)
	}
	if err := sleepAfterFailure(board, cfg, nil, indicator.APIError); err != nil {
		t.Fatal(err)
	}
	hp := board.Power.(*platform.HostPower)
	if hp.Slept() != 1 {
		t.Fatalf("slept = %d", hp.Slept())
	}
	if hp.Frequency() == 0 {
		t.Fatal("idle frequency not applied before sleep")
	}
}

func TestLoadConfigAppliesEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.toml")
	body := "[wifi]\nssid = \"home\"\npassword = \"[ENTER_PASSWORD]\"\n\n[switchbot]\ntoken = \"t\"\nsecret = \"s\"\ndevice_id = \"D\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path, nil); err == nil {
		t.Fatal("placeholder password accepted")
	}

	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("LOCKBUTTON_WIFI_PASSWORD=hunter22\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LOCKBUTTON_WIFI_PASSWORD") })
	cfg, err := loadConfig(path, []string{env})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WiFi.Password != "hunter22" || cfg.Button.Pin != config.DefaultButtonPin {
		t.Fatalf("cfg = %+v", cfg)
	}
}
