// Package halcore holds the hardware contracts the wake cycle is written
// against. Boards (services/hal/platform) provide the implementations: the
// rp2 board on real silicon, the host board for simulation and tests.
package halcore

import (
	"context"
	"time"

	"lockbutton-go/types"
)

// ---- GPIO ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// InputPin is the wake button line.
type InputPin interface {
	Number() int
	ConfigureInput(pull Pull) error
	Get() bool
}

// ---- Status pixel ----

// Pixel is a single RGB light. Values are already brightness-scaled.
type Pixel interface {
	SetRGB(c types.RGB) error
}

// ---- Sleep-retained memory ----

// Region is a small byte area that survives deep sleep but not power loss.
// Single-byte writes are atomic with respect to a reset.
type Region interface {
	Size() int
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// ---- Wi-Fi station ----

type AccessPoint struct {
	SSID    string
	BSSID   [6]byte
	Channel uint8
	RSSI    int16
}

type StaticAddr struct {
	Address string
	Netmask string
	Gateway string
	DNS     string
}

// Station is the radio in station mode. Join blocks until associated or
// ctx expires. A nil bssid lets the radio choose. Stations that cannot
// target a BSSID, scan, or report link info return errcode.Unsupported.
type Station interface {
	Associated() bool
	SetStaticAddr(a StaticAddr) error
	Scan(ctx context.Context) ([]AccessPoint, error)
	Join(ctx context.Context, ssid, passphrase string, bssid []byte) error
	LinkInfo() (bssid [6]byte, channel uint8, err error)
	Disconnect() error
}

// ---- Wall clock ----

// Clock is the device clock in its native epoch.
type Clock interface {
	NowNativeMs() int64
	SetNativeMs(ms int64) error
}

// ---- Power ----

type ResetCause uint8

const (
	ResetPowerOn ResetCause = iota
	ResetWakeFromSleep
	ResetWatchdog
	ResetOther
)

func (r ResetCause) String() string {
	switch r {
	case ResetPowerOn:
		return "power_on"
	case ResetWakeFromSleep:
		return "wake_from_sleep"
	case ResetWatchdog:
		return "watchdog"
	default:
		return "other"
	}
}

// Watchdog hard-resets the device unless fed within its timeout.
type Watchdog interface {
	Configure(timeout time.Duration) error
	Start() error
	Feed()
}

// Power covers clock tiers, reset cause and sleep.
type Power interface {
	ResetCause() ResetCause
	SetCPUFrequency(hz uint32) error
	// ArmWake wakes the device when pin reaches level.
	ArmWake(pin int, level bool) error
	// DeepSleep does not return on hardware.
	DeepSleep()
}
