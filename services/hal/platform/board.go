// Package platform builds the hardware set for one board. The rp2 build
// targets the Nano RP2040 Connect; every other build gets the host board,
// which simulates the same devices so the full cycle runs on a workstation.
package platform

import (
	"context"
	"net"
	"net/http"

	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/timebase"
)

// Wiring is the board-level pin assignment read from configuration.
type Wiring struct {
	ButtonPin       int
	ButtonActiveLow bool
	LEDPin          int
}

// Board is every device the wake cycle touches.
type Board struct {
	Name     string
	Button   halcore.InputPin
	Pixel    halcore.Pixel
	RTC      halcore.Region
	Station  halcore.Station
	Clock    halcore.Clock
	Epoch    timebase.Epoch
	Watchdog halcore.Watchdog
	Power    halcore.Power

	HTTP *http.Client
	// Dial opens the SNTP socket; nil uses net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	// LowMemory asks the HTTP client to collect garbage after each call.
	LowMemory bool
}

// ButtonPull is the pull resistor that idles the button released.
func (w Wiring) ButtonPull() halcore.Pull {
	if w.ButtonActiveLow {
		return halcore.PullUp
	}
	return halcore.PullDown
}
