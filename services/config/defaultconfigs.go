package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Firmware has no filesystem, so the settings are compiled in. Fill the
// placeholders before flashing; Validate rejects any left as [ENTER_...].
// Key: board name passed to Embedded
// Val: raw YAML bytes for that board
// -----------------------------------------------------------------------------

const cfgNanoRP2040 = `
wifi:
  ssid: "[ENTER_SSID]"
  password: "[ENTER_PASSWORD]"
switchbot:
  token: "[ENTER_TOKEN]"
  secret: "[ENTER_SECRET]"
  device_id: "[ENTER_DEVICE_ID_LOCK_PRO]"
button:
  pin: 15
  active_low: true
  long_press_ms: 1000
led:
  pin: 16
  brightness: 64
power:
  watchdog_ms: 30000
log:
  level: info
`

var embeddedConfigs = map[string][]byte{
	"nano-rp2040": []byte(cfgNanoRP2040),
}
