// Package config holds the settings object read once at boot: Wi-Fi and
// SwitchBot credentials, button and LED wiring, and cycle tunables.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lockbutton-go/errcode"
)

type Config struct {
	WiFi      WiFiConfig      `yaml:"wifi" toml:"wifi"`
	SwitchBot SwitchBotConfig `yaml:"switchbot" toml:"switchbot"`
	Button    ButtonConfig    `yaml:"button" toml:"button"`
	LED       LEDConfig       `yaml:"led" toml:"led"`
	Time      TimeConfig      `yaml:"time" toml:"time"`
	Power     PowerConfig     `yaml:"power" toml:"power"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// ---- WIFI ----

type WiFiConfig struct {
	SSID       string        `yaml:"ssid" toml:"ssid"`
	Password   string        `yaml:"password" toml:"password"`
	TimeoutMs  int           `yaml:"timeout_ms" toml:"timeout_ms"`
	FastPathMs int           `yaml:"fast_path_ms" toml:"fast_path_ms"`
	Static     *StaticConfig `yaml:"static" toml:"static"` // optional
}

type StaticConfig struct {
	Address string `yaml:"address" toml:"address"`
	Netmask string `yaml:"netmask" toml:"netmask"`
	Gateway string `yaml:"gateway" toml:"gateway"`
	DNS     string `yaml:"dns" toml:"dns"`
}

// ---- SWITCHBOT ----

type SwitchBotConfig struct {
	Token            string `yaml:"token" toml:"token"`
	Secret           string `yaml:"secret" toml:"secret"`
	DeviceID         string `yaml:"device_id" toml:"device_id"`
	BaseURL          string `yaml:"base_url" toml:"base_url"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" toml:"request_timeout_ms"`
}

// ---- HARDWARE ----

type ButtonConfig struct {
	Pin         int    `yaml:"pin" toml:"pin"`
	ActiveLow   *bool  `yaml:"active_low" toml:"active_low"` // default true
	LongPressMs uint32 `yaml:"long_press_ms" toml:"long_press_ms"`
}

type LEDConfig struct {
	Pin        int   `yaml:"pin" toml:"pin"`
	Brightness uint8 `yaml:"brightness" toml:"brightness"`
}

// ---- CYCLE ----

type TimeConfig struct {
	NTPServer     string `yaml:"ntp_server" toml:"ntp_server"`
	FloorYear     int    `yaml:"floor_year" toml:"floor_year"`
	SyncTimeoutMs int    `yaml:"sync_timeout_ms" toml:"sync_timeout_ms"`
}

type PowerConfig struct {
	ActiveHz   uint32 `yaml:"active_hz" toml:"active_hz"`
	IdleHz     uint32 `yaml:"idle_hz" toml:"idle_hz"`
	WatchdogMs int    `yaml:"watchdog_ms" toml:"watchdog_ms"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error
}

// Format is a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the syntax from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

// Load reads and parses a config file. It neither validates nor fills
// defaults.
func Load(path string) (*Config, error) {
	f, ok := FormatOf(path)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Msg: "unknown extension " + filepath.Ext(path)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Err: err}
	}
	return Parse(data, f)
}

// Parse decodes data strictly: unknown keys are errors.
func Parse(data []byte, f Format) (*Config, error) {
	var cfg Config
	var err error
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if err != nil && len(bytes.TrimSpace(data)) == 0 {
			err = nil
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.parse", Msg: "unknown format " + string(f)}
	}
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.parse", Err: err}
	}
	return &cfg, nil
}

// EmbeddedConfigLookup allows overriding how built-in configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Embedded parses the YAML config compiled in for device.
func Embedded(device string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.embedded", Msg: "no embedded config for device " + device}
	}
	return Parse(raw, FormatYAML)
}
