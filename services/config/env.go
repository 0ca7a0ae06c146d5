package config

import (
	"errors"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"

	"lockbutton-go/errcode"
)

const EnvPrefix = "LOCKBUTTON_"

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &errcode.E{C: errcode.InvalidConfig, Op: "config.dotenv", Msg: p, Err: err}
		}
	}
	return nil
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func num(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

var envVars = []envVar{
	{"WIFI_SSID", str(func(c *Config) *string { return &c.WiFi.SSID })},
	{"WIFI_PASSWORD", str(func(c *Config) *string { return &c.WiFi.Password })},
	{"SWITCHBOT_TOKEN", str(func(c *Config) *string { return &c.SwitchBot.Token })},
	{"SWITCHBOT_SECRET", str(func(c *Config) *string { return &c.SwitchBot.Secret })},
	{"SWITCHBOT_DEVICE_ID", str(func(c *Config) *string { return &c.SwitchBot.DeviceID })},
	{"SWITCHBOT_BASE_URL", str(func(c *Config) *string { return &c.SwitchBot.BaseURL })},
	{"NTP_SERVER", str(func(c *Config) *string { return &c.Time.NTPServer })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"BUTTON_PIN", num(func(c *Config) *int { return &c.Button.Pin })},
	{"LONG_PRESS_MS", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		c.Button.LongPressMs = uint32(n)
		return nil
	}},
}

// ApplyEnv overrides cfg from LOCKBUTTON_* variables found by lookup
// (normally os.LookupEnv).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return &errcode.E{C: errcode.InvalidConfig, Op: "config.env", Msg: EnvPrefix + ev.name, Err: err}
		}
	}
	return nil
}
