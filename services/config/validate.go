package config

import (
	"net/netip"
	"strings"

	"lockbutton-go/errcode"
)

// placeholderPrefix marks values copied unedited from the template.
const placeholderPrefix = "[ENTER_"

func missing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(v, placeholderPrefix)
}

// Validate checks everything the firmware needs before any network action.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "nil config"}
	}
	var bad []string
	if missing(cfg.WiFi.SSID) {
		bad = append(bad, "wifi.ssid")
	}
	if missing(cfg.WiFi.Password) {
		bad = append(bad, "wifi.password")
	}
	bad = append(bad, switchBotMissing(cfg, true)...)
	if len(bad) > 0 {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "missing " + strings.Join(bad, ", ")}
	}

	if s := cfg.WiFi.Static; s != nil {
		for _, f := range []struct{ name, v string }{
			{"address", s.Address}, {"netmask", s.Netmask}, {"gateway", s.Gateway}, {"dns", s.DNS},
		} {
			if _, err := netip.ParseAddr(f.v); err != nil {
				return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "wifi.static." + f.name, Err: err}
			}
		}
	}
	if cfg.Button.Pin < 0 || cfg.LED.Pin < 0 {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "negative pin"}
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "log.level " + cfg.Log.Level}
	}
	return nil
}

// ValidateSwitchBot checks only the API credentials, for tools that never
// touch the radio. needDevice adds the device id.
func ValidateSwitchBot(cfg *Config, needDevice bool) error {
	if bad := switchBotMissing(cfg, needDevice); len(bad) > 0 {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: "missing " + strings.Join(bad, ", ")}
	}
	return nil
}

func switchBotMissing(cfg *Config, needDevice bool) []string {
	var bad []string
	if missing(cfg.SwitchBot.Token) {
		bad = append(bad, "switchbot.token")
	}
	if missing(cfg.SwitchBot.Secret) {
		bad = append(bad, "switchbot.secret")
	}
	if needDevice && missing(cfg.SwitchBot.DeviceID) {
		bad = append(bad, "switchbot.device_id")
	}
	return bad
}
