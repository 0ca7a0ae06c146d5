package config

const (
	DefaultButtonPin   = 15
	DefaultLEDPin      = 16
	DefaultBrightness  = 64
	DefaultLongPressMs = 1000
	DefaultFloorYear   = 2024
	DefaultNTPServer   = "pool.ntp.org"
	DefaultBaseURL     = "https://api.switch-bot.com"
)

// Normalize fills defaults. Call it after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Button.Pin == 0 {
		cfg.Button.Pin = DefaultButtonPin
	}
	if cfg.Button.ActiveLow == nil {
		t := true
		cfg.Button.ActiveLow = &t
	}
	if cfg.Button.LongPressMs == 0 {
		cfg.Button.LongPressMs = DefaultLongPressMs
	}
	if cfg.LED.Pin == 0 {
		cfg.LED.Pin = DefaultLEDPin
	}
	if cfg.LED.Brightness == 0 {
		cfg.LED.Brightness = DefaultBrightness
	}
	if cfg.Time.NTPServer == "" {
		cfg.Time.NTPServer = DefaultNTPServer
	}
	if cfg.Time.FloorYear == 0 {
		cfg.Time.FloorYear = DefaultFloorYear
	}
	if cfg.SwitchBot.BaseURL == "" {
		cfg.SwitchBot.BaseURL = DefaultBaseURL
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	// Zero timeouts and clock tiers are left for each service's own default.
}

// ButtonActiveLow reports the button polarity, defaulting to active-low.
func (c *Config) ButtonActiveLow() bool {
	return c.Button.ActiveLow == nil || *c.Button.ActiveLow
}
