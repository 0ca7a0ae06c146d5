// Package wifi establishes the station link for one wake cycle, preferring
// the access point remembered in sleep-retained memory.
package wifi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/indicator"
	"lockbutton-go/services/rtcmem"
	"lockbutton-go/x/conv"
	"lockbutton-go/x/logx"
)

const (
	DefaultTimeout         = 20 * time.Second
	DefaultFastPathTimeout = 4 * time.Second
)

// Path reports how the link came up.
type Path uint8

const (
	PathNone Path = iota
	PathAlreadyUp
	PathFast
	PathScan
)

func (p Path) String() string {
	switch p {
	case PathAlreadyUp:
		return "already_up"
	case PathFast:
		return "fast"
	case PathScan:
		return "scan"
	default:
		return "none"
	}
}

type Config struct {
	SSID            string
	Passphrase      string
	Static          *halcore.StaticAddr
	Timeout         time.Duration
	FastPathTimeout time.Duration
}

// Feedback shows the connect phase colour.
type Feedback interface {
	Show(s indicator.Steady)
}

type Manager struct {
	st    halcore.Station
	cache *rtcmem.Cache
	fb    Feedback
	cfg   Config
	log   *slog.Logger
}

func New(st halcore.Station, cache *rtcmem.Cache, fb Feedback, cfg Config, log *slog.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FastPathTimeout <= 0 {
		cfg.FastPathTimeout = DefaultFastPathTimeout
	}
	return &Manager{st: st, cache: cache, fb: fb, cfg: cfg, log: logx.OrDiscard(log)}
}

// Connect associates the station. The cache is read once at the start and
// replaced only after a successful association to a new access point.
func (m *Manager) Connect(ctx context.Context) (Path, error) {
	if m.st.Associated() {
		m.log.Info("wifi:already-associated")
		return PathAlreadyUp, nil
	}

	if m.cfg.Static != nil {
		if err := m.st.SetStaticAddr(*m.cfg.Static); err != nil {
			m.log.Warn("wifi:static-addr-failed", slog.String("err", err.Error()))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	cached := m.cache.Load()
	path := PathNone

	if cached.Valid {
		m.fb.Show(indicator.FastReconnect)
		m.log.Info("wifi:fast-path", slog.String("bssid", conv.MACString(cached.BSSID)))
		if err := m.joinFast(ctx, cached.BSSID); err == nil {
			path = PathFast
		} else {
			m.log.Info("wifi:fast-path-failed", slog.String("err", err.Error()))
			if ctx.Err() != nil {
				return PathNone, m.fail(ctx, err)
			}
		}
	}

	if path == PathNone {
		m.fb.Show(indicator.Discovering)
		if err := m.joinScan(ctx); err != nil {
			return PathNone, m.fail(ctx, err)
		}
		path = PathScan
	}

	m.remember(cached)
	m.log.Info("wifi:connected", slog.String("path", path.String()))
	return path, nil
}

func (m *Manager) joinFast(ctx context.Context, bssid [6]byte) error {
	fctx, cancel := context.WithTimeout(ctx, m.cfg.FastPathTimeout)
	defer cancel()
	return m.st.Join(fctx, m.cfg.SSID, m.cfg.Passphrase, bssid[:])
}

// joinScan joins the strongest AP advertising the SSID, or lets the radio
// choose when the scan finds nothing usable.
func (m *Manager) joinScan(ctx context.Context) error {
	var target []byte
	aps, err := m.st.Scan(ctx)
	switch {
	case err != nil:
		m.log.Info("wifi:scan-unavailable", slog.String("err", err.Error()))
	default:
		if ap, ok := Strongest(aps, m.cfg.SSID); ok {
			m.log.Info("wifi:scan-pick",
				slog.String("bssid", conv.MACString(ap.BSSID)),
				slog.Int("channel", int(ap.Channel)),
				slog.Int("rssi", int(ap.RSSI)),
			)
			target = ap.BSSID[:]
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err = m.st.Join(ctx, m.cfg.SSID, m.cfg.Passphrase, target)
	if err != nil && target != nil && errors.Is(err, errcode.Unsupported) {
		err = m.st.Join(ctx, m.cfg.SSID, m.cfg.Passphrase, nil)
	}
	return err
}

// remember replaces the cache when the negotiated AP is new.
func (m *Manager) remember(cached rtcmem.LinkState) {
	bssid, ch, err := m.st.LinkInfo()
	if err != nil {
		m.log.Info("wifi:link-info-unavailable", slog.String("err", err.Error()))
		return
	}
	if cached.Valid && cached.BSSID == bssid {
		return
	}
	if err := m.cache.Save(bssid[:], ch); err != nil {
		m.log.Warn("wifi:cache-save-failed", slog.String("err", err.Error()))
		return
	}
	m.log.Info("wifi:cache-updated", slog.String("bssid", conv.MACString(bssid)), slog.Int("channel", int(ch)))
}

func (m *Manager) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &errcode.E{C: errcode.Timeout, Op: "wifi.connect", Err: err}
	}
	return &errcode.E{C: errcode.ConnectFailed, Op: "wifi.connect", Err: err}
}

// Disconnect drops the link. Errors are logged only.
func (m *Manager) Disconnect() {
	if err := m.st.Disconnect(); err != nil {
		m.log.Warn("wifi:disconnect-failed", slog.String("err", err.Error()))
	}
}

// Strongest returns the best-signal AP advertising ssid.
func Strongest(aps []halcore.AccessPoint, ssid string) (halcore.AccessPoint, bool) {
	var best halcore.AccessPoint
	found := false
	for _, ap := range aps {
		if ap.SSID != ssid {
			continue
		}
		if !found || ap.RSSI > best.RSSI {
			best, found = ap, true
		}
	}
	return best, found
}
