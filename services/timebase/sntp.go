package timebase

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"lockbutton-go/errcode"
)

const (
	DefaultNTPServer = "pool.ntp.org"
	ntpPort          = "123"
	ntpPacketSize    = 48

	// seconds from 1900-01-01 to 1970-01-01
	ntpUnixOffset = 2208988800
)

// Source returns the current UTC time from somewhere off the device.
type Source interface {
	Now(ctx context.Context) (time.Time, error)
}

// SNTP is a single-exchange RFC 4330 client over UDP.
type SNTP struct {
	Server string // host or host:port
	Dial   func(ctx context.Context, network, addr string) (net.Conn, error)
}

func (s *SNTP) addr() string {
	host := s.Server
	if host == "" {
		host = DefaultNTPServer
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, ntpPort)
}

// Now performs one request/response exchange. Expiry of ctx maps to
// ClockSyncTimeout, anything else to ClockSyncFailed.
func (s *SNTP) Now(ctx context.Context) (time.Time, error) {
	dial := s.Dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(ctx, "udp", s.addr())
	if err != nil {
		return time.Time{}, syncErr("dial", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	var req [ntpPacketSize]byte
	req[0] = 0x23 // LI=0, VN=4, Mode=3 (client)
	if _, err := conn.Write(req[:]); err != nil {
		return time.Time{}, syncErr("write", err)
	}

	var resp [ntpPacketSize]byte
	n, err := conn.Read(resp[:])
	if err != nil {
		return time.Time{}, syncErr("read", err)
	}
	return parseResponse(resp[:n])
}

func parseResponse(b []byte) (time.Time, error) {
	if len(b) < ntpPacketSize {
		return time.Time{}, &errcode.E{C: errcode.ClockSyncFailed, Op: "sntp.parse", Msg: "short packet"}
	}
	if mode := b[0] & 0x07; mode != 4 {
		return time.Time{}, &errcode.E{C: errcode.ClockSyncFailed, Op: "sntp.parse", Msg: "not a server reply"}
	}
	if b[1] == 0 {
		return time.Time{}, &errcode.E{C: errcode.ClockSyncFailed, Op: "sntp.parse", Msg: "kiss-of-death"}
	}
	secs := binary.BigEndian.Uint32(b[40:44])
	frac := binary.BigEndian.Uint32(b[44:48])
	if secs == 0 {
		return time.Time{}, &errcode.E{C: errcode.ClockSyncFailed, Op: "sntp.parse", Msg: "zero transmit time"}
	}
	nsec := (int64(frac) * 1e9) >> 32
	return time.Unix(int64(secs)-ntpUnixOffset, nsec).UTC(), nil
}

func syncErr(op string, err error) error {
	if errcode.MapNetErr(err) == errcode.NetworkTimeout {
		return &errcode.E{C: errcode.ClockSyncTimeout, Op: "sntp." + op, Err: err}
	}
	return &errcode.E{C: errcode.ClockSyncFailed, Op: "sntp." + op, Err: err}
}
