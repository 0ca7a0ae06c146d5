package switchbot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/x/conv"
	"lockbutton-go/x/logx"
)

const (
	DefaultBaseURL = "https://api.switch-bot.com"
	apiVersion     = "/v1.1"

	// DefaultMaxBody bounds how much of a response is kept.
	DefaultMaxBody = 4 << 10
)

// Doer is the part of *http.Client the client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Credentials struct {
	Token  string
	Secret string
}

type Client struct {
	doer    Doer
	base    string
	creds   Credentials
	nowMs   func() int64
	nonce   func() (string, error)
	maxBody int64
	gc      bool
	log     *slog.Logger
}

type Option func(*Client)

func WithDoer(d Doer) Option { return func(c *Client) { c.doer = d } }

func WithBaseURL(u string) Option { return func(c *Client) { c.base = u } }

// WithClock sets the Unix-millisecond source used for t. It must already be
// epoch-corrected.
func WithClock(nowMs func() int64) Option { return func(c *Client) { c.nowMs = nowMs } }

func WithNonce(f func() (string, error)) Option { return func(c *Client) { c.nonce = f } }

// WithGC runs a collection after every request, for heap-constrained boards.
func WithGC(on bool) Option { return func(c *Client) { c.gc = on } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		doer:    &http.Client{},
		base:    DefaultBaseURL,
		creds:   creds,
		nowMs:   func() int64 { return time.Now().UnixMilli() },
		nonce:   NewNonce,
		maxBody: DefaultMaxBody,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logx.OrDiscard(c.log)
	return c
}

type commandBody struct {
	Command     string `json:"command"`
	Parameter   string `json:"parameter"`
	CommandType string `json:"commandType"`
}

type apiReply struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

// Command posts a device command ("lock", "unlock").
func (c *Client) Command(ctx context.Context, deviceID, command string) Outcome {
	body, err := json.Marshal(commandBody{Command: command, Parameter: "default", CommandType: "command"})
	if err != nil {
		return Outcome{Kind: KindTransportFailure, Err: err}
	}
	return c.do(ctx, http.MethodPost, apiVersion+"/devices/"+deviceID+"/commands", body)
}

// Devices lists the account's devices and returns the API body field.
func (c *Client) Devices(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiVersion+"/devices", "switchbot.devices")
}

// Status returns the API body field for one device.
func (c *Client) Status(ctx context.Context, deviceID string) (json.RawMessage, error) {
	return c.get(ctx, apiVersion+"/devices/"+deviceID+"/status", "switchbot.status")
}

func (c *Client) get(ctx context.Context, path, op string) (json.RawMessage, error) {
	o := c.do(ctx, http.MethodGet, path, nil)
	if err := o.AsError(op); err != nil {
		return nil, err
	}
	var r apiReply
	if err := json.Unmarshal(o.Body, &r); err != nil {
		return nil, &errcode.E{C: errcode.InvalidPayload, Op: op, Err: err}
	}
	if r.StatusCode != 100 {
		var b [20]byte
		return nil, &errcode.E{C: errcode.APIError, Op: op, Msg: "statusCode " + itoa(b[:], int64(r.StatusCode)) + " " + r.Message}
	}
	return r.Body, nil
}

// do sends one signed request. t is read once and used for both the
// signature and its header. The response body is always closed.
func (c *Client) do(ctx context.Context, method, path string, body []byte) Outcome {
	if c.gc {
		defer runtime.GC()
	}
	nonce, err := c.nonce()
	if err != nil {
		return Outcome{Kind: KindTransportFailure, Err: err}
	}
	h := NewHeaders(c.creds.Token, c.creds.Secret, c.nowMs(), nonce)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return Outcome{Kind: KindTransportFailure, Err: err}
	}
	h.Apply(req)

	resp, err := c.doer.Do(req)
	if err != nil {
		return transportOutcome(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))

	// The status line decides the kind. A broken body only matters when
	// the status alone would mean success.
	o := Outcome{HTTPStatus: resp.StatusCode, Body: data, Err: err}
	switch {
	case resp.StatusCode == http.StatusOK && err != nil:
		o = transportOutcome(err)
		o.HTTPStatus = resp.StatusCode
		return o
	case resp.StatusCode == http.StatusOK:
		o.Kind = KindSuccess
		var r apiReply
		if json.Unmarshal(data, &r) == nil {
			o.APIStatus = r.StatusCode
		}
	case resp.StatusCode == http.StatusUnauthorized:
		o.Kind = KindAuthError
	default:
		o.Kind = KindAPIError
	}
	c.log.Info("api:response",
		slog.String("method", method),
		slog.Int("http_status", o.HTTPStatus),
		slog.Int("api_status", o.APIStatus),
	)
	return o
}

func transportOutcome(err error) Outcome {
	if errcode.MapNetErr(err) == errcode.NetworkTimeout {
		return Outcome{Kind: KindNetworkTimeout, Err: err}
	}
	return Outcome{Kind: KindTransportFailure, Err: err}
}

func itoa(b []byte, n int64) string { return string(conv.Itoa(b, n)) }
