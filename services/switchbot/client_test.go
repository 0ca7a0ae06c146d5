package switchbot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/types"
)

// tickingClock returns a later time on every call, so a second read of t
// would show up as a header/signature mismatch.
func tickingClock() func() int64 {
	var n int64 = 1700000000000
	return func() int64 {
		n += 7
		return n
	}
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(srv.URL),
		WithDoer(srv.Client()),
		WithClock(tickingClock()),
	}
	return NewClient(Credentials{Token: "tok", Secret: "sec"}, append(base, opts...)...)
}

func TestCommandRequestShape(t *testing.T) {
	var gotPath string
	var gotBody commandBody
	var sigOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		tv, err := strconv.ParseInt(r.Header.Get("t"), 10, 64)
		sigOK = err == nil && r.Header.Get("sign") == reference("tok", "sec", tv, r.Header.Get("nonce"))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"statusCode":100,"message":"success","body":{}}`)
	}))
	defer srv.Close()

	o := newTestClient(srv).Command(context.Background(), "DEV001", "unlock")
	if !o.Success() || o.HTTPStatus != 200 || o.APIStatus != 100 {
		t.Fatalf("outcome = %+v", o)
	}
	if gotPath != "POST /v1.1/devices/DEV001/commands" {
		t.Fatalf("request = %s", gotPath)
	}
	if gotBody != (commandBody{Command: "unlock", Parameter: "default", CommandType: "command"}) {
		t.Fatalf("body = %+v", gotBody)
	}
	if !sigOK {
		t.Fatal("t header and signature were computed from different clock reads")
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{200, KindSuccess},
		{401, KindAuthError},
		{403, KindAPIError},
		{500, KindAPIError},
		{503, KindAPIError},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		o := newTestClient(srv).Command(context.Background(), "D", "lock")
		srv.Close()
		if o.Kind != c.want || o.HTTPStatus != c.status {
			t.Fatalf("status %d: outcome = %+v, want %s", c.status, o, c.want)
		}
	}
}

func TestTimeoutIsNetworkTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	o := newTestClient(srv).Command(ctx, "D", "lock")
	if o.Kind != KindNetworkTimeout || o.Code() != errcode.NetworkTimeout {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestConnectionRefusedIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Credentials{Token: "t", Secret: "s"}, WithBaseURL(url))
	if o := c.Command(context.Background(), "D", "lock"); o.Kind != KindTransportFailure {
		t.Fatalf("outcome = %+v", o)
	}
}

type trackedBody struct {
	closed  bool
	readErr error
}

func (b *trackedBody) Read(p []byte) (int, error) {
	if b.readErr != nil {
		return 0, b.readErr
	}
	return 0, io.EOF
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

type stubDoer struct{ resp *http.Response }

func (d stubDoer) Do(*http.Request) (*http.Response, error) { return d.resp, nil }

func TestBodyClosedOnReadError(t *testing.T) {
	body := &trackedBody{readErr: errors.New("connection reset")}
	c := NewClient(Credentials{Token: "t", Secret: "s"},
		WithDoer(stubDoer{resp: &http.Response{StatusCode: 200, Body: body}}))

	o := c.Command(context.Background(), "D", "lock")
	if o.Kind != KindTransportFailure {
		t.Fatalf("outcome = %+v", o)
	}
	if !body.closed {
		t.Fatal("body left open after read error")
	}
}

type countingDoer struct {
	status int
	calls  int
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return &http.Response{StatusCode: d.status, Body: &trackedBody{readErr: errors.New("connection reset")}}, nil
}

func TestAuthErrorWithBrokenBodyIsNotRetried(t *testing.T) {
	doer := &countingDoer{status: http.StatusUnauthorized}
	c := NewClient(Credentials{Token: "t", Secret: "s"}, WithDoer(doer))

	o := c.Command(context.Background(), "D", "lock")
	if o.Kind != KindAuthError || o.HTTPStatus != http.StatusUnauthorized || o.Retryable() {
		t.Fatalf("outcome = %+v", o)
	}
	if o.Err == nil {
		t.Fatal("read error dropped")
	}

	doer.calls = 0
	o, attempts := NewDispatcher(c, "D", time.Second, nil).Send(context.Background(), types.ActionLock)
	if o.Kind != KindAuthError || attempts != 1 || doer.calls != 1 {
		t.Fatalf("kind=%v attempts=%d requests=%d", o.Kind, attempts, doer.calls)
	}
}

func TestBodyClosedOnSuccess(t *testing.T) {
	body := &trackedBody{}
	c := NewClient(Credentials{Token: "t", Secret: "s"},
		WithDoer(stubDoer{resp: &http.Response{StatusCode: 200, Body: body}}), WithGC(true))

	if o := c.Command(context.Background(), "D", "lock"); !o.Success() {
		t.Fatalf("outcome = %+v", o)
	}
	if !body.closed {
		t.Fatal("body left open")
	}
}

func TestBodyIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", DefaultMaxBody*2))
	}))
	defer srv.Close()

	o := newTestClient(srv).Command(context.Background(), "D", "lock")
	if len(o.Body) != DefaultMaxBody {
		t.Fatalf("body = %d bytes", len(o.Body))
	}
}

func TestDevicesAndStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodGet || r.Header.Get("sign") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/v1.1/devices":
			_, _ = io.WriteString(w, `{"statusCode":100,"body":{"deviceList":[{"deviceId":"D1"}]}}`)
		case "/v1.1/devices/D1/status":
			_, _ = io.WriteString(w, `{"statusCode":100,"body":{"lockState":"locked"}}`)
		default:
			_, _ = io.WriteString(w, `{"statusCode":190,"message":"device not found"}`)
		}
	}))
	defer srv.Close()
	c := newTestClient(srv)

	devs, err := c.Devices(context.Background())
	if err != nil || !strings.Contains(string(devs), `"D1"`) {
		t.Fatalf("Devices = %s, %v", devs, err)
	}
	st, err := c.Status(context.Background(), "D1")
	if err != nil || !strings.Contains(string(st), "locked") {
		t.Fatalf("Status = %s, %v", st, err)
	}
	if _, err := c.Status(context.Background(), "nope"); errcode.Of(err) != errcode.APIError {
		t.Fatalf("unknown device err = %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestAuthErrorSurfacesFromGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Devices(context.Background())
	if !errors.Is(err, errcode.AuthError) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("err text = %q", err.Error())
	}
}
