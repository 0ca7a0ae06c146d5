// Package switchbot talks to the SwitchBot cloud API v1.1: request signing,
// a small client and the lock command dispatcher with its retry policy.
package switchbot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"lockbutton-go/errcode"
	"lockbutton-go/x/conv"
)

const ContentType = "application/json; charset=utf8"

// Sign returns upper(base64(HMAC-SHA256(secret, token+t+nonce))).
func Sign(token, secret string, tMs int64, nonce string) string {
	var tb [20]byte
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	mac.Write(conv.Itoa(tb[:], tMs))
	mac.Write([]byte(nonce))
	return strings.ToUpper(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// NewNonce returns 16 random bytes as 32 lowercase hex chars.
func NewNonce() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", &errcode.E{C: errcode.Error, Op: "switchbot.nonce", Err: err}
	}
	return hex.EncodeToString(u[:]), nil
}

// Headers is one request's authentication set. T is used for both the
// signature and the t header.
type Headers struct {
	Authorization string
	T             string
	Nonce         string
	Sign          string
}

func NewHeaders(token, secret string, tMs int64, nonce string) Headers {
	var tb [20]byte
	return Headers{
		Authorization: token,
		T:             string(conv.Itoa(tb[:], tMs)),
		Nonce:         nonce,
		Sign:          Sign(token, secret, tMs, nonce),
	}
}

// Apply sets the headers and the JSON content type on req.
func (h Headers) Apply(req *http.Request) {
	req.Header.Set("Authorization", h.Authorization)
	req.Header.Set("t", h.T)
	req.Header.Set("nonce", h.Nonce)
	req.Header.Set("sign", h.Sign)
	req.Header.Set("Content-Type", ContentType)
}
