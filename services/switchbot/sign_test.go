package switchbot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func reference(token, secret string, t int64, nonce string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(token + strconv.FormatInt(t, 10) + nonce))
	return strings.ToUpper(base64.StdEncoding.EncodeToString(m.Sum(nil)))
}

func TestSignMatchesIndependentComputation(t *testing.T) {
	nonce := strings.Repeat("a", 32)
	got := Sign("test_token", "test_secret", 1700000000000, nonce)
	if want := reference("test_token", "test_secret", 1700000000000, nonce); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestSignIsDeterministicAndSensitive(t *testing.T) {
	base := Sign("tok", "sec", 1700000000000, "n1")
	if Sign("tok", "sec", 1700000000000, "n1") != base {
		t.Fatal("not deterministic")
	}
	variants := []string{
		Sign("tok2", "sec", 1700000000000, "n1"),
		Sign("tok", "sec2", 1700000000000, "n1"),
		Sign("tok", "sec", 1700000000001, "n1"),
		Sign("tok", "sec", 1700000000000, "n2"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d did not change the signature", i)
		}
	}
}

func TestSignIsUppercaseBase64(t *testing.T) {
	s := Sign("tok", "sec", 1700000000000, "nonce")
	if s != strings.ToUpper(s) {
		t.Fatal("not uppercase")
	}
	// Uppercasing folds the alphabet; length and charset stay base64.
	if len(s) != 44 || !strings.HasSuffix(s, "=") {
		t.Fatalf("len = %d (%s)", len(s), s)
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		t.Fatalf("not base64: %v", err)
	}
}

func TestLongSecret(t *testing.T) {
	secret := strings.Repeat("x", 100)
	if got, want := Sign("t", secret, 1, "n"), reference("t", secret, 1, "n"); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestNonceIs32Hex(t *testing.T) {
	a, err := NewNonce()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewNonce()
	if len(a) != 32 || a == b {
		t.Fatalf("nonces %q %q", a, b)
	}
	if _, err := hex.DecodeString(a); err != nil || a != strings.ToLower(a) {
		t.Fatalf("nonce %q not lowercase hex", a)
	}
}

func TestHeadersApply(t *testing.T) {
	h := NewHeaders("test_token", "test_secret", 1700000000000, "abc")
	req, _ := http.NewRequest(http.MethodGet, "http://x", nil)
	h.Apply(req)

	if req.Header.Get("Authorization") != "test_token" {
		t.Fatal("Authorization must be the raw token")
	}
	if tv := req.Header.Get("t"); tv != "1700000000000" || len(tv) != 13 {
		t.Fatalf("t = %q", tv)
	}
	if req.Header.Get("nonce") != "abc" {
		t.Fatal("nonce")
	}
	if req.Header.Get("sign") != reference("test_token", "test_secret", 1700000000000, "abc") {
		t.Fatal("sign")
	}
	if req.Header.Get("Content-Type") != "application/json; charset=utf8" {
		t.Fatal("content type")
	}
}
