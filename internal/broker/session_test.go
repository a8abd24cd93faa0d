package broker

import (
	"path/filepath"
	"testing"
	"time"

	"fyers-trader/internal/errors"
)

func TestTrimAppType(t *testing.T) {
	cases := map[string]string{
		"AB1234-100": "AB1234",
		"AB1234":     "AB1234",
		"XY-99-100":  "XY-99",
	}
	for in, want := range cases {
		if got := trimAppType(in); got != want {
			t.Errorf("trimAppType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractAuthCode(t *testing.T) {
	code, err := extractAuthCode("https://example.com/cb?s=ok&auth_code=abc123&state=trader")
	if err != nil || code != "abc123" {
		t.Errorf("extractAuthCode = %q/%v", code, err)
	}

	if _, err := extractAuthCode("https://example.com/cb?s=error"); err == nil {
		t.Error("missing auth_code must report an error")
	}
}

func TestSessionPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := FyersConfig{AppID: "AB1234-100", SessionPath: path}

	s := NewSession(cfg)
	if s.Valid() {
		t.Error("fresh session must not be valid")
	}
	if _, err := s.AccessToken(); !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("AccessToken = %v, want ErrNotAuthenticated", err)
	}

	s.store("token-1")
	if !s.Valid() {
		t.Error("stored token must be valid")
	}

	// A new session manager picks the persisted token back up
	again := NewSession(cfg)
	token, err := again.AccessToken()
	if err != nil || token != "token-1" {
		t.Errorf("reloaded token = %q/%v", token, err)
	}

	// A different app id must not reuse the token
	other := NewSession(FyersConfig{AppID: "ZZ0000-100", SessionPath: path})
	if other.Valid() {
		t.Error("session persisted for another app id must not load")
	}
}

func TestSessionClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewSession(FyersConfig{AppID: "AB1234-100", SessionPath: path})
	s.store("token-1")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Valid() {
		t.Error("cleared session must not be valid")
	}
	if NewSession(FyersConfig{AppID: "AB1234-100", SessionPath: path}).Valid() {
		t.Error("cleared session must not reload")
	}
}

func TestSessionExpiry(t *testing.T) {
	s := NewSession(FyersConfig{AppID: "AB1234-100", SessionPath: filepath.Join(t.TempDir(), "session.json")})
	s.mu.Lock()
	s.accessToken = "stale"
	s.expiresAt = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	if s.Valid() {
		t.Error("expired session must not be valid")
	}
	if _, err := s.AccessToken(); !errors.Is(err, errors.ErrSessionExpired) {
		t.Errorf("AccessToken = %v, want ErrSessionExpired", err)
	}
}
