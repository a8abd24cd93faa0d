package broker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"fyers-trader/internal/errors"
	"fyers-trader/pkg/utils"
)

const (
	authBaseURL = "https://api-t2.fyers.in/vagator/v2"
	tokenURL    = "https://api.fyers.in/api/v2/token"
)

// Session manages the Fyers access token: the auth-code exchange, token
// persistence with expiry, and the headless TOTP login flow.
type Session struct {
	cfg  FyersConfig
	path string

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	AppID       string    `json:"app_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewSession creates a session manager, loading any persisted token.
func NewSession(cfg FyersConfig) *Session {
	path := cfg.SessionPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".config", "fyers-trader", "session.json")
	}

	s := &Session{cfg: cfg, path: path}
	_ = s.load()
	return s
}

// AuthCodeURL returns the URL a user visits to obtain an auth code.
func (s *Session) AuthCodeURL() string {
	params := url.Values{}
	params.Set("client_id", s.cfg.AppID)
	params.Set("redirect_uri", s.cfg.RedirectURI)
	params.Set("response_type", "code")
	params.Set("state", "trader")
	return apiBaseURL + "/generate-authcode?" + params.Encode()
}

// Valid reports whether an unexpired access token is held.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && time.Now().Before(s.expiresAt)
}

// AccessToken returns the current token, or an authentication error.
func (s *Session) AccessToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return "", errors.ErrNotAuthenticated
	}
	if time.Now().After(s.expiresAt) {
		return "", errors.ErrSessionExpired
	}
	return s.accessToken, nil
}

// Login establishes a session. A persisted unexpired token wins; next the
// headless TOTP flow runs when client_id/pin/totp_secret are configured;
// otherwise the caller is pointed at the interactive auth-code URL.
func (s *Session) Login(ctx context.Context, client *http.Client, logger zerolog.Logger) error {
	if s.Valid() {
		return nil
	}

	if s.cfg.ClientID != "" && s.cfg.PIN != "" && s.cfg.TOTPSecret != "" {
		logger.Info().Msg("Running headless TOTP login")
		return s.autoLogin(ctx, client)
	}

	return fmt.Errorf("authentication required: visit %s and complete login, then run auth with the auth code", s.AuthCodeURL())
}

// ExchangeAuthCode trades an auth code for an access token via the
// validate-authcode endpoint. The request is authenticated with the
// SHA-256 hash of "appId:appSecret".
func (s *Session) ExchangeAuthCode(ctx context.Context, client *http.Client, authCode string) error {
	hash := sha256.Sum256([]byte(s.cfg.AppID + ":" + s.cfg.AppSecret))

	body := map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  hex.EncodeToString(hash[:]),
		"code":       authCode,
	}

	var resp struct {
		S           string `json:"s"`
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}
	if err := postJSON(ctx, client, apiBaseURL+"/validate-authcode", "", body, &resp); err != nil {
		return errors.NewBrokerError("validate_authcode", "request failed", err)
	}
	if resp.AccessToken == "" {
		return errors.NewBrokerError("validate_authcode", resp.Message, nil)
	}

	s.store(resp.AccessToken)
	return nil
}

// autoLogin runs the undocumented headless flow: OTP request, TOTP
// verification, PIN verification, then an auth-code grant redeemed
// through the regular exchange.
func (s *Session) autoLogin(ctx context.Context, client *http.Client) error {
	// Step 1: request a login OTP for the account
	var otpResp struct {
		RequestKey string `json:"request_key"`
	}
	err := postJSON(ctx, client, authBaseURL+"/send_login_otp_v2", "", map[string]string{
		"fy_id":  base64.StdEncoding.EncodeToString([]byte(s.cfg.ClientID)),
		"app_id": "2",
	}, &otpResp)
	if err != nil || otpResp.RequestKey == "" {
		return errors.NewBrokerError("send_otp", "login OTP request failed", err)
	}

	// Step 2: answer it with the current TOTP code
	code, err := totp.GenerateCode(s.cfg.TOTPSecret, time.Now().In(utils.IndiaLocation))
	if err != nil {
		return errors.NewBrokerError("totp", "generating TOTP code", err)
	}

	var verifyResp struct {
		RequestKey string `json:"request_key"`
	}
	err = postJSON(ctx, client, authBaseURL+"/verify_otp", "", map[string]string{
		"request_key": otpResp.RequestKey,
		"otp":         code,
	}, &verifyResp)
	if err != nil || verifyResp.RequestKey == "" {
		return errors.NewBrokerError("verify_otp", "TOTP verification failed", err)
	}

	// Step 3: confirm the trading PIN
	var pinResp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	err = postJSON(ctx, client, authBaseURL+"/verify_pin_v2", "", map[string]string{
		"request_key":   verifyResp.RequestKey,
		"identity_type": "pin",
		"identifier":    base64.StdEncoding.EncodeToString([]byte(s.cfg.PIN)),
	}, &pinResp)
	if err != nil || pinResp.Data.AccessToken == "" {
		return errors.NewBrokerError("verify_pin", "PIN verification failed", err)
	}

	// Step 4: obtain an auth code for the API app
	var tokenResp struct {
		URL string `json:"Url"`
	}
	err = postJSON(ctx, client, tokenURL, "Bearer "+pinResp.Data.AccessToken, map[string]interface{}{
		"fyers_id":       s.cfg.ClientID,
		"app_id":         trimAppType(s.cfg.AppID),
		"redirect_uri":   s.cfg.RedirectURI,
		"appType":        "100",
		"code_challenge": "",
		"state":          "trader",
		"scope":          "",
		"nonce":          "",
		"response_type":  "code",
		"create_cookie":  true,
	}, &tokenResp)
	if err != nil || tokenResp.URL == "" {
		return errors.NewBrokerError("token", "auth code grant failed", err)
	}

	authCode, err := extractAuthCode(tokenResp.URL)
	if err != nil {
		return errors.NewBrokerError("token", "parsing auth code redirect", err)
	}
	return s.ExchangeAuthCode(ctx, client, authCode)
}

// Clear drops the in-memory token and removes the persisted session.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.accessToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *Session) store(token string) {
	// Fyers tokens lapse early next morning IST
	now := time.Now().In(utils.IndiaLocation)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, utils.IndiaLocation)

	s.mu.Lock()
	s.accessToken = token
	s.expiresAt = expiresAt
	s.mu.Unlock()

	_ = s.save(token, expiresAt)
}

func (s *Session) save(token string, expiresAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(sessionData{
		AccessToken: token,
		AppID:       s.cfg.AppID,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *Session) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if time.Now().After(session.ExpiresAt) {
		return errors.ErrSessionExpired
	}
	if session.AppID != s.cfg.AppID {
		return errors.ErrNotAuthenticated
	}

	s.mu.Lock()
	s.accessToken = session.AccessToken
	s.expiresAt = session.ExpiresAt
	s.mu.Unlock()
	return nil
}

// trimAppType strips the "-100" app-type suffix from an app id.
func trimAppType(appID string) string {
	for i := len(appID) - 1; i >= 0; i-- {
		if appID[i] == '-' {
			return appID[:i]
		}
	}
	return appID
}

// extractAuthCode pulls the auth_code query param out of the redirect URL.
func extractAuthCode(redirect string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", err
	}
	code := u.Query().Get("auth_code")
	if code == "" {
		return "", fmt.Errorf("redirect carries no auth_code: %s", redirect)
	}
	return code, nil
}

// postJSON posts a JSON body and decodes a JSON response. An empty
// authorization string omits the header.
func postJSON(ctx context.Context, client *http.Client, url, authorization string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
