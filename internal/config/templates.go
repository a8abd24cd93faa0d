package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Fyers Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "paper"
# Default exchange: NSE, BSE
default_exchange = "NSE"
# Carry positions overnight (selects MARGIN/CASH product instead of INTRADAY)
overnight = false

[polling]
# Order-status polling budget. These match observed broker fill latency;
# the driver cancels any order still open after max_polls attempts.
max_polls = 3
# Sleep between polls (e.g., "500ms")
interval = "500ms"

[snapshot]
# Directory for the cached instrument master (defaults under the config dir)
cache_dir = ""
# Re-download the symbol master when the cache is older than this
max_age = "24h"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
`

const credentialsTemplate = `# Fyers Trader Credentials
#
# Get your app_id and app_secret from https://myapi.fyers.in
# The redirect_uri must match the one registered with the app.

[fyers]
app_id = ""
app_secret = ""
redirect_uri = ""

# Optional: for headless auto-login with TOTP 2FA
client_id = ""
pin = ""
totp_secret = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials get restricted permissions
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
