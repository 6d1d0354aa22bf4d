package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Zerodha Risk Desk Configuration

[analytics]
# Annualised volatility, in percent, used when --vol is not given
default_volatility = 15.0
# Concurrent analyses for batch runs (0 = one per CPU)
workers = 0

[broker]
# How long the Kite instrument dump is reused before refetching
instrument_cache_ttl = "12h"
# Attempts for each Kite API call before giving up
retry_attempts = 3
# Kite Connect allows ten requests a second
requests_per_second = 10.0
# Where the daily access token is kept (default: <config dir>/session.json)
session_path = ""

[store]
# Report history database (default: <config dir>/riskdesk.db)
path = ""

[log]
# debug, info, warn, error
level = "info"
# Rotating log file under <config dir>/logs
file = true
# Also log to stderr
console = false
path = ""

[ui]
# Enable colored output
color_enabled = true
`

const credentialsTemplate = `# Zerodha Risk Desk Credentials
# Keep this file private (chmod 600). ZERODHA_API_KEY, ZERODHA_API_SECRET
# and ZERODHA_USER_ID in the environment or a .env file take precedence.

[zerodha]
api_key = ""
api_secret = ""
user_id = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
