// Package testenv puts a test binary into LedgerDesk test mode when it is
// imported: entrypoints return before dialing Postgres or Redis, and
// LoadConfig finds the secrets it requires.
package testenv

import "os"

const (
	// ModeEnv is read by app.InTestMode.
	ModeEnv = "LEDGERDESK_TEST_MODE"
	// CSRFSecret is the secret installed when CSRF_SECRET is unset.
	CSRFSecret = "test-secret"
)

func init() {
	Setup()
}

// Setup sets the test-mode variables, keeping values already present.
func Setup() {
	setDefault(ModeEnv, "1")
	setDefault("CSRF_SECRET", CSRFSecret)
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
