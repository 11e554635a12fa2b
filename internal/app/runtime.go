package app

import (
	"os"
	"strconv"
)

// TestModeEnv switches the entrypoints into a no-op mode under go test.
const TestModeEnv = "LEDGERDESK_TEST_MODE"

// InTestMode reports whether LEDGERDESK_TEST_MODE holds a true value
// ("1", "true", ...). Entrypoints return early when it does.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
