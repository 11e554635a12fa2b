package testenv

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupKeepsExistingValues(t *testing.T) {
	t.Setenv("CSRF_SECRET", "from-env")
	t.Setenv(ModeEnv, "")
	Setup()
	assert.Equal(t, "from-env", os.Getenv("CSRF_SECRET"))
	assert.Equal(t, "1", os.Getenv(ModeEnv))
}
