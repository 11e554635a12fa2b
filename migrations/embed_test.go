package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesOrderedAndReadable(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_authz.sql", names[0])

	data, err := FS.ReadFile(names[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "role_permissions"))
	assert.True(t, strings.Contains(string(data), "organization_modules"))
}
