package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatePatternsMatch(t *testing.T) {
	for _, pattern := range TemplatePatterns {
		matches, err := fs.Glob(Templates(), pattern)
		require.NoError(t, err)
		assert.NotEmpty(t, matches, pattern)
	}
}

func TestStaticStripsPrefix(t *testing.T) {
	static, err := Static()
	require.NoError(t, err)
	_, err = fs.Stat(static, "css/app.css")
	assert.NoError(t, err)
}
