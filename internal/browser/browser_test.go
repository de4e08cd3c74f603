package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, 60*time.Second, opts.Timeout)
	assert.Equal(t, 1365, opts.ViewportWidth)
	assert.Equal(t, 768, opts.ViewportHeight)
	assert.Equal(t, "en-US", opts.Locale)
	assert.Equal(t, "America/New_York", opts.TimezoneID)

	require.NotEmpty(t, opts.UserAgents)
	for _, ua := range opts.UserAgents {
		assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0"))
	}

	assert.Equal(t, "1", opts.ExtraHeaders["upgrade-insecure-requests"])
	assert.Equal(t, "navigate", opts.ExtraHeaders["sec-fetch-mode"])
}

func TestStealthScriptMasksWebdriver(t *testing.T) {
	assert.Contains(t, stealthScript, "navigator, 'webdriver'")
	assert.Contains(t, stealthScript, "window.chrome")
}
