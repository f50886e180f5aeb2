package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLWhitelistEmptyAllowsEverything(t *testing.T) {
	w, err := NewURLWhitelist(nil)
	require.NoError(t, err)

	assert.NoError(t, w.Check("https://anywhere.example.com/path"))
}

func TestURLWhitelistMatching(t *testing.T) {
	w, err := NewURLWhitelist([]string{
		"https://github.com/*",
		"https://*.notion.so/*",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		allowed bool
	}{
		{"exact domain path", "https://github.com/org/repo", true},
		{"subdomain wildcard", "https://www.notion.so/page", true},
		{"unrelated host", "https://evil.example.com/github.com/", false},
		{"scheme mismatch", "http://github.com/org", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Check(tt.url)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestURLWhitelistInvalidPattern(t *testing.T) {
	_, err := NewURLWhitelist([]string{"https://github.com/["})
	assert.Error(t, err)
}
