package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	registry := Default()

	tests := []struct {
		name     string
		task     string
		expected string
	}{
		{
			name:     "detects notion case-insensitive",
			task:     "Create a database in Notion",
			expected: "notion",
		},
		{
			name:     "detects github",
			task:     "Create an issue in GitHub",
			expected: "github",
		},
		{
			name:     "detects uppercase mention",
			task:     "add a task in ASANA today",
			expected: "asana",
		},
		{
			name:     "detects linear",
			task:     "Create a project in linear",
			expected: "linear",
		},
		{
			name:     "no match returns empty",
			task:     "do something",
			expected: "",
		},
		{
			name:     "empty task returns empty",
			task:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.Detect(tt.task))
		})
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	// First matching key in registration order wins.
	r := NewRegistry()
	profile := func(name string) *Profile {
		return &Profile{
			Name:          name,
			URL:           "https://example.com",
			LoginURL:      "https://example.com/login",
			EmailField:    "input[type='email']",
			PasswordField: "input[type='password']",
			SubmitButton:  "button[type='submit']",
			MFAWaitTime:   DefaultMFAWait,
		}
	}
	require.NoError(t, r.Register("note", profile("Note")))
	require.NoError(t, r.Register("notebook", profile("Notebook")))

	assert.Equal(t, "note", r.Detect("open my notebook"))
}

func TestRegistryLookupIsTotal(t *testing.T) {
	// Every key Detect can return resolves to a valid profile.
	registry := Default()
	for _, key := range registry.Keys() {
		detected := registry.Detect("use " + key + " now")
		require.Equal(t, key, detected)

		profile := registry.Get(detected)
		require.NotNil(t, profile, "key %q must resolve", key)
		assert.NoError(t, profile.Validate())
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	registry := Default()
	assert.NotNil(t, registry.Get("GitHub"))
	assert.NotNil(t, registry.Get("NOTION"))
	assert.Nil(t, registry.Get("unknown"))
}

func TestProfileValidate(t *testing.T) {
	valid := Profile{
		Name:          "Example",
		URL:           "https://example.com",
		LoginURL:      "https://example.com/login",
		EmailField:    "input[type='email']",
		PasswordField: "input[type='password']",
		SubmitButton:  "button[type='submit']",
		MFAWaitTime:   15,
	}

	t.Run("valid profile passes", func(t *testing.T) {
		p := valid
		assert.NoError(t, p.Validate())
	})

	t.Run("missing locator fails", func(t *testing.T) {
		p := valid
		p.PasswordField = ""
		assert.Error(t, p.Validate())
	})

	t.Run("non-positive MFA wait fails", func(t *testing.T) {
		p := valid
		p.MFAWaitTime = 0
		assert.Error(t, p.Validate())
	})

	t.Run("missing name fails", func(t *testing.T) {
		p := valid
		p.Name = ""
		assert.Error(t, p.Validate())
	})
}

func TestGitHubProfileLoginURL(t *testing.T) {
	profile := Default().Get("github")
	require.NotNil(t, profile)
	assert.Equal(t, "https://github.com/login", profile.LoginURL)
	assert.Equal(t, "GitHub", profile.Name)
}

func TestHighComplexityFlag(t *testing.T) {
	registry := Default()
	assert.True(t, registry.Get("monday").HighComplexity)
	assert.False(t, registry.Get("notion").HighComplexity)
}
