package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPage(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		wantTitle string
		want      []string // substrings that should be present
		wantNot   []string // substrings that should NOT be present
		truncated bool
	}{
		{
			name: "removes scripts and styles",
			input: `<html>
				<head>
					<title>Login Page</title>
					<script>alert('x');</script>
					<style>body { color: red; }</style>
				</head>
				<body>
					<h1 id="heading">Sign in</h1>
					<p class="intro">Welcome back.</p>
				</body>
			</html>`,
			maxLength: 10000,
			wantTitle: "Login Page",
			want:      []string{`<h1 id="heading">`, "Sign in", `<p class="intro">`, "Welcome back"},
			wantNot:   []string{"<script>", "alert", "<style>", "color: red"},
		},
		{
			name: "keeps form targeting attributes",
			input: `<html><body>
				<form action="/session" method="post">
					<input type="email" name="login" id="login_field" placeholder="Email">
					<input type="password" name="password">
					<input type="submit" class="btn-primary" value="Sign in">
				</form>
			</body></html>`,
			maxLength: 10000,
			want: []string{
				`<form action="/session" method="post">`,
				`type="email"`,
				`name="login"`,
				`id="login_field"`,
				`placeholder="Email"`,
				`name="password"`,
				`class="btn-primary"`,
			},
		},
		{
			name: "drops noisy embeds",
			input: `<html><body>
				<div>Workspace</div>
				<noscript>No JS</noscript>
				<iframe src="ad.html"></iframe>
				<svg><circle/></svg>
			</body></html>`,
			maxLength: 10000,
			want:      []string{"<div>", "Workspace"},
			wantNot:   []string{"<noscript>", "<iframe>", "<svg>", "No JS"},
		},
		{
			name: "truncates at the length budget",
			input: `<html><body>
				<p>First block with some text content.</p>
				<p>Second block with more text content.</p>
				<p>Third block that exceeds the budget.</p>
			</body></html>`,
			maxLength: 90,
			want:      []string{"First block"},
			truncated: true,
		},
		{
			name: "keeps link targets",
			input: `<html><body>
				<a href="https://github.com/login" target="_blank">Sign in</a>
			</body></html>`,
			maxLength: 10000,
			want:      []string{`href="https://github.com/login"`, `target="_blank"`, "Sign in"},
		},
		{
			name: "keeps data attributes",
			input: `<html><body>
				<button data-testid="create-issue" type="button">New issue</button>
			</body></html>`,
			maxLength: 10000,
			want:      []string{`data-testid="create-issue"`, `type="button"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := cleanPage(tt.input, tt.maxLength)
			require.NoError(t, err)

			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, snapshot.Title)
			}
			for _, want := range tt.want {
				assert.Contains(t, snapshot.HTML, want)
			}
			for _, not := range tt.wantNot {
				assert.NotContains(t, snapshot.HTML, not)
			}
			assert.Equal(t, tt.truncated, snapshot.Truncated)
		})
	}
}

func TestCleanPageEmptyInput(t *testing.T) {
	snapshot, err := cleanPage("", 1000)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(snapshot.HTML))
	assert.False(t, snapshot.Truncated)
}
