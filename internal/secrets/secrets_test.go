// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "  sk-abc123  \n")
				writeFile(t, dir, SemanticScholarAPIKey, "s2_xyz789")
				writeFile(t, dir, OpenAlexEmail, "user@example.com\n")
				return dir
			},
			want: map[string]string{
				OpenAIAPIKey:          "sk-abc123",
				SemanticScholarAPIKey: "s2_xyz789",
				OpenAlexEmail:         "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, HeliconeAPIKey, "hk_real")
				return dir
			},
			want: map[string]string{
				HeliconeAPIKey: "hk_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", EnvName(OpenAIAPIKey))
	assert.Equal(t, "OPENALEX_EMAIL", EnvName(OpenAlexEmail))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "# keys\nOPENAI_API_KEY=sk-env\nHELICONE_API_KEY=\"hk-env\"\nUNRELATED=1\n")

	got, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		OpenAIAPIKey:   "sk-env",
		HeliconeAPIKey: "hk-env",
	}, got)

	missing, err := LoadEnv(filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "OPENAI_API_KEY=from-dotenv\nOPENALEX_EMAIL=dotenv@example.com\nANTHROPIC_API_KEY=from-dotenv\n")
	secretsDir := filepath.Join(dir, ".secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o755))
	writeFile(t, secretsDir, OpenAIAPIKey, "from-file")
	writeFile(t, secretsDir, AnthropicAPIKey, "from-file")
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "")

	got, err := Resolve(secretsDir, filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", got[OpenAIAPIKey], "files beat dotenv; blank env ignored")
	assert.Equal(t, "from-env", got[AnthropicAPIKey], "environment beats files")
	assert.Equal(t, "dotenv@example.com", got[OpenAlexEmail])
}
