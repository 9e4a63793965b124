// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and an optional dotenv file. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
//
// Supported keys: openai-api-key, anthropic-api-key, semantic-scholar-api-key,
// openalex-email, helicone-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names understood by the CLI.
const (
	OpenAIAPIKey          = "openai-api-key"
	AnthropicAPIKey       = "anthropic-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAlexEmail         = "openalex-email"
	HeliconeAPIKey        = "helicone-api-key"
)

// Keys lists every supported key.
var Keys = []string{OpenAIAPIKey, AnthropicAPIKey, SemanticScholarAPIKey, OpenAlexEmail, HeliconeAPIKey}

// EnvName returns the environment variable that carries key, e.g.
// "openai-api-key" becomes "OPENAI_API_KEY".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv parses a dotenv file and returns the supported keys it sets,
// keyed by key name. A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	out := make(map[string]string)
	for _, key := range Keys {
		if v := strings.TrimSpace(vars[EnvName(key)]); v != "" {
			out[key] = v
		}
	}
	return out, nil
}

// Resolve merges every source of secrets. The process environment wins
// over the secrets directory, which wins over the dotenv file.
func Resolve(dir, envFile string) (map[string]string, error) {
	out, err := LoadEnv(envFile)
	if err != nil {
		return nil, err
	}
	files, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for k, v := range files {
		out[k] = v
	}
	for _, key := range Keys {
		if v := strings.TrimSpace(os.Getenv(EnvName(key))); v != "" {
			out[key] = v
		}
	}
	return out, nil
}
