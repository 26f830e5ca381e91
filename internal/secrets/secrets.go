// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key file names and their environment variable fallbacks.
const (
	AnthropicKey = "anthropic-api-key"
	OpenAIKey    = "openai-api-key"

	AnthropicEnv = "ANTHROPIC_API_KEY"
	OpenAIEnv    = "OPENAI_API_KEY"
)

// Credentials holds the resolved provider keys. An empty field means the
// provider is not configured.
type Credentials struct {
	Anthropic string
	OpenAI    string
}

// Resolve returns the provider keys from dir, falling back to the
// environment for keys with no file. A directory that cannot be read is
// treated as empty.
func Resolve(dir string) Credentials {
	files, err := Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		files = map[string]string{}
	}
	return Credentials{
		Anthropic: lookup(files, AnthropicKey, AnthropicEnv),
		OpenAI:    lookup(files, OpenAIKey, OpenAIEnv),
	}
}

func lookup(files map[string]string, name, env string) string {
	if v := files[name]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(env))
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
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
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
