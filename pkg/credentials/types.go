package credentials

import (
	"maps"
	"slices"
	"strings"
)

// Credentials is the decoded credentials.toml. Provider names are stored
// lower case so "OpenAI" and "openai" address the same key.
type Credentials struct {
	Version   int                    `toml:"version"`
	Providers map[string]ProviderKey `toml:"providers"`
}

// ProviderKey is the stored API key for one LLM provider.
type ProviderKey struct {
	APIKey string `toml:"api_key"`
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// Key returns the stored key for provider, or "".
func (c *Credentials) Key(provider string) string {
	if c == nil {
		return ""
	}
	return c.Providers[normalizeProvider(provider)].APIKey
}

// Set stores key for provider. An empty key removes the entry.
func (c *Credentials) Set(provider, key string) {
	provider = normalizeProvider(provider)
	if key == "" {
		delete(c.Providers, provider)
		return
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderKey)
	}
	c.Providers[provider] = ProviderKey{APIKey: key}
}

// Stored returns the providers holding a non-empty key, sorted.
func (c *Credentials) Stored() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, 0, len(c.Providers))
	for _, name := range slices.Sorted(maps.Keys(c.Providers)) {
		if c.Providers[name].APIKey != "" {
			out = append(out, name)
		}
	}
	return out
}
