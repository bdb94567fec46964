// Package credentials stores the LLM provider API keys pitwall uses for
// parameter extraction and summaries in .pitwall/credentials.toml.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/pitwall/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to their expected environment variables.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Manager reads and writes credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager resolves the .pitwall/ directory (override first) and, when none
// exists yet, initializes ~/.pitwall.
func NewManager(override string) (*Manager, error) {
	ddm := dotdir.NewManager()

	target, err := ddm.Target(override)
	if err != nil {
		return nil, err
	}
	if target == "" {
		if target, err = ddm.Init(""); err != nil {
			return nil, err
		}
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// Load reads credentials.toml. A missing file yields empty Credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	stored := creds.Providers
	creds.Providers = make(map[string]ProviderKey, len(stored))
	for name, pk := range stored {
		creds.Set(name, pk.APIKey)
	}
	return creds, nil
}

// Save writes credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetKey stores an API key for a supported provider.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider %q (supported: %v)", provider, SupportedProviders())
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("api key must not be empty")
	}

	return m.update(func(c *Credentials) {
		c.Set(provider, strings.TrimSpace(key))
	})
}

// GetKey returns the stored API key for provider, or "" if none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Key(provider), nil
}

// RemoveKey deletes the stored key for provider.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		c.Set(provider, "")
	})
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	return creds.Stored(), nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// ResolveKey returns the API key for provider: explicit wins, then the
// stored key (when m is non-nil), then the provider's environment variable.
func ResolveKey(m *Manager, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if m != nil {
		if key, err := m.GetKey(provider); err == nil && key != "" {
			return key
		}
	}
	if env := EnvVarForProvider(provider); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[normalizeProvider(provider)]
}

// SupportedProviders returns the providers that require API keys.
func SupportedProviders() []string {
	return []string{"anthropic", "openai"}
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), normalizeProvider(provider))
}
