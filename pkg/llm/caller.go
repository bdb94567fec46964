// Package llm holds the language model collaborators: a provider-agnostic
// JSON caller, the parameter extractor and the summary writer.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/papercomputeco/pitwall/pkg/credentials"
	"github.com/papercomputeco/pitwall/pkg/logger"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const defaultCallTimeout = 30 * time.Second

// CallFunc sends one prompt and returns the model's raw JSON text.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// CallerConfig configures NewCaller.
type CallerConfig struct {
	Provider string // "openai", "anthropic", or "ollama"
	Model    string // e.g. "gpt-4o-mini", "claude-haiku-4-5-20251001"
	APIKey   string // explicit API key (highest priority)
	BaseURL  string // override base URL

	// Credentials is consulted when APIKey is empty.
	Credentials *credentials.Manager

	// Timeout bounds each call. Defaults to 30s.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewCaller creates a CallFunc for cfg.Provider.
// Resolution order for the API key:
//  1. Explicit APIKey
//  2. credentials.Manager (pitwall auth)
//  3. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  4. Fall back to Ollama at localhost:11434
func NewCaller(cfg CallerConfig) (CallFunc, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	apiKey := ""
	if provider != ProviderOllama {
		apiKey = credentials.ResolveKey(cfg.Credentials, provider, cfg.APIKey)
		if apiKey == "" {
			log.Warn("no API key found, falling back to ollama", "provider", provider)
			provider = ProviderOllama
			cfg.BaseURL = ""
			cfg.Model = ""
		}
	}

	h := &httpCaller{
		client:  cfg.HTTPClient,
		timeout: cfg.Timeout,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  apiKey,
	}
	if h.client == nil {
		h.client = http.DefaultClient
	}
	if h.timeout <= 0 {
		h.timeout = defaultCallTimeout
	}

	switch provider {
	case ProviderOpenAI:
		h.defaults("gpt-4o-mini", "https://api.openai.com")
		return h.openAI, nil
	case ProviderAnthropic:
		h.defaults("claude-haiku-4-5-20251001", "https://api.anthropic.com")
		return h.anthropic, nil
	case ProviderOllama:
		h.defaults("llama3.2", "http://localhost:11434")
		return h.ollama, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type httpCaller struct {
	client  *http.Client
	timeout time.Duration
	model   string
	baseURL string
	apiKey  string
}

func (h *httpCaller) defaults(model, baseURL string) {
	if h.model == "" {
		h.model = model
	}
	if h.baseURL == "" {
		h.baseURL = baseURL
	}
}

// post sends body as JSON to path and decodes a 200 response into out.
func (h *httpCaller) post(ctx context.Context, name, path string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", name, resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// --- OpenAI ---

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

func (h *httpCaller) openAI(ctx context.Context, prompt string) (string, error) {
	body := openAIRequest{
		Model:          h.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: &openAIRespFormat{Type: "json_object"},
	}

	var result openAIResponse
	err := h.post(ctx, ProviderOpenAI, "/v1/chat/completions",
		map[string]string{"Authorization": "Bearer " + h.apiKey}, body, &result)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("openai error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// --- Anthropic ---

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

func (h *httpCaller) anthropic(ctx context.Context, prompt string) (string, error) {
	body := anthropicRequest{
		Model:     h.model,
		MaxTokens: 1024,
		Messages: []chatMessage{
			{Role: "user", Content: prompt + "\n\nReturn ONLY valid JSON, no markdown or extra text."},
		},
	}

	var result anthropicResponse
	err := h.post(ctx, ProviderAnthropic, "/v1/messages", map[string]string{
		"x-api-key":         h.apiKey,
		"anthropic-version": "2023-06-01",
	}, body, &result)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return "", errors.New("anthropic returned no content")
	}
	return result.Content[0].Text, nil
}

// --- Ollama ---

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (h *httpCaller) ollama(ctx context.Context, prompt string) (string, error) {
	body := ollamaChatRequest{
		Model:    h.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Format:   "json",
	}

	var result ollamaChatResponse
	if err := h.post(ctx, ProviderOllama, "/api/chat", nil, body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}
