package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"dsbench/internal/logging"
)

// OllamaConfig holds configuration for the Ollama generator.
type OllamaConfig struct {
	BaseURL     string        // Default: "http://localhost:11434"
	APIKey      string        // Optional, for remote Ollama servers with auth
	Model       string        // e.g. "llama3.2", "qwen2.5-coder"
	Temperature float32
	MaxTokens   int32
	HTTPTimeout time.Duration // Default: 120s
}

// OllamaGenerator generates text with a local or remote Ollama server.
type OllamaGenerator struct {
	client     *api.Client
	httpClient *http.Client
	config     OllamaConfig
}

// authTransport adds Authorization header to HTTP requests.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(reqClone)
}

// NewOllamaGenerator creates an Ollama-backed generator.
func NewOllamaGenerator(cfg OllamaConfig) (*OllamaGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.APIKey != "" {
		httpClient.Transport = &authTransport{base: http.DefaultTransport, apiKey: cfg.APIKey}
	}

	return &OllamaGenerator{
		client:     api.NewClient(baseURL, httpClient),
		httpClient: httpClient,
		config:     cfg,
	}, nil
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = g.config.Model
	}
	options := map[string]interface{}{}
	if n := req.MaxTokens; n > 0 {
		options["num_predict"] = n
	} else if g.config.MaxTokens > 0 {
		options["num_predict"] = g.config.MaxTokens
	}
	if g.config.Temperature > 0 {
		options["temperature"] = g.config.Temperature
	}

	stream := false
	genReq := &api.GenerateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: options,
	}

	var sb strings.Builder
	err := g.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate (%s): %w", model, err)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Close releases idle HTTP connections.
func (g *OllamaGenerator) Close() {
	g.httpClient.CloseIdleConnections()
}
