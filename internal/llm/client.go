package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"runbook-rag/internal/config"
)

const (
	healthTimeout   = 5 * time.Second
	pullTimeout     = 30 * time.Second
	generateTimeout = 60 * time.Second
)

// Client talks to a local Ollama server. Generation failures degrade
// to an in-band error answer instead of propagating; the guardrail
// chain downstream rejects those for lack of grounding.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	httpClient  *http.Client
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: generateTimeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Healthy reports whether the backend answers its model listing
// endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Pull asks the backend to download a model if not already present.
func (c *Client) Pull(ctx context.Context, model string) bool {
	if model == "" {
		model = c.model
	}
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"name": model})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate sends the prompt to the backend and returns the completion
// text. Any failure is returned as a normal answer string prefixed
// with "Error:".
func (c *Client) Generate(ctx context.Context, prompt string) string {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			TopP:        c.topP,
			MaxTokens:   c.maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("Error: failed to encode request - %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Error: failed to create request - %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("model backend unreachable")
		return fmt.Sprintf("Error: unable to connect to model backend - %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error: model backend returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Sprintf("Error: invalid response from model backend - %v", err)
	}
	if out.Response == "" {
		return "Error: no response field in backend output"
	}
	return out.Response
}
