package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatGenerator calls any OpenAI-compatible /v1/chat/completions
// endpoint. Works with the hosted API, vLLM, LiteLLM, OpenRouter, etc.
type OpenAICompatGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// GeneratorOption customizes an OpenAICompatGenerator.
type GeneratorOption func(*OpenAICompatGenerator)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GeneratorOption {
	return func(g *OpenAICompatGenerator) { g.temperature = t }
}

// WithMaxTokens sets the output-token ceiling.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *OpenAICompatGenerator) { g.maxTokens = n }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeneratorOption {
	return func(g *OpenAICompatGenerator) { g.httpClient = c }
}

// NewOpenAICompatGenerator builds an OpenAI-compatible TextGenerator.
// baseURL should include the /v1 prefix, e.g. "https://api.openai.com/v1".
func NewOpenAICompatGenerator(baseURL, apiKey, model string, options ...GeneratorOption) *OpenAICompatGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	g := &OpenAICompatGenerator{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, option := range options {
		if option != nil {
			option(g)
		}
	}
	return g
}

// GenerateText implements TextGenerator using the chat completions API.
// Errors reported in the API's own error payload come back as *UpstreamError.
func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("generation model required")
	}
	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: userPrompt})

	reqBody := oaiChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
	}
	if g.maxTokens > 0 {
		reqBody.MaxTokens = g.maxTokens
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions request: %w", err)
	}
	defer resp.Body.Close()

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("chat completions decode: %w", err)
	}
	if chatResp.Error.Message != "" {
		return "", &UpstreamError{Message: chatResp.Error.Message}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completions error: %s", resp.Status)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from chat completions api")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from chat completions api")
	}
	return text, nil
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
