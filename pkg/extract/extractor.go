package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lamarkesa/pkg/ai"
	"lamarkesa/pkg/domain"
)

// systemPrompt is the fixed extraction instruction sent with every request.
const systemPrompt = `Extract jewelry items from this data. Return ONLY a JSON array with objects containing:
- name: string (jewelry name)
- price: number (price as number, 0 if not found)
- category: string (rings, necklaces, earrings, bracelets, watches, or other)
- sku: string (code/SKU if found, or empty)

Process ALL sheets. Skip headers. Return ONLY valid JSON array, no explanation.`

var (
	// ErrEmptyInput rejects requests without pasted text.
	ErrEmptyInput = errors.New("no data provided")
	// ErrNoCredential means neither the user nor the server has an API key
	// configured; an operator-actionable condition.
	ErrNoCredential = errors.New("OpenAI API key not configured")
)

// Extractor turns pasted spreadsheet text into normalized item records via
// one synchronous LLM call. Stateless; one call per invocation, no retry.
type Extractor struct {
	baseURL string
	model   string

	// newGenerator builds the client for a given credential. Tests replace it.
	newGenerator func(apiKey string) ai.TextGenerator
}

// New builds an extractor against an OpenAI-compatible endpoint.
func New(baseURL, model string) *Extractor {
	e := &Extractor{baseURL: baseURL, model: model}
	e.newGenerator = func(apiKey string) ai.TextGenerator {
		return ai.NewOpenAICompatGenerator(e.baseURL, apiKey, e.model,
			ai.WithTemperature(0.1), ai.WithMaxTokens(16000))
	}
	return e
}

// Extract sends textInput to the model and parses the response into
// normalized records. Upstream API errors pass through as ai.UpstreamError.
func (e *Extractor) Extract(ctx context.Context, apiKey, textInput string) ([]domain.ExtractedItem, error) {
	if strings.TrimSpace(textInput) == "" {
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredential
	}
	raw, err := e.newGenerator(apiKey).GenerateText(ctx, systemPrompt, textInput)
	if err != nil {
		return nil, err
	}
	return parseItems(raw)
}

// parseItems strips markdown code fences and decodes the JSON array.
func parseItems(raw string) ([]domain.ExtractedItem, error) {
	cleaned := stripCodeFences(raw)
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("parse extraction output: %w", err)
	}
	items := make([]domain.ExtractedItem, 0, len(decoded))
	for _, rec := range decoded {
		items = append(items, normalizeRecord(rec))
	}
	return items, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// normalizeRecord coerces one decoded object into the contract: numeric
// price (0 when unknown or negative), category from the fixed set with
// "other" as fallback, empty strings for missing text fields.
func normalizeRecord(rec map[string]any) domain.ExtractedItem {
	item := domain.ExtractedItem{
		Name:     stringField(rec, "name"),
		Price:    priceField(rec),
		Category: categoryField(rec),
		SKU:      stringField(rec, "sku"),
	}
	return item
}

func stringField(rec map[string]any, key string) string {
	v, _ := rec[key].(string)
	return strings.TrimSpace(v)
}

func priceField(rec map[string]any) float64 {
	switch v := rec["price"].(type) {
	case float64:
		if v > 0 {
			return v
		}
	case string:
		cleaned := strings.TrimLeft(strings.TrimSpace(v), "$€£ ")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if p, err := strconv.ParseFloat(cleaned, 64); err == nil && p > 0 {
			return p
		}
	}
	return 0
}

func categoryField(rec map[string]any) string {
	raw := strings.ToLower(stringField(rec, "category"))
	for _, c := range domain.Categories {
		if raw == string(c) {
			return raw
		}
	}
	return string(domain.CategoryOther)
}
