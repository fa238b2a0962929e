// Package enrich rewrites freshly ingested items through an OpenAI chat
// model. It is an optional collaborator: the pipeline's output is valid
// without it, and every failure here is non-fatal.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"aafeed/internal/config"
	"aafeed/internal/domain"
	"aafeed/internal/ports"
)

// OpenAIEnricher implements ports.Enricher via chat completions.
type OpenAIEnricher struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

var _ ports.Enricher = (*OpenAIEnricher)(nil)

// NewOpenAIEnricher builds a client from configuration.
func NewOpenAIEnricher(cfg config.OpenAIConfig) *OpenAIEnricher {
	return &OpenAIEnricher{
		client:       openai.NewClient(cfg.APIKey),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}
}

type enrichmentPayload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Enhance asks the model for a rewritten title/content and tag suggestions.
func (e *OpenAIEnricher) Enhance(ctx context.Context, item domain.NormalizedNewsItem) (domain.Enrichment, error) {
	user := fmt.Sprintf(
		"Başlık: %s\n\nİçerik:\n%s\n\nYanıtı şu JSON biçiminde ver: {\"title\": \"...\", \"content\": \"...\", \"tags\": [\"...\"]}",
		item.Title, item.Content)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Enrichment{}, fmt.Errorf("chat completion returned no choices")
	}

	payload, err := parsePayload(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.Enrichment{}, err
	}

	return domain.Enrichment{
		Title:   strings.TrimSpace(payload.Title),
		Content: strings.TrimSpace(payload.Content),
		Tags:    payload.Tags,
	}, nil
}

// parsePayload tolerates models that wrap the JSON in code fences or prose.
func parsePayload(content string) (enrichmentPayload, error) {
	var payload enrichmentPayload

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return payload, fmt.Errorf("no JSON object in model response")
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return payload, fmt.Errorf("decode model response: %w", err)
	}
	return payload, nil
}
