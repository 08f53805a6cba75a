package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const llmSystemPrompt = `You are a text analysis engine. Given an email or ticket text, extract:
- entities: named items with "text", "type" (one of PERSON, ORGANIZATION, LOCATION, EVENT, TITLE, COMMERCIAL_ITEM, DATE, QUANTITY, OTHER) and "score" (0-1 confidence)
- key_phrases: salient noun phrases with "text" and "score" (0-1 confidence)
- sentiment: {"label": one of POSITIVE/NEGATIVE/NEUTRAL/MIXED, "scores": {"positive","negative","neutral","mixed"} each 0-1}

Respond with a single JSON object {"entities":[...],"key_phrases":[...],"sentiment":{...}} and nothing else.`

// LLMExtractor implements the extraction capability on top of the Anthropic
// API, producing the same canonical feature shape as the hosted backend.
type LLMExtractor struct {
	client anthropic.Client
	model  string
}

func NewLLMExtractor(apiKey, model string) *LLMExtractor {
	return &LLMExtractor{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) (*Result, error) {
	message, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	raw := stripCodeFence(sb.String())
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	result.Sentiment.Label = normalizeLabel(result.Sentiment.Label)
	for i := range result.Entities {
		result.Entities[i].Type = strings.ToUpper(result.Entities[i].Type)
	}
	return &result, nil
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// around its JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
