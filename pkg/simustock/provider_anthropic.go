package simustock

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicWebSearchCitation = "web_search_result_location"

func requestInsightByAnthropic(ctx context.Context, req InsightRequest) (RawResponse, error) {
	baseURL, err := normalizeAnthropicBaseURL(req.BaseURL)
	if err != nil {
		return RawResponse{}, err
	}
	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(strings.TrimSpace(req.APIKey)),
		anthropicoption.WithBaseURL(baseURL),
		anthropicoption.WithMaxRetries(0),
	)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(insightTemperature),
		Tools: []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(anthropicMaxWebSearch),
			}},
		},
	})
	if err != nil {
		return RawResponse{}, fmt.Errorf("anthropic messages request failed: %w", err)
	}

	var sb strings.Builder
	var chunks []GroundingChunk
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
		for _, citation := range block.Citations {
			if citation.Type != anthropicWebSearchCitation {
				continue
			}
			chunks = append(chunks, GroundingChunk{Title: citation.Title, URI: citation.URL})
		}
	}
	text := sb.String()
	logInsightRawResponseDebug(req.Logger, ProviderAnthropic, string(message.Model), text, len(chunks))

	return RawResponse{Model: string(message.Model), Text: text, GroundingChunks: chunks}, nil
}

// normalizeAnthropicBaseURL returns the API root; the SDK appends "v1/messages".
func normalizeAnthropicBaseURL(baseURL string) (string, error) {
	normalized, err := normalizeBaseURL(baseURL, defaultAnthropicBaseURL)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(normalized)
	for _, suffix := range []string{"/v1/messages", "/v1"} {
		if strings.HasSuffix(lower, suffix) {
			return normalized[:len(normalized)-len(suffix)], nil
		}
	}
	return normalized, nil
}
