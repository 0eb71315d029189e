package simustock

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
)

func requestInsightByOpenAI(ctx context.Context, req InsightRequest) (RawResponse, error) {
	baseURL, err := normalizeOpenAIBaseURL(req.BaseURL)
	if err != nil {
		return RawResponse{}, err
	}
	client := openai.NewClient(
		openaioption.WithAPIKey(strings.TrimSpace(req.APIKey)),
		openaioption.WithBaseURL(baseURL),
		openaioption.WithMaxRetries(0),
	)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(insightTemperature),
		WebSearchOptions: openai.ChatCompletionNewParamsWebSearchOptions{
			SearchContextSize: "medium",
		},
	})
	if err != nil {
		return RawResponse{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return RawResponse{}, fmt.Errorf("openai response has no choices")
	}

	message := completion.Choices[0].Message
	chunks := make([]GroundingChunk, 0, len(message.Annotations))
	for _, annotation := range message.Annotations {
		if annotation.Type != "url_citation" {
			continue
		}
		chunks = append(chunks, GroundingChunk{
			Title: annotation.URLCitation.Title,
			URI:   annotation.URLCitation.URL,
		})
	}
	logInsightRawResponseDebug(req.Logger, ProviderOpenAI, completion.Model, message.Content, len(chunks))

	return RawResponse{Model: completion.Model, Text: message.Content, GroundingChunks: chunks}, nil
}

// normalizeOpenAIBaseURL returns the ".../v1" root the SDK appends
// "chat/completions" to. Full endpoint URLs are cut back to their root.
func normalizeOpenAIBaseURL(baseURL string) (string, error) {
	normalized, err := normalizeBaseURL(baseURL, defaultOpenAIBaseURL)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(normalized)
	for _, suffix := range []string{"/chat/completions", "/responses"} {
		if strings.HasSuffix(lower, suffix) {
			return normalized[:len(normalized)-len(suffix)], nil
		}
	}
	if strings.HasSuffix(lower, "/v1") {
		return normalized, nil
	}
	return normalized + "/v1", nil
}
