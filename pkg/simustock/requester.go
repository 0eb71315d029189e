package simustock

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderAuto      = "auto"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"

	DefaultGeminiModel    = "gemini-3-flash-preview"
	DefaultOpenAIModel    = "gpt-4o-search-preview"
	DefaultAnthropicModel = "claude-sonnet-4-5"

	DefaultRequestTimeout = 90 * time.Second

	insightTemperature    = 0.1
	anthropicMaxTokens    = 4096
	anthropicMaxWebSearch = 5
)

// InsightRequest is one outbound call to the AI service.
type InsightRequest struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Ticker   Ticker
	Prompt   string
	Logger   *slog.Logger
}

// RawResponse is what the upstream returned, before normalization.
type RawResponse struct {
	Provider        string
	Model           string
	Text            string
	GroundingChunks []GroundingChunk
}

var aiInsightCompletion = requestInsight

// Provider implementations; swapped in tests.
var (
	geminiInsightCompletion    = requestInsightByGemini
	openAIInsightCompletion    = requestInsightByOpenAI
	anthropicInsightCompletion = requestInsightByAnthropic
)

// requestInsight issues exactly one request to the resolved provider. Any
// failure is reported as ErrCodeUpstream; an empty text is not an error.
func requestInsight(ctx context.Context, req InsightRequest) (RawResponse, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return RawResponse{}, NewError(ErrCodeConfiguration, "api key is not configured")
	}
	provider := resolveProvider(req.Provider, req.BaseURL, req.Model)
	req.Provider = provider
	if strings.TrimSpace(req.Model) == "" {
		req.Model = defaultModelFor(provider)
	}
	logInsightPromptDebug(req.Logger, provider, req.BaseURL, req.Model, req.Prompt)

	var (
		resp RawResponse
		err  error
	)
	switch provider {
	case ProviderOpenAI:
		resp, err = openAIInsightCompletion(ctx, req)
	case ProviderAnthropic:
		resp, err = anthropicInsightCompletion(ctx, req)
	default:
		resp, err = geminiInsightCompletion(ctx, req)
	}
	if err != nil {
		return RawResponse{}, WrapError(ErrCodeUpstream, provider+" request failed", err)
	}
	resp.Provider = provider
	if strings.TrimSpace(resp.Model) == "" {
		resp.Model = req.Model
	}
	return resp, nil
}

// resolveProvider maps a configured provider name to a concrete one. "auto"
// (or empty) infers it from the model name and base URL.
func resolveProvider(provider, baseURL, model string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGemini:
		return ProviderGemini
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderAnthropic:
		return ProviderAnthropic
	}
	if isAnthropicRequest(baseURL, model) {
		return ProviderAnthropic
	}
	if isGeminiRequest(baseURL, model) || (strings.TrimSpace(model) == "" && strings.TrimSpace(baseURL) == "") {
		return ProviderGemini
	}
	return ProviderOpenAI
}

// ValidProvider reports whether name is an accepted provider setting.
func ValidProvider(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderAuto, ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return true
	}
	return false
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	default:
		return DefaultGeminiModel
	}
}

func isGeminiRequest(endpointURL, model string) bool {
	modelLower := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(modelLower, "gemini") {
		return true
	}

	endpointLower := strings.ToLower(strings.TrimSpace(endpointURL))
	if endpointLower == "" {
		return false
	}
	return strings.Contains(endpointLower, "generativelanguage.googleapis.com") ||
		strings.Contains(endpointLower, "/gemini")
}

func isAnthropicRequest(endpointURL, model string) bool {
	modelLower := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(modelLower, "claude") {
		return true
	}
	return strings.Contains(strings.ToLower(endpointURL), "anthropic.com")
}

// normalizeBaseURL validates an http(s) base URL, adding a scheme when
// missing and dropping any trailing slash. An empty value yields fallback.
func normalizeBaseURL(baseURL, fallback string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = fallback
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid base_url scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid base_url host")
	}
	return trimmed, nil
}

func logInsightPromptDebug(logger *slog.Logger, provider, endpoint, model, prompt string) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("ai insight prompt",
		"provider", provider,
		"endpoint", strings.TrimSpace(endpoint),
		"model", strings.TrimSpace(model),
		"prompt", prompt,
	)
}

func logInsightRawResponseDebug(logger *slog.Logger, provider, model, text string, chunks int) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("ai insight raw response",
		"provider", provider,
		"model", model,
		"text_bytes", len(text),
		"grounding_chunks", chunks,
		"raw_text", text,
	)
}
