package simustock

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

func requestInsightByGemini(ctx context.Context, req InsightRequest) (RawResponse, error) {
	clientConfig, err := buildGeminiClientConfig(req.BaseURL, req.APIKey)
	if err != nil {
		return RawResponse{}, err
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return RawResponse{}, fmt.Errorf("create gemini client failed: %w", err)
	}

	requestConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(insightTemperature)),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), requestConfig)
	if err != nil {
		return RawResponse{}, fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := response.Text()
	chunks := geminiGroundingChunks(response)
	logInsightRawResponseDebug(req.Logger, ProviderGemini, req.Model, text, len(chunks))

	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = req.Model
	}
	return RawResponse{Model: model, Text: text, GroundingChunks: chunks}, nil
}

func geminiGroundingChunks(response *genai.GenerateContentResponse) []GroundingChunk {
	if response == nil || len(response.Candidates) == 0 {
		return nil
	}
	candidate := response.Candidates[0]
	if candidate == nil || candidate.GroundingMetadata == nil {
		return nil
	}
	chunks := make([]GroundingChunk, 0, len(candidate.GroundingMetadata.GroundingChunks))
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		chunks = append(chunks, GroundingChunk{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return chunks
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	if pointsAtOtherProvider(endpoint) {
		endpoint = defaultGeminiBaseURL
	}
	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(endpoint)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:      strings.TrimSpace(apiKey),
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL, APIVersion: apiVersion},
	}, nil
}

// pointsAtOtherProvider catches a base URL left over from an OpenAI or
// Anthropic configuration when the provider is switched to Gemini.
func pointsAtOtherProvider(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Hostname()) {
	case "api.openai.com", "api.anthropic.com":
		return true
	}
	return false
}

// parseGeminiBaseURLAndVersion splits an endpoint such as
// https://proxy/gemini/v1beta into the root genai expects
// (https://proxy/gemini/) and the API version (v1beta). Without a version
// segment v1beta is assumed.
func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		raw = defaultGeminiBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	switch {
	case err != nil:
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	case parsed.Host == "":
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	root := parsed.Scheme + "://" + parsed.Host + "/"
	version := "v1beta"
	for _, segment := range strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' }) {
		if strings.HasPrefix(strings.ToLower(segment), "v1") {
			version = segment
			break
		}
		root += segment + "/"
	}
	return root, version, nil
}
