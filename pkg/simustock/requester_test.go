package simustock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestResolveProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		baseURL  string
		model    string
		want     string
	}{
		{name: "explicit gemini", provider: "gemini", want: ProviderGemini},
		{name: "explicit openai case", provider: " OpenAI ", model: "gemini-2.0", want: ProviderOpenAI},
		{name: "explicit anthropic", provider: "anthropic", want: ProviderAnthropic},
		{name: "auto empty defaults to gemini", provider: "auto", want: ProviderGemini},
		{name: "auto gemini model", provider: "", model: "gemini-3-flash-preview", want: ProviderGemini},
		{name: "auto gemini endpoint", baseURL: "https://generativelanguage.googleapis.com/v1beta", model: "custom", want: ProviderGemini},
		{name: "auto claude model", model: "claude-sonnet-4-5", want: ProviderAnthropic},
		{name: "auto anthropic endpoint", baseURL: "https://api.anthropic.com", want: ProviderAnthropic},
		{name: "auto other model", model: "gpt-4o-search-preview", want: ProviderOpenAI},
		{name: "auto compatible endpoint", baseURL: "https://llm.example.com/v1", want: ProviderOpenAI},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveProvider(tc.provider, tc.baseURL, tc.model); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestValidProvider(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "auto", "gemini", "OPENAI", "anthropic"} {
		if !ValidProvider(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	if ValidProvider("cohere") {
		t.Fatal("unexpected provider accepted")
	}
}

func TestParseGeminiBaseURLAndVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantBase    string
		wantVersion string
		wantErr     string
	}{
		{name: "default", input: "", wantBase: "https://generativelanguage.googleapis.com/", wantVersion: "v1beta"},
		{name: "versioned", input: "https://generativelanguage.googleapis.com/v1beta", wantBase: "https://generativelanguage.googleapis.com/", wantVersion: "v1beta"},
		{name: "proxy prefix", input: "https://proxy.example.com/gemini/v1", wantBase: "https://proxy.example.com/gemini/", wantVersion: "v1"},
		{name: "no version", input: "proxy.example.com/google", wantBase: "https://proxy.example.com/google/", wantVersion: "v1beta"},
		{name: "bad scheme", input: "ftp://example.com", wantErr: "invalid gemini endpoint scheme"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			base, version, err := parseGeminiBaseURLAndVersion(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error contains %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if base != tc.wantBase || version != tc.wantVersion {
				t.Fatalf("got (%q, %q) want (%q, %q)", base, version, tc.wantBase, tc.wantVersion)
			}
		})
	}
}

func TestBuildGeminiClientConfigFallsBackFromOtherProviders(t *testing.T) {
	t.Parallel()

	cfg, err := buildGeminiClientConfig("https://api.openai.com/v1", " key ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPOptions.BaseURL != "https://generativelanguage.googleapis.com/" || cfg.APIKey != "key" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "empty uses default", input: "", want: "https://api.openai.com/v1"},
		{name: "base without v1", input: "https://example.com", want: "https://example.com/v1"},
		{name: "base with v1", input: "https://example.com/v1/", want: "https://example.com/v1"},
		{name: "chat completions suffix", input: "https://example.com/v1/chat/completions", want: "https://example.com/v1"},
		{name: "responses suffix", input: "https://example.com/v1/responses", want: "https://example.com/v1"},
		{name: "missing scheme", input: "example.com/api", want: "https://example.com/api/v1"},
		{name: "invalid scheme", input: "ftp://example.com", wantErr: "invalid base_url scheme"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeOpenAIBaseURL(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error contains %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeAnthropicBaseURL(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]string{
		"":                                     "https://api.anthropic.com",
		"https://api.anthropic.com/v1":         "https://api.anthropic.com",
		"https://proxy.example.com/v1/messages": "https://proxy.example.com",
		"proxy.example.com/claude":             "https://proxy.example.com/claude",
	} {
		got, err := normalizeAnthropicBaseURL(input)
		if err != nil {
			t.Fatalf("normalizeAnthropicBaseURL(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("normalizeAnthropicBaseURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRequestInsightDispatchAndWrapping(t *testing.T) {
	origGemini, origOpenAI, origAnthropic := geminiInsightCompletion, openAIInsightCompletion, anthropicInsightCompletion
	defer func() {
		geminiInsightCompletion, openAIInsightCompletion, anthropicInsightCompletion = origGemini, origOpenAI, origAnthropic
	}()

	var called string
	stub := func(name string, err error) func(context.Context, InsightRequest) (RawResponse, error) {
		return func(ctx context.Context, req InsightRequest) (RawResponse, error) {
			called = name
			if req.Model == "" {
				return RawResponse{}, errors.New("model not defaulted")
			}
			if err != nil {
				return RawResponse{}, err
			}
			return RawResponse{Text: "{}"}, nil
		}
	}
	geminiInsightCompletion = stub(ProviderGemini, nil)
	openAIInsightCompletion = stub(ProviderOpenAI, errors.New("status 500"))
	anthropicInsightCompletion = stub(ProviderAnthropic, nil)

	resp, err := requestInsight(context.Background(), InsightRequest{APIKey: "k", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != ProviderGemini || resp.Provider != ProviderGemini || resp.Model != DefaultGeminiModel {
		t.Fatalf("unexpected dispatch: called=%s resp=%+v", called, resp)
	}

	resp, err = requestInsight(context.Background(), InsightRequest{APIKey: "k", Model: "claude-x"})
	if err != nil || called != ProviderAnthropic || resp.Model != "claude-x" {
		t.Fatalf("unexpected anthropic dispatch: called=%s resp=%+v err=%v", called, resp, err)
	}

	_, err = requestInsight(context.Background(), InsightRequest{APIKey: "k", Provider: ProviderOpenAI})
	assertErrorCode(t, err, ErrCodeUpstream)

	called = ""
	_, err = requestInsight(context.Background(), InsightRequest{APIKey: "  "})
	assertErrorCode(t, err, ErrCodeConfiguration)
	if called != "" {
		t.Fatal("no provider may be called without a credential")
	}
}

func TestRequestInsightByGeminiAgainstFakeServer(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if !strings.HasPrefix(r.URL.Path, "/v1beta/models/") || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "gem-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "googleSearch") {
			t.Errorf("request must enable google search: %s", body)
		}
		if !strings.Contains(string(body), "PETR4") {
			t.Errorf("prompt must mention ticker: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "{\"realData\":{\"currentPrice\":38.5}}"}]},
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://a.example", "title": "A"}},
					{"web": {"uri": "https://b.example"}}
				]}
			}],
			"modelVersion": "gemini-test-001"
		}`))
	}))
	defer server.Close()

	resp, err := requestInsightByGemini(context.Background(), InsightRequest{
		BaseURL: server.URL + "/v1beta",
		APIKey:  "gem-key",
		Model:   "gemini-test",
		Prompt:  buildInsightPrompt("PETR4", DefaultLocale()),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"realData":{"currentPrice":38.5}}` {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Model != "gemini-test-001" {
		t.Fatalf("unexpected model: %q", resp.Model)
	}
	if len(resp.GroundingChunks) != 2 || resp.GroundingChunks[0].URI != "https://a.example" || resp.GroundingChunks[1].Title != "" {
		t.Fatalf("unexpected chunks: %+v", resp.GroundingChunks)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly one request, got %d", hits)
	}
}

func TestRequestInsightByOpenAIAgainstFakeServer(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer oa-key" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if _, ok := payload["web_search_options"]; !ok {
			t.Errorf("request must carry web_search_options: %v", payload)
		}
		if payload["temperature"] != 0.1 {
			t.Errorf("unexpected temperature: %v", payload["temperature"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
			"choices": [{
				"index": 0, "finish_reason": "stop", "logprobs": null,
				"message": {
					"role": "assistant", "refusal": null,
					"content": "cotação atual R$ 10,25",
					"annotations": [{"type": "url_citation", "url_citation": {"start_index": 0, "end_index": 5, "title": "B3", "url": "https://b3.example"}}]
				}
			}]
		}`))
	}))
	defer server.Close()

	resp, err := requestInsightByOpenAI(context.Background(), InsightRequest{
		BaseURL: server.URL,
		APIKey:  "oa-key",
		Model:   "gpt-test",
		Prompt:  "p",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "cotação atual R$ 10,25" || resp.Model != "gpt-test" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.GroundingChunks) != 1 || resp.GroundingChunks[0] != (GroundingChunk{Title: "B3", URI: "https://b3.example"}) {
		t.Fatalf("unexpected chunks: %+v", resp.GroundingChunks)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly one request, got %d", hits)
	}
}

func TestRequestInsightByOpenAINoRetryOnServerError(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	_, err := requestInsightByOpenAI(context.Background(), InsightRequest{BaseURL: server.URL, APIKey: "k", Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}
}

func TestRequestInsightByAnthropicAgainstFakeServer(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "an-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("X-Api-Key"))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"web_search"`) {
			t.Errorf("request must enable web_search tool: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 1, "output_tokens": 1},
			"content": [
				{"type": "text", "text": "Segundo a busca, "},
				{"type": "text", "text": "cotação atual R$ 20,00", "citations": [
					{"type": "web_search_result_location", "url": "https://c.example", "title": "C", "cited_text": "20,00", "encrypted_index": "x"}
				]}
			]
		}`))
	}))
	defer server.Close()

	resp, err := requestInsightByAnthropic(context.Background(), InsightRequest{
		BaseURL: server.URL,
		APIKey:  "an-key",
		Model:   "claude-test",
		Prompt:  "p",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Segundo a busca, cotação atual R$ 20,00" || resp.Model != "claude-test" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.GroundingChunks) != 1 || resp.GroundingChunks[0].URI != "https://c.example" {
		t.Fatalf("unexpected chunks: %+v", resp.GroundingChunks)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly one request, got %d", hits)
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildInsightPrompt("VALE3", DefaultLocale())
	for _, want := range []string{"VALE3", "web search", `"currentPrice"`, `"maxPrice"`, `"minPrice"`, "pt-BR"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "maxPrice2Months") {
		t.Fatal("prompt must use the canonical field names")
	}
}
