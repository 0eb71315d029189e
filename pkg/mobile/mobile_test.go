package mobile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupMobileCore(t *testing.T, optionsJSON string) (*Core, func()) {
	t.Helper()
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "test.db")
	var (
		core *Core
		err  error
	)
	if optionsJSON == "" {
		core, err = Open(dbPath)
	} else {
		core, err = OpenJSON(strings.Replace(optionsJSON, "$DB", filepath.ToSlash(dbPath), 1))
	}
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cleanup := func() {
		_ = core.Close()
		_ = os.RemoveAll(tmp)
	}
	return core, cleanup
}

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"id": "chatcmpl-m", "object": "chat.completion", "created": 1, "model": "gpt-mobile",
			"choices": []any{map[string]any{
				"index": 0, "finish_reason": "stop", "logprobs": nil,
				"message": map[string]any{"role": "assistant", "refusal": nil, "content": content},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMobileFavoritesAndPresets(t *testing.T) {
	core, cleanup := setupMobileCore(t, "")
	defer cleanup()

	presets, err := core.GetPresetsJSON()
	if err != nil || !strings.HasPrefix(presets, `["PETR4"`) {
		t.Fatalf("GetPresetsJSON: %s, %v", presets, err)
	}

	if got, err := core.GetFavoritesJSON(); err != nil || got != "[]" {
		t.Fatalf("GetFavoritesJSON: %s, %v", got, err)
	}
	if got, err := core.SetFavoritesJSON(`["wege3","PETR4","WEGE3"]`); err != nil || got != `["WEGE3","PETR4"]` {
		t.Fatalf("SetFavoritesJSON: %s, %v", got, err)
	}
	if got, err := core.AddFavorite("itub4"); err != nil || got != `["WEGE3","PETR4","ITUB4"]` {
		t.Fatalf("AddFavorite: %s, %v", got, err)
	}
	if got, err := core.RemoveFavorite("PETR4"); err != nil || got != `["WEGE3","ITUB4"]` {
		t.Fatalf("RemoveFavorite: %s, %v", got, err)
	}

	if _, err := core.SetFavoritesJSON(`not json`); err == nil || !strings.HasPrefix(err.Error(), "INVALID_INPUT: ") {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	_, err = core.AddFavorite("x")
	if err == nil || err.Error() != "VALIDATION_ERROR: Por favor, insira um ticker válido." {
		t.Fatalf("expected localized validation error, got %v", err)
	}
}

func TestMobileSearchAndHistory(t *testing.T) {
	server := newChatServer(t, `{"analysis":"ok","recommendation":"HOLD","riskLevel":"HIGH","realData":{"currentPrice":12.5}}`)
	options := fmt.Sprintf(`{"db_path":"$DB","provider":"openai","base_url":%q,"api_key":"mobile-key","locale":"en-US"}`, server.URL)
	t.Setenv("API_KEY", "")
	t.Setenv("SIMUSTOCK_API_KEY", "")
	core, cleanup := setupMobileCore(t, options)
	defer cleanup()

	resp, err := core.SearchJSON("mglu3", "phone")
	if err != nil {
		t.Fatalf("SearchJSON: %v", err)
	}
	var result struct {
		Ticker  string `json:"ticker"`
		Insight struct {
			RiskLevel string `json:"riskLevel"`
			RealData  struct {
				CurrentPrice float64 `json:"currentPrice"`
				MaxPrice     float64 `json:"maxPrice"`
			} `json:"realData"`
		} `json:"insight"`
	}
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Ticker != "MGLU3" || result.Insight.RiskLevel != "HIGH" || result.Insight.RealData.CurrentPrice != 12.5 {
		t.Fatalf("unexpected result: %s", resp)
	}
	if result.Insight.RealData.MaxPrice != 13.125 {
		t.Fatalf("expected synthesized max price, got %v", result.Insight.RealData.MaxPrice)
	}

	history, err := core.GetInsightHistoryJSON("", 0, false)
	if err != nil {
		t.Fatalf("GetInsightHistoryJSON: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(history), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("unexpected history %s: %v", history, err)
	}
	if entries[0]["ticker"] != "MGLU3" || entries[0]["status"] != "completed" {
		t.Fatalf("unexpected history entry: %v", entries[0])
	}

	_, err = core.SearchJSON("ab", "")
	if err == nil || err.Error() != "VALIDATION_ERROR: Please enter a valid ticker." {
		t.Fatalf("expected english validation error, got %v", err)
	}

	locale, err := core.GetLocaleJSON()
	if err != nil || !strings.Contains(locale, `"name":"en-US"`) {
		t.Fatalf("GetLocaleJSON: %s, %v", locale, err)
	}
}

func TestMobileSearchWithoutCredential(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("SIMUSTOCK_API_KEY", "")
	core, cleanup := setupMobileCore(t, "")
	defer cleanup()

	_, err := core.SearchJSON("PETR4", "")
	if err == nil || !strings.HasPrefix(err.Error(), "CONFIGURATION_ERROR: ") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMobileOpenErrors(t *testing.T) {
	if _, err := OpenJSON(`{`); err == nil {
		t.Fatalf("expected invalid json error")
	}
	if _, err := OpenJSON(`{"db_path":""}`); err == nil {
		t.Fatalf("expected missing db path error")
	}
	if _, err := OpenJSON(fmt.Sprintf(`{"db_path":%q,"locale":"fr-FR"}`, filepath.Join(t.TempDir(), "x.db"))); err == nil {
		t.Fatalf("expected unsupported locale error")
	}

	var nilCore *Core
	if err := nilCore.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
