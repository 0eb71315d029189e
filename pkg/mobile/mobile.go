package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"simustock/pkg/simustock"
)

// Core wraps the SimuStock core for gomobile bindings. Every call takes and
// returns plain strings; errors carry the localized user message prefixed by
// the error code, e.g. "VALIDATION_ERROR: Por favor, insira um ticker válido.".
type Core struct {
	core *simustock.Core
}

// Open initializes the core with a database path. The API key is read from
// the process environment at search time.
func Open(dbPath string) (*Core, error) {
	return open(openPayload{DBPath: dbPath})
}

// OpenJSON initializes the core from a JSON options document:
// {"db_path", "provider", "model", "base_url", "api_key", "locale",
// "request_timeout_seconds"}. A non-empty api_key is used when the
// environment has none.
func OpenJSON(optionsJSON string) (*Core, error) {
	var payload openPayload
	if err := json.Unmarshal([]byte(optionsJSON), &payload); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return open(payload)
}

func open(payload openPayload) (*Core, error) {
	locale, err := simustock.LookupLocale(payload.Locale)
	if err != nil {
		return nil, err
	}
	core, err := simustock.OpenWithOptions(simustock.Options{
		DBPath:         payload.DBPath,
		Locale:         locale,
		Provider:       payload.Provider,
		Model:          payload.Model,
		BaseURL:        payload.BaseURL,
		RequestTimeout: time.Duration(payload.RequestTimeoutSeconds) * time.Second,
		Credential:     simustock.EnvCredential(payload.APIKey),
	})
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// SearchJSON runs a search and returns the SearchResult as JSON. Calls that
// share a session id supersede one another; the older call fails with
// STALE_RESULT.
func (c *Core) SearchJSON(ticker, sessionID string) (string, error) {
	result, err := c.core.Search(context.Background(), simustock.SearchRequest{
		Ticker:    ticker,
		SessionID: sessionID,
	})
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(result)
}

// GetPresetsJSON returns the quick-pick tickers.
func (c *Core) GetPresetsJSON() (string, error) {
	return marshalJSON(c.core.Presets())
}

// GetFavoritesJSON returns the favourites in insertion order.
func (c *Core) GetFavoritesJSON() (string, error) {
	favorites, err := c.core.ListFavorites(context.Background())
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(favorites)
}

// SetFavoritesJSON replaces the favourites from a JSON array of tickers.
func (c *Core) SetFavoritesJSON(tickersJSON string) (string, error) {
	var tickers []string
	if err := json.Unmarshal([]byte(tickersJSON), &tickers); err != nil {
		return "", c.userError(simustock.WrapError(simustock.ErrCodeInvalidInput, "invalid favorites payload", err))
	}
	favorites, err := c.core.SetFavorites(context.Background(), tickers)
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(favorites)
}

// AddFavorite appends a ticker and returns the updated list as JSON.
func (c *Core) AddFavorite(ticker string) (string, error) {
	favorites, err := c.core.AddFavorite(context.Background(), ticker)
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(favorites)
}

// RemoveFavorite removes a ticker and returns the updated list as JSON.
func (c *Core) RemoveFavorite(ticker string) (string, error) {
	favorites, err := c.core.RemoveFavorite(context.Background(), ticker)
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(favorites)
}

// GetInsightHistoryJSON lists recorded searches, newest first. An empty
// ticker lists all of them.
func (c *Core) GetInsightHistoryJSON(ticker string, limit int, includeRaw bool) (string, error) {
	entries, err := c.core.GetInsightHistory(context.Background(), ticker, limit, includeRaw)
	if err != nil {
		return "", c.userError(err)
	}
	return marshalJSON(entries)
}

// GetLocaleJSON returns the active locale table.
func (c *Core) GetLocaleJSON() (string, error) {
	return marshalJSON(c.core.Locale())
}

func (c *Core) userError(err error) error {
	return fmt.Errorf("%s: %s", simustock.CodeOf(err), simustock.UserMessage(err, c.core.Locale()))
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type openPayload struct {
	DBPath                string `json:"db_path"`
	Provider              string `json:"provider"`
	Model                 string `json:"model"`
	BaseURL               string `json:"base_url"`
	APIKey                string `json:"api_key"`
	Locale                string `json:"locale"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}
