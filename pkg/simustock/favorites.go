package simustock

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
)

// FavoritesStorageKey is the fixed key the favourites list is stored under.
const FavoritesStorageKey = "simustock_favorites"

// FavoritesRepository persists the ordered favourites list. The list has no
// schema version; Save replaces it wholesale.
type FavoritesRepository interface {
	Load(ctx context.Context) ([]Ticker, error)
	Save(ctx context.Context, tickers []Ticker) error
}

// SQLiteFavorites stores the list as a JSON array in kv_store.
type SQLiteFavorites struct {
	db *sql.DB
}

// NewSQLiteFavorites returns a repository over an initialized database.
func NewSQLiteFavorites(db *sql.DB) *SQLiteFavorites {
	return &SQLiteFavorites{db: db}
}

// Load returns the stored list, or an empty list when nothing was saved.
func (r *SQLiteFavorites) Load(ctx context.Context) ([]Ticker, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", FavoritesStorageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []Ticker{}, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to load favorites", err)
	}
	var tickers []Ticker
	if err := json.Unmarshal([]byte(raw), &tickers); err != nil {
		return nil, WrapError(ErrCodeDatabase, "stored favorites are corrupt", err)
	}
	if tickers == nil {
		tickers = []Ticker{}
	}
	return tickers, nil
}

// Save replaces the stored list.
func (r *SQLiteFavorites) Save(ctx context.Context, tickers []Ticker) error {
	if tickers == nil {
		tickers = []Ticker{}
	}
	payload, err := json.Marshal(tickers)
	if err != nil {
		return WrapError(ErrCodeInternal, "failed to encode favorites", err)
	}
	return withTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, FavoritesStorageKey, string(payload))
		if err != nil {
			return WrapError(ErrCodeDatabase, "failed to save favorites", err)
		}
		return nil
	})
}

// MemoryFavorites keeps the list in process memory.
type MemoryFavorites struct {
	mu      sync.Mutex
	tickers []Ticker
}

// NewMemoryFavorites returns an empty in-memory repository.
func NewMemoryFavorites() *MemoryFavorites {
	return &MemoryFavorites{}
}

// Load returns a copy of the stored list.
func (m *MemoryFavorites) Load(_ context.Context) ([]Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Ticker, len(m.tickers))
	copy(out, m.tickers)
	return out, nil
}

// Save replaces the stored list with a copy of tickers.
func (m *MemoryFavorites) Save(_ context.Context, tickers []Ticker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickers = append([]Ticker(nil), tickers...)
	return nil
}

// ListFavorites returns the favourites in insertion order.
func (c *Core) ListFavorites(ctx context.Context) ([]Ticker, error) {
	return c.favorites.Load(ctx)
}

// SetFavorites validates every entry, drops duplicates (first occurrence
// wins) and replaces the stored list.
func (c *Core) SetFavorites(ctx context.Context, raw []string) ([]Ticker, error) {
	tickers := make([]Ticker, 0, len(raw))
	for _, item := range raw {
		ticker, err := ValidateTicker(item)
		if err != nil {
			return nil, err
		}
		tickers = appendUniqueTicker(tickers, ticker)
	}
	c.favMu.Lock()
	defer c.favMu.Unlock()
	if err := c.favorites.Save(ctx, tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// AddFavorite appends raw to the list unless already present.
func (c *Core) AddFavorite(ctx context.Context, raw string) ([]Ticker, error) {
	ticker, err := ValidateTicker(raw)
	if err != nil {
		return nil, err
	}
	c.favMu.Lock()
	defer c.favMu.Unlock()
	current, err := c.favorites.Load(ctx)
	if err != nil {
		return nil, err
	}
	updated := appendUniqueTicker(current, ticker)
	if len(updated) == len(current) {
		return current, nil
	}
	if err := c.favorites.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveFavorite removes raw from the list. Removing an absent ticker is
// not an error.
func (c *Core) RemoveFavorite(ctx context.Context, raw string) ([]Ticker, error) {
	ticker, err := ValidateTicker(raw)
	if err != nil {
		return nil, err
	}
	c.favMu.Lock()
	defer c.favMu.Unlock()
	current, err := c.favorites.Load(ctx)
	if err != nil {
		return nil, err
	}
	updated := make([]Ticker, 0, len(current))
	for _, t := range current {
		if t != ticker {
			updated = append(updated, t)
		}
	}
	if len(updated) == len(current) {
		return current, nil
	}
	if err := c.favorites.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func appendUniqueTicker(list []Ticker, ticker Ticker) []Ticker {
	for _, t := range list {
		if t == ticker {
			return list
		}
	}
	return append(list, ticker)
}
