package simustock

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"
)

// Environment variables holding the AI service credential, in lookup order.
const (
	EnvAPIKey          = "API_KEY"
	EnvSimuStockAPIKey = "SIMUSTOCK_API_KEY"
)

// Options controls Core initialization.
type Options struct {
	DBPath         string
	Logger         *slog.Logger
	Locale         *Locale
	Provider       string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration
	// Credential is consulted on every search. Defaults to EnvCredential("").
	Credential func() string
	// Favorites overrides the SQLite-backed favourites store.
	Favorites FavoritesRepository
}

// Core provides access to SimuStock searches, favourites and history.
type Core struct {
	db         *sql.DB
	logger     *slog.Logger
	locale     *Locale
	normalizer *Normalizer
	tracker    *requestTracker
	favorites  FavoritesRepository
	credential func() string
	provider   string
	model      string
	baseURL    string
	timeout    time.Duration
	dbPath     string
	now        func() time.Time

	favMu       sync.Mutex
	mu          sync.Mutex
	maintenance *cron.Cron
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if !ValidProvider(opts.Provider) {
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locale := opts.Locale
	if locale == nil {
		locale = DefaultLocale()
	}
	credential := opts.Credential
	if credential == nil {
		credential = EnvCredential("")
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	favorites := opts.Favorites
	if favorites == nil {
		favorites = NewSQLiteFavorites(db)
	}

	core := &Core{
		db:         db,
		logger:     logger,
		locale:     locale,
		normalizer: NewNormalizer(locale),
		favorites:  favorites,
		credential: credential,
		provider:   strings.ToLower(strings.TrimSpace(opts.Provider)),
		model:      strings.TrimSpace(opts.Model),
		baseURL:    strings.TrimSpace(opts.BaseURL),
		timeout:    defaultDuration(opts.RequestTimeout, DefaultRequestTimeout),
		dbPath:     cleanPath,
		now:        time.Now,
	}
	core.tracker = newRequestTracker(func() time.Time { return core.now() })
	return core, nil
}

// Close stops maintenance and releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	c.StopMaintenance()
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the logger the core writes to.
func (c *Core) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Provider returns the provider searches are dispatched to.
func (c *Core) Provider() string {
	return resolveProvider(c.provider, c.baseURL, c.model)
}

// Presets returns the quick-pick tickers shown before any search.
func (c *Core) Presets() []Ticker {
	return DefaultPresets()
}

// Locale returns the active locale table.
func (c *Core) Locale() *Locale {
	return c.locale
}

// EnvCredential returns a credential lookup that reads API_KEY, then
// SIMUSTOCK_API_KEY, then fallback. The environment is read on each call.
func EnvCredential(fallback string) func() string {
	return func() string {
		for _, key := range []string{EnvAPIKey, EnvSimuStockAPIKey} {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				return v
			}
		}
		return strings.TrimSpace(fallback)
	}
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
