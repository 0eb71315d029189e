package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDBName            = "simustock.db"
	DefaultProvider          = "gemini"
	DefaultLocale            = "pt-BR"
	DefaultRequestTimeout    = 90 * time.Second
	DefaultRetentionDays     = 30
	DefaultMaintenanceCron   = "0 3 * * *"
	configFileName           = "config.yaml"
	envConfigPath            = "SIMUSTOCK_CONFIG"
	envDataDir               = "SIMUSTOCK_DATA_DIR"
	envDBPath                = "SIMUSTOCK_DB_PATH"
	envProvider              = "SIMUSTOCK_PROVIDER"
	envModel                 = "SIMUSTOCK_MODEL"
	envBaseURL               = "SIMUSTOCK_BASE_URL"
	envLocale                = "SIMUSTOCK_LOCALE"
	envLocaleFile            = "SIMUSTOCK_LOCALE_FILE"
	envRequestTimeout        = "SIMUSTOCK_REQUEST_TIMEOUT"
	envHistoryRetentionDays  = "SIMUSTOCK_HISTORY_RETENTION_DAYS"
	envMaintenanceSchedule   = "SIMUSTOCK_MAINTENANCE_SCHEDULE"
	envWebDir                = "SIMUSTOCK_WEB_DIR"
	envCORSOrigins           = "SIMUSTOCK_CORS_ORIGINS"
	envExposeRawHistory      = "SIMUSTOCK_EXPOSE_RAW_HISTORY"
	defaultConfigDirName     = "SimuStock"
	defaultConfigDirNameUnix = "simustock"
)

// Config is the server configuration. Zero fields fall back to defaults.
// The API key may live here, but API_KEY / SIMUSTOCK_API_KEY in the
// environment always win and are re-read on every search.
type Config struct {
	DBName               string        `yaml:"db_name"`
	DataDir              string        `yaml:"data_dir"`
	Provider             string        `yaml:"provider"`
	Model                string        `yaml:"model"`
	BaseURL              string        `yaml:"base_url"`
	APIKey               string        `yaml:"api_key"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	Locale               string        `yaml:"locale"`
	LocaleFile           string        `yaml:"locale_file"`
	HistoryRetentionDays int           `yaml:"history_retention_days"`
	MaintenanceSchedule  string        `yaml:"maintenance_schedule"`
	WebDir               string        `yaml:"web_dir"`
	CORSOrigins          []string      `yaml:"cors_origins"`

	// ExposeRawHistory lets /api/insights/history return raw upstream text
	// with include_raw=1. Diagnostic only; off by default.
	ExposeRawHistory bool `yaml:"expose_raw_history"`

	// Path is the file the config was read from, empty when none was found.
	Path string `yaml:"-"`
}

var runtimeDataDir string
var runtimePort = 8000

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", defaultConfigDirName), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, defaultConfigDirName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", defaultConfigDirNameUnix), nil
	}
	return filepath.Join(configDir, defaultConfigDirNameUnix), nil
}

// Defaults returns a config with every field set to its default.
func Defaults() Config {
	return Config{
		DBName:               DefaultDBName,
		Provider:             DefaultProvider,
		Locale:               DefaultLocale,
		RequestTimeout:       DefaultRequestTimeout,
		HistoryRetentionDays: DefaultRetentionDays,
		MaintenanceSchedule:  DefaultMaintenanceCron,
	}
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment. A missing file is not an error; existing variables are kept.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ConfigPath resolves which config file to read: the explicit path, then
// SIMUSTOCK_CONFIG, then config.yaml in the app config dir, then in the
// working directory. It returns "" when none exists.
func ConfigPath(explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if env := strings.TrimSpace(os.Getenv(envConfigPath)); env != "" {
		return env
	}
	if dir, err := appConfigDir(); err == nil {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load builds the effective config: defaults, then the YAML file resolved by
// ConfigPath, then SIMUSTOCK_* environment overrides. An explicit path that
// does not exist is an error; a missing discovered file is not.
func Load(explicit string) (Config, error) {
	cfg := Defaults()
	path := ConfigPath(explicit)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.Path = path
		case os.IsNotExist(err) && strings.TrimSpace(explicit) == "":
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.DataDir, envDataDir)
	setString(&cfg.Provider, envProvider)
	setString(&cfg.Model, envModel)
	setString(&cfg.BaseURL, envBaseURL)
	setString(&cfg.Locale, envLocale)
	setString(&cfg.LocaleFile, envLocaleFile)
	setString(&cfg.MaintenanceSchedule, envMaintenanceSchedule)
	setString(&cfg.WebDir, envWebDir)

	if v := strings.TrimSpace(os.Getenv(envRequestTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envRequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv(envHistoryRetentionDays)); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envHistoryRetentionDays, err)
		}
		cfg.HistoryRetentionDays = days
	}
	if v := strings.TrimSpace(os.Getenv(envExposeRawHistory)); v != "" {
		expose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envExposeRawHistory, err)
		}
		cfg.ExposeRawHistory = expose
	}
	if v := strings.TrimSpace(os.Getenv(envCORSOrigins)); v != "" {
		var origins []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				origins = append(origins, item)
			}
		}
		cfg.CORSOrigins = origins
	}
	return nil
}

func (c *Config) fillDefaults() {
	defaults := Defaults()
	if strings.TrimSpace(c.DBName) == "" {
		c.DBName = defaults.DBName
	}
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = defaults.Provider
	}
	if strings.TrimSpace(c.Locale) == "" {
		c.Locale = defaults.Locale
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if strings.TrimSpace(c.MaintenanceSchedule) == "" {
		c.MaintenanceSchedule = defaults.MaintenanceSchedule
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// HistoryRetention is the age after which history rows are pruned. Zero or
// negative days disables pruning.
func (c Config) HistoryRetention() time.Duration {
	if c.HistoryRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

// Save writes cfg as YAML, creating parent directories. An empty path writes
// to config.yaml in the app config dir.
func Save(cfg Config, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		dir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, configFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o600)
}

// GetDataDir resolves the data directory: --data-dir, SIMUSTOCK_DATA_DIR,
// the config file, then the OS app config dir. The directory is created.
func GetDataDir(cfg Config) (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = os.Getenv(envDataDir)
	}
	if dir == "" {
		dir = cfg.DataDir
	}
	if dir == "" {
		defaultDir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDBPath returns SIMUSTOCK_DB_PATH when set, otherwise the configured DB
// name inside the data dir.
func GetDBPath(cfg Config) (string, error) {
	if envPath := os.Getenv(envDBPath); envPath != "" {
		return envPath, nil
	}
	dataDir, err := GetDataDir(cfg)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(cfg.DBName)
	if name == "" {
		name = DefaultDBName
	}
	return filepath.Join(dataDir, name), nil
}
