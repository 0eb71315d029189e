package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"simustock/internal/api"
	"simustock/internal/config"
	"simustock/internal/logging"
	"simustock/pkg/simustock"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

// onListen is called with the bound address once the server accepts
// connections.
var onListen = func(string) {}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		slog.Error("server exited with error", "err", err)
		exit(1)
	}
}

type serverFlags struct {
	dataDir    string
	port       int
	host       string
	webDir     string
	configPath string
	logLevel   string
}

func parseFlags(args []string, output io.Writer) (serverFlags, error) {
	var f serverFlags
	fs := flag.NewFlagSet("simustock", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.dataDir, "data-dir", "", "Directory for storing database, logs and application data")
	fs.IntVar(&f.port, "port", 8000, "Port to run the server on")
	fs.StringVar(&f.host, "host", "127.0.0.1", "Host to bind the server to")
	fs.StringVar(&f.webDir, "web-dir", "", "Directory for SPA static files (optional)")
	fs.StringVar(&f.configPath, "config", "", "Path to config.yaml (optional)")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return serverFlags{}, err
	}
	return f, nil
}

func run(ctx context.Context, args []string, output io.Writer) error {
	flags, err := parseFlags(args, output)
	if err != nil {
		return err
	}

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env file", "err", err)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	if flags.dataDir != "" {
		config.SetRuntimeDataDir(flags.dataDir)
	}
	config.SetRuntimePort(flags.port)

	resolvedDataDir, err := config.GetDataDir(cfg)
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}
	level, ok := logging.ParseLevel(flags.logLevel)
	if !ok {
		return fmt.Errorf("invalid log level: %s", flags.logLevel)
	}
	logger, writer, err := logging.NewLogger(filepath.Join(resolvedDataDir, "logs"), level)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()
	if cfg.Path != "" {
		logger.Info("config loaded", "path", cfg.Path)
	}

	dbPath, err := config.GetDBPath(cfg)
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}
	locale, err := loadLocale(cfg)
	if err != nil {
		return err
	}

	core, err := simustock.OpenWithOptions(simustock.Options{
		DBPath:         dbPath,
		Logger:         logger,
		Locale:         locale,
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Credential:     simustock.EnvCredential(cfg.APIKey),
	})
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	if strings.TrimSpace(simustock.EnvCredential(cfg.APIKey)()) == "" {
		logger.Warn("no API key configured; searches will fail until API_KEY is set")
	}
	if retention := cfg.HistoryRetention(); retention > 0 {
		if err := core.StartMaintenance(cfg.MaintenanceSchedule, retention); err != nil {
			return err
		}
	}

	if os.Getenv("SIMUSTOCK_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	webDir := flags.webDir
	if webDir == "" {
		webDir = cfg.WebDir
	}
	handler := api.NewRouter(core, api.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		Logger:           logger,
		DataDir:          resolvedDataDir,
		ExposeRawHistory: cfg.ExposeRawHistory,
	})
	if resolvedWebDir := resolveWebDir(webDir); resolvedWebDir != "" {
		logger.Info("serving SPA", "web_dir", resolvedWebDir)
		handler = api.WithSPA(handler, resolvedWebDir)
	}

	return serve(ctx, logger, fmt.Sprintf("%s:%d", flags.host, flags.port), handler, cfg.RequestTimeout)
}

func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler, requestTimeout time.Duration) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	// Searches can take up to the upstream timeout; leave room to write the reply.
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", listener.Addr().String())
	onListen(listener.Addr().String())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	return nil
}

func loadLocale(cfg config.Config) (*simustock.Locale, error) {
	if strings.TrimSpace(cfg.LocaleFile) != "" {
		locale, err := simustock.LoadLocaleFile(cfg.LocaleFile)
		if err != nil {
			return nil, fmt.Errorf("load locale file: %w", err)
		}
		return locale, nil
	}
	return simustock.LookupLocale(cfg.Locale)
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}

func resolveWebDir(input string) string {
	if input != "" {
		if dirExists(input) {
			return input
		}
		return ""
	}

	candidates := []string{"web/dist", "static", "../static"}
	for _, candidate := range candidates {
		if dirExists(candidate) {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, candidate := range candidates {
			path := filepath.Join(base, candidate)
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
