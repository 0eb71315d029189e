package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"simustock/pkg/simustock"
)

func TestNewRouterLogsRequestCompleted(t *testing.T) {
	env, cleanup := setupTestRouter(t, "k")
	defer cleanup()

	rr := doRequest(env.router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	logs := env.logs.String()
	for _, want := range []string{"http request completed", "method=GET", "path=/api/health", "status=200", "request_id="} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %q in logs, got %q", want, logs)
		}
	}
}

func TestNewRouterLogsWarnWithErrorDetail(t *testing.T) {
	env, cleanup := setupTestRouter(t, "k")
	defer cleanup()

	rr := doRequest(env.router, http.MethodPost, "/api/insights", searchPayload{Ticker: "AB"}, SessionHeader, "tab-9")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	logs := env.logs.String()
	for _, want := range []string{"level=WARN", "status=400", "session_id=tab-9", "error_message=\"VALIDATION_ERROR: too_short\""} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %q in logs, got %q", want, logs)
		}
	}
}

func TestNewRouterLogsUpstreamDetailButHidesIt(t *testing.T) {
	env, cleanup := setupTestRouter(t, "k")
	defer cleanup()
	env.upstream.reply(http.StatusInternalServerError, "")

	rr := doRequest(env.router, http.MethodPost, "/api/insights", searchPayload{Ticker: "PETR4"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "upstream exploded") {
		t.Fatalf("upstream detail leaked to client: %s", rr.Body.String())
	}
	if !strings.Contains(env.logs.String(), "error_message=") {
		t.Fatalf("expected error detail in logs, got %q", env.logs.String())
	}
}

func TestNewRouterRecoversPanicWithStructuredLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// A router without a core panics on the first handler that touches it.
	router := NewRouter(nil, Options{Logger: logger})
	rr := doRequest(router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	resp := decodeBody[ErrorResponse](t, rr)
	if resp.ErrorCode != string(simustock.ErrCodeInternal) || resp.Message != simustock.DefaultLocale().Messages.Internal {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	logs := buf.String()
	for _, want := range []string{"panic recovered", "request_id=", "level=ERROR", "status=500"} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %q in logs, got %q", want, logs)
		}
	}
}

func TestNewRouterCORSPreflight(t *testing.T) {
	env, cleanup := setupTestRouter(t, "k")
	defer cleanup()

	rr := doRequest(env.router, http.MethodOptions, "/api/insights", nil,
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", SessionHeader,
	)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q (status %d)", got, rr.Code)
	}
}
