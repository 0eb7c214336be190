package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestNewRouterLogsRequestCompleted(t *testing.T) {
	logger, buf := newBufferLogger()
	router := setupRouterWithLogger(t, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("User-Agent", "costbook-test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	mustStatus(t, rr, http.StatusOK)

	logs := buf.String()
	for _, want := range []string{
		"http request completed",
		"method=GET",
		"path=/api/health",
		"status=200",
		"request_id=",
		"duration_ms=",
		"user_agent=costbook-test-agent",
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %q in logs, got %q", want, logs)
		}
	}
}

func TestNewRouterLogsWarnForBadRequest(t *testing.T) {
	logger, buf := newBufferLogger()
	router := setupRouterWithLogger(t, logger)

	rr := doRequest(router, http.MethodDelete, "/api/transactions/missing", nil)
	mustStatus(t, rr, http.StatusNotFound)

	logs := buf.String()
	if !strings.Contains(logs, "level=WARN") {
		t.Fatalf("expected warn level log, got %q", logs)
	}
	if !strings.Contains(logs, "status=404") {
		t.Fatalf("expected status=404 in log, got %q", logs)
	}
	if !strings.Contains(logs, `error_message="transaction not found"`) {
		t.Fatalf("expected error message in log, got %q", logs)
	}
}

func TestNewRouterRecoversPanicWithStructuredLog(t *testing.T) {
	logger, buf := newBufferLogger()
	oldDefault := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	router := NewRouter(nil)
	rr := doRequest(router, http.MethodGet, "/api/portfolios", nil)
	mustStatus(t, rr, http.StatusInternalServerError)

	body := rr.Body.String()
	if !strings.Contains(body, `"message":"internal server error"`) {
		t.Fatalf("expected structured error response, got %q", body)
	}

	logs := buf.String()
	if !strings.Contains(logs, "panic recovered") {
		t.Fatalf("expected panic recovery log, got %q", logs)
	}
	if !strings.Contains(logs, "level=ERROR") || !strings.Contains(logs, "status=500") {
		t.Fatalf("expected error level access log, got %q", logs)
	}
}

func TestNewRouterUsesCoreLoggerForRequestLogs(t *testing.T) {
	logger, buf := newBufferLogger()
	router := setupRouterWithLogger(t, logger)

	defaultLogger, defaultBuf := newBufferLogger()
	oldDefault := slog.Default()
	slog.SetDefault(defaultLogger)
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	mustStatus(t, doRequest(router, http.MethodGet, "/api/health", nil), http.StatusOK)

	if !strings.Contains(buf.String(), "http request completed") {
		t.Fatalf("expected logs written through core logger, got %q", buf.String())
	}
	if defaultBuf.Len() != 0 {
		t.Fatalf("expected no log written to slog default, got %q", defaultBuf.String())
	}
}
