package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"costbook/pkg/costbook"
)

func TestWriteSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	writeSuccess(rr, map[string]string{"ok": "yes"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("expected code 0, got %d", resp.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["ok"] != "yes" {
		t.Fatalf("unexpected data payload: %v", resp.Data)
	}
}

func TestWriteSuccessWithMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	writeSuccessWithMessage(rr, "done", nil)

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "done" {
		t.Fatalf("expected message %q, got %q", "done", resp.Message)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Run("structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeErrorResponse(rr, nil, http.StatusInternalServerError, costbook.NewError(costbook.ErrCodeNotFound, "missing"))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != string(costbook.ErrCodeNotFound) {
			t.Fatalf("expected error_code %q, got %q", costbook.ErrCodeNotFound, resp.ErrorCode)
		}
		if resp.Code != http.StatusNotFound {
			t.Fatalf("expected body code 404, got %d", resp.Code)
		}
	})

	t.Run("wrapped structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := fmt.Errorf("fold: %w", costbook.NewError(costbook.ErrCodeUnorderedTransaction, "out of order"))
		writeErrorResponse(rr, nil, http.StatusInternalServerError, err)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rr.Code)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeErrorResponse(rr, nil, http.StatusBadRequest, errors.New("bad input"))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code costbook.ErrorCode
		want int
	}{
		{name: "invalid", code: costbook.ErrCodeInvalidInput, want: http.StatusBadRequest},
		{name: "validation", code: costbook.ErrCodeValidation, want: http.StatusBadRequest},
		{name: "not found", code: costbook.ErrCodeNotFound, want: http.StatusNotFound},
		{name: "duplicate", code: costbook.ErrCodeDuplicate, want: http.StatusConflict},
		{name: "unordered", code: costbook.ErrCodeUnorderedTransaction, want: http.StatusUnprocessableEntity},
		{name: "rate", code: costbook.ErrCodeRateNotFound, want: http.StatusUnprocessableEntity},
		{name: "database", code: costbook.ErrCodeDatabase, want: http.StatusInternalServerError},
		{name: "internal", code: costbook.ErrCodeInternal, want: http.StatusInternalServerError},
		{name: "unsupported", code: costbook.ErrCodeUnsupported, want: http.StatusNotImplemented},
		{name: "default", code: costbook.ErrorCode("UNKNOWN"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErrorCodeToHTTPStatus(tt.code)
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
