// internal/api/handler/api/history_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signaledge/internal/api/response"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/storage/history"
)

func TestHistoryHandler_List(t *testing.T) {
	runner := &mockRunner{entries: []history.Entry{
		{RunID: "b", Symbol: "SPY", TotalReturn: 0.12},
		{RunID: "a", Symbol: "SPY", TotalReturn: -0.03},
	}}
	handler := NewHistoryHandler(runner)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest("GET", "/api/v1/history?symbol=SPY&limit=10", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if items := resp.Data.([]any); len(items) != 2 {
		t.Errorf("expected 2 entries, got %d", len(items))
	}
}

func TestHistoryHandler_EmptyIsArray(t *testing.T) {
	handler := NewHistoryHandler(&mockRunner{})

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest("GET", "/api/v1/history", nil))

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if _, ok := resp.Data.([]any); !ok {
		t.Errorf("expected empty array, got %T", resp.Data)
	}
}

func TestHistoryHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		runner *mockRunner
		url    string
		status int
	}{
		{"bad limit", &mockRunner{}, "/api/v1/history?limit=abc", http.StatusBadRequest},
		{"limit too large", &mockRunner{}, "/api/v1/history?limit=100000", http.StatusBadRequest},
		{"not configured", &mockRunner{err: core.WrapError(core.ErrConfigMissing, nil)}, "/api/v1/history", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHistoryHandler(tt.runner).List(w, httptest.NewRequest("GET", tt.url, nil))
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestSourcesHandler_List(t *testing.T) {
	w := httptest.NewRecorder()
	NewSourcesHandler(&mockRunner{}).List(w, httptest.NewRequest("GET", "/api/v1/sources", nil))

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)
	if sources := data["sources"].([]any); len(sources) != 2 {
		t.Errorf("expected 2 sources, got %v", sources)
	}
	params := data["default_params"].(map[string]any)
	if params["sma_period"] != float64(50) {
		t.Errorf("expected default sma_period 50, got %v", params["sma_period"])
	}
}
