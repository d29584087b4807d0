package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opsstack/incident-rca/internal/config"
	"github.com/opsstack/incident-rca/internal/models"
)

type fakeProcessor struct {
	result  models.PipelineResult
	gotLogs string
}

func (f *fakeProcessor) ProcessIncident(ctx context.Context, logs string) models.PipelineResult {
	f.gotLogs = logs
	return f.result
}

func newTestServer(processor IncidentProcessor) *Server {
	return NewServer(config.ServerConfig{Address: ":0"}, processor, nil)
}

func TestHandleAnalyze(t *testing.T) {
	processor := &fakeProcessor{result: models.PipelineResult{
		Success: true,
		State:   models.PipelineState{Summary: "all clear"},
	}}
	server := newTestServer(processor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents",
		strings.NewReader(`{"logs":"2024-01-01 ERROR it broke"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if processor.gotLogs != "2024-01-01 ERROR it broke" {
		t.Errorf("processor got %q", processor.gotLogs)
	}

	var result models.PipelineResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.State.Summary != "all clear" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleAnalyzeFailedPipelineStillOK(t *testing.T) {
	processor := &fakeProcessor{result: models.PipelineResult{
		Success: false,
		State:   models.PipelineState{Err: "no log content provided"},
	}}
	server := newTestServer(processor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(`{"logs":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, pipeline failures are not transport errors", rec.Code)
	}
}

func TestHandleAnalyzeBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"logs":`},
		{"missing logs", `{}`},
		{"empty logs", `{"logs":""}`},
	}

	server := newTestServer(&fakeProcessor{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want caller id echoed", got)
	}

	// Absent id gets generated.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no X-Request-ID generated")
	}
}
