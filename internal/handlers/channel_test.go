package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"download-sink/internal/channel"
	"download-sink/internal/metrics"
	"download-sink/internal/models"
	"download-sink/internal/registry"
	"download-sink/internal/sink"
)

const invokePath = "/channels/com.aryan.payhive/saveToDownloads/saveToDownloads"

func setupTestRouter(t *testing.T, s sink.DownloadSink) *mux.Router {
	reg := prometheus.NewRegistry()
	ch := channel.NewDownloads(s, metrics.New(reg))
	return NewRouter(NewChannelHandler(ch), NewDownloadsHandler(s), reg)
}

func setupDirectRouter(t *testing.T) (*mux.Router, string) {
	root := t.TempDir()
	s, err := sink.NewDirectFileSink(root, "PayHive")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	return setupTestRouter(t, s), root
}

func invokeBody(filename string, content []byte) *bytes.Buffer {
	data, _ := json.Marshal(models.SaveArguments{Bytes: content, Filename: filename})
	return bytes.NewBuffer(data)
}

func TestChannelHandler_Save(t *testing.T) {
	router, root := setupDirectRouter(t)

	testContent := []byte("%PDF-1.4 statement")
	req := httptest.NewRequest("POST", invokePath, invokeBody("statement.pdf", testContent))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v, body %s", status, http.StatusOK, rr.Body.String())
	}

	var response models.ChannelResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Success {
		t.Errorf("Expected success=true, got %v", response.Success)
	}

	expectedPath := filepath.Join(root, "PayHive", "statement.pdf")
	if response.Result != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, response.Result)
	}

	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(data, testContent) {
		t.Errorf("Expected %q, got %q", testContent, data)
	}
}

func TestChannelHandler_NotImplemented(t *testing.T) {
	router, _ := setupDirectRouter(t)

	req := httptest.NewRequest("POST", "/channels/com.aryan.payhive/saveToDownloads/shareFile", invokeBody("a.pdf", []byte("a")))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotImplemented {
		t.Fatalf("Expected status %d, got %d", http.StatusNotImplemented, status)
	}

	var response models.NotImplementedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.NotImplemented || response.Method != "shareFile" {
		t.Errorf("Unexpected response %+v", response)
	}
}

func TestChannelHandler_UnknownChannel(t *testing.T) {
	router, _ := setupDirectRouter(t)

	req := httptest.NewRequest("POST", "/channels/com.other/app/saveToDownloads", invokeBody("a.pdf", []byte("a")))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, status)
	}
}

func TestChannelHandler_InvalidArguments(t *testing.T) {
	router, _ := setupDirectRouter(t)

	for name, body := range map[string]string{
		"empty":            "",
		"not json":         "bytes=abc",
		"missing bytes":    `{"filename":"a.pdf"}`,
		"missing filename": `{"bytes":"YQ=="}`,
		"wrong type":       `{"bytes":42,"filename":"a.pdf"}`,
	} {
		req := httptest.NewRequest("POST", invokePath, bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", name, http.StatusBadRequest, status)
			continue
		}
		var response models.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("%s: failed to unmarshal response: %v", name, err)
		}
		if response.Error != channel.CodeInvalidArgument {
			t.Errorf("%s: expected code %s, got %s", name, channel.CodeInvalidArgument, response.Error)
		}
	}
}

func TestChannelHandler_SaveFailed(t *testing.T) {
	reg := &registry.MockRegistry{
		InsertFunc: func(ctx context.Context, values registry.Values) (string, error) {
			return "", errors.New("permission revoked")
		},
	}
	router := setupTestRouter(t, sink.NewRegistrySink(reg, ""))

	req := httptest.NewRequest("POST", invokePath, invokeBody("a.pdf", []byte("a")))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, status)
	}
	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Error != channel.CodeSaveFailed {
		t.Errorf("Expected code %s, got %s", channel.CodeSaveFailed, response.Error)
	}
	if response.Message == "" {
		t.Error("Expected a non-empty message")
	}
}

func TestChannelHandler_WrongMethod(t *testing.T) {
	handler := NewChannelHandler(channel.NewDownloads(&sink.MockSink{}, nil))

	req := httptest.NewRequest("GET", invokePath, nil)
	rr := httptest.NewRecorder()

	handler.HandleInvoke(rr, req)

	if status := rr.Code; status != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, status)
	}
}

func TestChannelHandler_BodyErrors(t *testing.T) {
	router, _ := setupDirectRouter(t)

	tests := []struct {
		name   string
		body   io.Reader
		status int
	}{
		{"broken body", iotest.ErrReader(errors.New("connection reset")), http.StatusBadRequest},
		{"oversized body", bytes.NewReader(make([]byte, channel.MaxArgumentsSize+1)), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", invokePath, tt.body)
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestDownloadsHandler_RoundTrip(t *testing.T) {
	s := sink.NewRegistrySink(registry.NewMemory(), "")
	router := setupTestRouter(t, s)

	testContent := []byte("%PDF-1.7 registry")
	req := httptest.NewRequest("POST", invokePath, invokeBody("receipt.pdf", testContent))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Save returned %d: %s", rr.Code, rr.Body.String())
	}
	var saved models.ChannelResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	req = httptest.NewRequest("GET", "/downloads?location="+url.QueryEscape(saved.Result), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, status, rr.Body.String())
	}
	if !bytes.Equal(rr.Body.Bytes(), testContent) {
		t.Errorf("Expected %q, got %q", testContent, rr.Body.Bytes())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected Content-Type application/pdf, got %s", ct)
	}
	if strategy := rr.Header().Get("X-Sink-Strategy"); strategy != "registry" {
		t.Errorf("Expected X-Sink-Strategy registry, got %s", strategy)
	}
}

func TestDownloadsHandler_Errors(t *testing.T) {
	router, root := setupDirectRouter(t)

	tests := []struct {
		location string
		want     int
	}{
		{location: "", want: http.StatusBadRequest},
		{location: filepath.Join(root, "elsewhere.pdf"), want: http.StatusBadRequest},
		{location: filepath.Join(root, "PayHive", "missing.pdf"), want: http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/downloads?location="+url.QueryEscape(tt.location), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != tt.want {
			t.Errorf("location %q: expected status %d, got %d", tt.location, tt.want, rr.Code)
		}
	}
}

func TestDownloadsHandler_HandleHealth(t *testing.T) {
	handler := NewDownloadsHandler(&sink.MockSink{StrategyName: sink.StrategyDirect})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	handler.HandleHealth(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", response["status"])
	}
	if response["strategy"] != "direct" {
		t.Errorf("Expected strategy 'direct', got %s", response["strategy"])
	}
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := setupDirectRouter(t)

	req := httptest.NewRequest("POST", invokePath, invokeBody("m.pdf", []byte("m")))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("download_sink_saves_total")) {
		t.Error("Expected download_sink_saves_total in metrics output")
	}
}
