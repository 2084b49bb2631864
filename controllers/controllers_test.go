package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atomrouter/models"
	"atomrouter/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	response string
	err      error
}

func (s stubGenerator) GenerateText(context.Context, services.GenerateRequest) (string, error) {
	return s.response, s.err
}

type stubStatus map[string]interface{}

func (s stubStatus) GetStatus() map[string]interface{} { return s }

func newTestController(t *testing.T, gen services.TextGenerator) (*Controller, *services.ArtifactStore) {
	t.Helper()
	store, err := services.NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	router := services.NewRouter(gen, services.NewDocumentRenderer(), services.NewChartRenderer(), store, "http://localhost:8000")
	providers := stubStatus{"local": map[string]interface{}{"status": "configured"}}
	return NewController(router, store, providers, nil, "test"), store
}

func postChat(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var envelope models.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return rec, envelope
}

func TestChatHandlerText(t *testing.T) {
	controller, _ := newTestController(t, stubGenerator{response: "¡Hola!"})

	rec, envelope := postChat(t, controller.Routes(), `{"message": "hola"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, models.TextEnvelope("¡Hola!"), envelope)
}

func TestChatHandlerDocument(t *testing.T) {
	controller, store := newTestController(t, stubGenerator{response: "Informe\n\nContenido del informe."})

	rec, envelope := postChat(t, controller.Routes(), `{"message": "genera un pdf sobre el informe anual"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.EnvelopeFile, envelope.Type, envelope.Response)
	assert.True(t, strings.HasPrefix(envelope.URL, "http://localhost:8000/files/document_informe_anual_"))
	assert.FileExists(t, filepath.Join(store.Dir(), envelope.Filename))
}

func TestChatHandlerErrorsAreStill200(t *testing.T) {
	tests := []struct {
		name string
		gen  services.TextGenerator
		body string
	}{
		{"undecodable body", stubGenerator{}, `{"message": `},
		{"provider timeout", stubGenerator{err: &services.ProviderError{Provider: "local", Err: context.DeadlineExceeded}}, `{"message": "hola"}`},
		{"hosted provider failure", stubGenerator{err: &services.ProviderError{Provider: "hosted", Err: assert.AnError}}, `{"message": "hola", "isUsingChatGPT": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller, _ := newTestController(t, tt.gen)

			rec, envelope := postChat(t, controller.Routes(), tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, models.EnvelopeError, envelope.Type)
			assert.NotEmpty(t, envelope.Response)
		})
	}
}

func TestFileHandlerServesArtifact(t *testing.T) {
	controller, store := newTestController(t, stubGenerator{})
	require.NoError(t, store.Save("document_informe_1700000000.pdf", []byte("%PDF-1.3 fake")))

	req := httptest.NewRequest(http.MethodGet, "/files/document_informe_1700000000.pdf", nil)
	rec := httptest.NewRecorder()
	controller.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=document_informe_1700000000.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 fake", rec.Body.String())
}

func TestFileHandlerPNG(t *testing.T) {
	controller, store := newTestController(t, stubGenerator{})
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "chart_bar_x_1.png"), []byte("png-bytes"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/files/chart_bar_x_1.png", nil)
	rec := httptest.NewRecorder()
	controller.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestFileHandlerMissing(t *testing.T) {
	controller, _ := newTestController(t, stubGenerator{})

	for _, path := range []string{"/files/missing.pdf", "/files/.hidden.png"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		controller.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"error": "Archivo no encontrado"}`, rec.Body.String(), path)
	}
}

func TestHealthHandler(t *testing.T) {
	controller, store := newTestController(t, stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	controller.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.StatusHealthy, health.Status)
	assert.Equal(t, "atomrouter", health.Service)
	assert.Equal(t, store.Dir(), health.FilesDir)
	assert.Contains(t, health.Providers, "local")
}

func TestHealthHandlerDegradedWithoutProviders(t *testing.T) {
	store, err := services.NewArtifactStore(t.TempDir())
	require.NoError(t, err)
	router := services.NewRouter(stubGenerator{}, services.NewDocumentRenderer(), services.NewChartRenderer(), store, "http://localhost:8000")
	controller := NewController(router, store, stubStatus{"local": map[string]interface{}{"status": "unavailable"}}, nil, "test")

	rec := httptest.NewRecorder()
	controller.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.StatusDegraded, health.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	controller, _ := newTestController(t, stubGenerator{response: "ok"})
	postChat(t, controller.Routes(), `{"message": "hola"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	controller.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "atomrouter_requests_total")
}
