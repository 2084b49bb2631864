package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"atomrouter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicURL = "http://localhost:8000"

// fakeGenerator records requests and answers with a canned response
type fakeGenerator struct {
	mu       sync.Mutex
	requests []GenerateRequest
	response string
	err      error
	panicMsg string
}

func (f *fakeGenerator) GenerateText(_ context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.response, f.err
}

func (f *fakeGenerator) lastRequest(t *testing.T) GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "generator was not called")
	return f.requests[len(f.requests)-1]
}

func newTestRouter(t *testing.T, gen TextGenerator) (*Router, *ArtifactStore) {
	t.Helper()
	store, err := NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	router := NewRouter(gen, &DocumentRenderer{compress: false}, NewChartRenderer(), store, testPublicURL)
	router.now = func() time.Time { return time.Unix(1700000000, 0) }
	return router, store
}

func TestRouteDocument(t *testing.T) {
	gen := &fakeGenerator{response: "Energía solar\n\nLa energía solar es una fuente renovable."}
	router, store := newTestRouter(t, gen)

	envelope := router.Route(context.Background(), "genera un pdf sobre energía solar", false)

	require.Equal(t, models.EnvelopeFile, envelope.Type, envelope.Response)
	assert.Equal(t, "document_energía_solar_1700000000.pdf", envelope.Filename)
	assert.Equal(t, FileURL(testPublicURL, envelope.Filename), envelope.URL)
	assert.Equal(t, "PDF generado correctamente", envelope.Message)

	data, err := os.ReadFile(filepath.Join(store.Dir(), envelope.Filename))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	req := gen.lastRequest(t)
	assert.Equal(t, "genera un pdf sobre energía solar", req.Prompt, "document prompt is not augmented")
	assert.Equal(t, LanguageRule, req.Instructions)
	assert.False(t, req.Hosted)
}

func TestRouteChart(t *testing.T) {
	gen := &fakeGenerator{response: `{"2021": 100, "2022": 150}`}
	router, store := newTestRouter(t, gen)

	envelope := router.Route(context.Background(), "crea una gráfica de barras de ingresos", false)

	require.Equal(t, models.EnvelopeImage, envelope.Type, envelope.Response)
	assert.Equal(t, "chart_bar_barras_ingresos_1700000000.png", envelope.Filename)
	assert.Equal(t, FileURL(testPublicURL, envelope.Filename), envelope.URL)
	assert.Equal(t, "Gráfica generada correctamente", envelope.Message)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(envelope.ImageData, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(envelope.ImageData, prefix))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())

	stored, err := os.ReadFile(filepath.Join(store.Dir(), envelope.Filename))
	require.NoError(t, err)
	assert.Equal(t, raw, stored, "inline image matches the stored artifact")

	req := gen.lastRequest(t)
	assert.Equal(t, ChartPrompt("crea una gráfica de barras de ingresos"), req.Prompt)
	assert.Contains(t, req.Prompt, "crea una gráfica de barras de ingresos")
	assert.Contains(t, req.Prompt, `{"2020": 50000000`)
	assert.Equal(t, chartInstructions, req.Instructions)
	assert.False(t, req.Hosted)
}

func TestRouteChartWithUnusableDataStillReturnsImage(t *testing.T) {
	gen := &fakeGenerator{response: "No dispongo de esos datos."}
	router, _ := newTestRouter(t, gen)

	envelope := router.Route(context.Background(), "genera una gráfica circular de gastos", false)

	require.Equal(t, models.EnvelopeImage, envelope.Type)
	assert.Equal(t, "chart_pie_gastos_1700000000.png", envelope.Filename)
}

func TestRouteConversation(t *testing.T) {
	gen := &fakeGenerator{response: "¡Hola! ¿En qué puedo ayudarte?"}
	router, store := newTestRouter(t, gen)

	envelope := router.Route(context.Background(), "hola", false)

	assert.Equal(t, models.TextEnvelope("¡Hola! ¿En qué puedo ayudarte?"), envelope)
	assert.False(t, gen.lastRequest(t).Hosted)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "conversation writes no artifact")
}

func TestRouteHostedNeverProducesArtifacts(t *testing.T) {
	gen := &fakeGenerator{response: "Aquí tienes información sobre energía solar."}
	router, store := newTestRouter(t, gen)

	envelope := router.Route(context.Background(), "genera un pdf sobre energía solar", true)

	assert.Equal(t, models.EnvelopeText, envelope.Type)
	req := gen.lastRequest(t)
	assert.True(t, req.Hosted)
	assert.Equal(t, "genera un pdf sobre energía solar", req.Prompt)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRouteProviderFailure(t *testing.T) {
	gen := &fakeGenerator{err: &ProviderError{Provider: "local", Err: context.DeadlineExceeded}}
	router, _ := newTestRouter(t, gen)

	for _, message := range []string{"hola", "genera un pdf de algo", "crea una gráfica de ventas"} {
		envelope := router.Route(context.Background(), message, false)
		assert.Equal(t, models.EnvelopeError, envelope.Type, message)
		assert.NotEmpty(t, envelope.Response, message)
		assert.Contains(t, envelope.Response, "deadline exceeded", message)
	}
}

func TestRouteStorageFailure(t *testing.T) {
	gen := &fakeGenerator{response: "contenido"}
	router, store := newTestRouter(t, gen)
	require.NoError(t, os.RemoveAll(store.Dir()))

	envelope := router.Route(context.Background(), "genera un pdf sobre nada", false)

	assert.Equal(t, models.EnvelopeError, envelope.Type)
	assert.Contains(t, envelope.Response, "failed to render artifact")
}

func TestRoutePanicBecomesErrorEnvelope(t *testing.T) {
	gen := &fakeGenerator{panicMsg: "boom"}
	router, _ := newTestRouter(t, gen)

	var envelope models.Envelope
	require.NotPanics(t, func() {
		envelope = router.Route(context.Background(), "hola", false)
	})
	assert.Equal(t, models.ErrorEnvelope("boom"), envelope)
}

func TestProviderErrorUnwraps(t *testing.T) {
	err := providerErrorf("hosted", "call failed: %w", context.DeadlineExceeded)

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "hosted provider error: call failed: context deadline exceeded", err.Error())
}
