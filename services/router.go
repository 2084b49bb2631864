package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"atomrouter/models"
)

const (
	documentSuccessMessage = "PDF generado correctamente"
	chartSuccessMessage    = "Gráfica generada correctamente"

	chartInstructions = "Respond with pure JSON only. Do not add explanations, prose or code fences."
)

// chartPromptTemplate wraps the user message so the local provider answers with
// a flat label -> number object
const chartPromptTemplate = `%s

Respond ONLY with a single flat JSON object mapping each label to a numeric value, with no other text.
Example: {"2020": 50000000, "2021": 55000000, "2022": 60000000}`

// Router classifies chat messages and turns them into response envelopes
type Router struct {
	generator TextGenerator
	documents *DocumentRenderer
	charts    *ChartRenderer
	store     *ArtifactStore
	publicURL string
	now       func() time.Time
}

// NewRouter creates a router. publicURL prefixes artifact download links.
func NewRouter(generator TextGenerator, documents *DocumentRenderer, charts *ChartRenderer, store *ArtifactStore, publicURL string) *Router {
	return &Router{
		generator: generator,
		documents: documents,
		charts:    charts,
		store:     store,
		publicURL: publicURL,
		now:       time.Now,
	}
}

// Route handles one message end to end. It never fails: every error, including
// a panic in a renderer, comes back as an error envelope.
func (r *Router) Route(ctx context.Context, message string, useHosted bool) (envelope models.Envelope) {
	intent := ClassifyIntent(message, useHosted)
	routedRequests.WithLabelValues(string(intent.Kind)).Inc()
	slog.Info("routing chat message", "intent", intent.String(), "hosted", useHosted, "chars", len(message))

	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while routing chat message", "intent", intent.String(), "panic", p)
			envelope = models.ErrorEnvelope(fmt.Sprintf("%v", p))
		}
		envelopesReturned.WithLabelValues(string(envelope.Type)).Inc()
	}()

	var err error
	switch intent.Kind {
	case models.IntentDocument:
		envelope, err = r.generateDocument(ctx, message, intent)
	case models.IntentChart:
		envelope, err = r.generateChart(ctx, message, intent)
	default:
		envelope, err = r.converse(ctx, message, useHosted)
	}

	if err != nil {
		slog.Error("chat request failed", "intent", intent.String(), "error", err)
		return models.ErrorEnvelope(err.Error())
	}
	return envelope
}

func (r *Router) converse(ctx context.Context, message string, useHosted bool) (models.Envelope, error) {
	text, err := r.generator.GenerateText(ctx, GenerateRequest{
		Prompt:       message,
		Instructions: LanguageRule,
		Hosted:       useHosted,
	})
	if err != nil {
		return models.Envelope{}, err
	}
	return models.TextEnvelope(text), nil
}

func (r *Router) generateDocument(ctx context.Context, message string, intent models.Intent) (models.Envelope, error) {
	text, err := r.generator.GenerateText(ctx, GenerateRequest{
		Prompt:       message,
		Instructions: LanguageRule,
	})
	if err != nil {
		return models.Envelope{}, err
	}

	data, err := r.documents.Render(text)
	if err != nil {
		return models.Envelope{}, err
	}

	filename, err := r.storeArtifact(intent, message, data)
	if err != nil {
		return models.Envelope{}, err
	}
	return models.FileEnvelope(filename, FileURL(r.publicURL, filename), documentSuccessMessage), nil
}

func (r *Router) generateChart(ctx context.Context, message string, intent models.Intent) (models.Envelope, error) {
	text, err := r.generator.GenerateText(ctx, GenerateRequest{
		Prompt:       ChartPrompt(message),
		Instructions: chartInstructions,
	})
	if err != nil {
		return models.Envelope{}, err
	}

	data, err := r.charts.Render(text, intent.Variant)
	if err != nil {
		return models.Envelope{}, err
	}

	filename, err := r.storeArtifact(intent, message, data)
	if err != nil {
		return models.Envelope{}, err
	}

	imageData := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	return models.ImageEnvelope(filename, imageData, FileURL(r.publicURL, filename), chartSuccessMessage), nil
}

func (r *Router) storeArtifact(intent models.Intent, message string, data []byte) (string, error) {
	filename := ArtifactFilename(intent, message, r.now())
	if err := r.store.Save(filename, data); err != nil {
		return "", err
	}
	artifactsWritten.WithLabelValues(string(intent.Kind)).Inc()
	return filename, nil
}

// ChartPrompt is the prompt sent to the local provider for chart requests
func ChartPrompt(message string) string {
	return fmt.Sprintf(chartPromptTemplate, message)
}
