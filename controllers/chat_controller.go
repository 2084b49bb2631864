package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"atomrouter/models"

	"github.com/go-chi/chi/v5/middleware"
)

// ChatHandler classifies and answers one chat message. The response is always
// an envelope with HTTP 200, including for undecodable bodies.
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid chat request body", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, models.ErrorEnvelope("Invalid JSON format: "+err.Error()))
		return
	}

	// A client disconnect must not abort a provider call or a half-written artifact
	ctx := context.WithoutCancel(r.Context())

	envelope := c.router.Route(ctx, req.Message, req.IsUsingChatGPT)
	writeJSON(w, envelope)
}
