package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"atomrouter/models"
	"atomrouter/services"
)

// StatusReporter is implemented by services that expose their configuration on /health
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// Controller handles the HTTP surface of the router
type Controller struct {
	router         *services.Router
	store          *services.ArtifactStore
	providers      StatusReporter
	discordService *services.DiscordService
	version        string
	startTime      time.Time
}

// NewController creates a new controller instance. providers and discordService may be nil.
func NewController(router *services.Router, store *services.ArtifactStore, providers StatusReporter, discordService *services.DiscordService, version string) *Controller {
	return &Controller{
		router:         router,
		store:          store,
		providers:      providers,
		discordService: discordService,
		version:        version,
		startTime:      time.Now(),
	}
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	switch {
	case enableDiscord && c.discordService != nil && c.discordService.IsEnabled():
		if err := c.discordService.Start(); err != nil {
			slog.Error("failed to start discord service", "error", err)
			return err
		}
	case enableDiscord:
		slog.Warn("discord service requested but not properly configured (missing DISCORD_BOT_TOKEN)")
	default:
		slog.Info("discord service disabled via command line flag")
	}

	return nil
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

// writeJSON always answers 200; failures are reported in the body
func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResponse{
		Status:    models.StatusHealthy,
		Service:   "atomrouter",
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		FilesDir:  c.store.Dir(),
		Timestamp: time.Now().UTC(),
	}

	if c.providers != nil {
		health.Providers = c.providers.GetStatus()
		if !anyProviderConfigured(health.Providers) {
			health.Status = models.StatusDegraded
		}
	}
	if c.discordService != nil {
		health.Discord = c.discordService.GetStatus()
	}

	writeJSON(w, health)
}

func anyProviderConfigured(providers map[string]interface{}) bool {
	for _, p := range providers {
		if status, ok := p.(map[string]interface{}); ok && status["status"] == "configured" {
			return true
		}
	}
	return false
}
