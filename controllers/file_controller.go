package controllers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"atomrouter/models"
	"atomrouter/services"

	"github.com/gorilla/mux"
)

const fileNotFoundMessage = "Archivo no encontrado"

// FileHandler serves a generated artifact as a download
func (c *Controller) FileHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	f, info, err := c.store.Open(filename)
	if errors.Is(err, services.ErrFileNotFound) {
		slog.Warn("artifact not found", "filename", filename)
		writeJSON(w, models.FileErrorResponse{Error: fileNotFoundMessage})
		return
	}
	if err != nil {
		slog.Error("failed to open artifact", "filename", filename, "error", err)
		writeJSON(w, models.FileErrorResponse{Error: fileNotFoundMessage})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", services.ContentTypeFor(filename))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	slog.Info("serving artifact", "filename", filename, "bytes", info.Size())
	http.ServeContent(w, r, filename, info.ModTime(), f)
}
