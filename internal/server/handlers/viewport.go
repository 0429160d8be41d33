// internal/server/handlers/viewport.go

package handlers

import (
	"encoding/json"
	"net/http"

	"mapscout/internal/domain/view"
	"mapscout/internal/service/viewport"
)

// ViewportHandler handles viewport change notifications from map clients
type ViewportHandler struct {
	planner *viewport.Planner
}

// NewViewportHandler creates a new viewport handler
func NewViewportHandler(planner *viewport.Planner) *ViewportHandler {
	return &ViewportHandler{
		planner: planner,
	}
}

// viewportRequest is the POST body for a viewport change
type viewportRequest struct {
	Region     view.ViewportRegion `json:"region"`
	City       string              `json:"city,omitempty"`
	Categories []string            `json:"categories,omitempty"`
}

// ObserveViewport registers a viewport change with the query planner. The
// response is immediate; the planned provider query fires asynchronously
// once the viewport settles.
func (h *ViewportHandler) ObserveViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if !req.Region.IsFinite() {
		respondWithError(w, http.StatusBadRequest, "Region values must be finite", nil)
		return
	}

	h.planner.Observe(req.Region, req.City, req.Categories)

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}
