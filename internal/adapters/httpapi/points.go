package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matting-studio/internal/core/services"
)

// AddPointHandler stores a point annotation. Coordinates arrive already in
// native resolution: the client maps display clicks through its overlay
// mapper before submitting, so durable state never sees display-scaled
// units.
type AddPointHandler struct {
	projection *services.ProjectionStore
}

func NewAddPointHandler(projection *services.ProjectionStore) *AddPointHandler {
	return &AddPointHandler{projection: projection}
}

func (h *AddPointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Frame int `json:"frame"`
		X     int `json:"x"`
		Y     int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.projection.AddPoint(r.Context(), r.PathValue("id"), req.Frame, req.X, req.Y); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DeletePointHandler removes one point by uuid.
type DeletePointHandler struct {
	projection *services.ProjectionStore
}

func NewDeletePointHandler(projection *services.ProjectionStore) *DeletePointHandler {
	return &DeletePointHandler{projection: projection}
}

func (h *DeletePointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.projection.DeletePoint(r.Context(), r.PathValue("id"), r.PathValue("pointID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeletePointsHandler clears points: all of them, or only those on the frame
// given by the ?frame query parameter.
type DeletePointsHandler struct {
	projection *services.ProjectionStore
}

func NewDeletePointsHandler(projection *services.ProjectionStore) *DeletePointsHandler {
	return &DeletePointsHandler{projection: projection}
}

func (h *DeletePointsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if frameParam := r.URL.Query().Get("frame"); frameParam != "" {
		frame, err := strconv.Atoi(frameParam)
		if err != nil {
			http.Error(w, "invalid frame parameter", http.StatusBadRequest)
			return
		}
		if err := h.projection.DeleteFramePoints(r.Context(), projectID, frame); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.projection.DeleteAllPoints(r.Context(), projectID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
