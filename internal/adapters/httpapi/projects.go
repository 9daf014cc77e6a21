// Package httpapi is the UI-facing JSON/multipart surface of the studio.
// Handlers delegate to the projection so every response reflects
// store-confirmed state.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

const maxUploadBytes = 1 << 30

type pointView struct {
	UUID  string `json:"uuid"`
	Frame int    `json:"frame"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

type projectView struct {
	UUID         string      `json:"uuid"`
	VideoHash    string      `json:"videoHash"`
	Name         string      `json:"name"`
	LastAccessed time.Time   `json:"lastAccessed"`
	Start        int         `json:"start"`
	Finish       int         `json:"finish"`
	Points       []pointView `json:"points"`
	MattedFrames []int       `json:"mattedFrames"`
}

func viewOf(p *domain.Project) projectView {
	view := projectView{
		UUID:         p.UUID,
		VideoHash:    p.VideoHash,
		Name:         p.Name,
		LastAccessed: p.LastAccessed,
		Start:        p.Range.Start,
		Finish:       p.Range.Finish,
		Points:       []pointView{},
		MattedFrames: []int{},
	}
	for _, pt := range p.Points {
		view.Points = append(view.Points, pointView(pt))
	}
	for frame := range p.Mattings {
		view.MattedFrames = append(view.MattedFrames, frame)
	}
	return view
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrRemote):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ProjectListHandler serves the projection's project list, most recently
// accessed first.
type ProjectListHandler struct {
	projection *services.ProjectionStore
}

func NewProjectListHandler(projection *services.ProjectionStore) *ProjectListHandler {
	return &ProjectListHandler{projection: projection}
}

func (h *ProjectListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.projection.Snapshot()
	views := make([]projectView, 0, len(snap.Projects))
	for _, project := range snap.Projects {
		views = append(views, viewOf(project))
	}
	writeJSON(w, http.StatusOK, views)
}

// ImportHandler ingests an uploaded video file and creates a project for it.
type ImportHandler struct {
	importer   *services.ImportService
	projection *services.ProjectionStore
}

func NewImportHandler(importer *services.ImportService, projection *services.ProjectionStore) *ImportHandler {
	return &ImportHandler{importer: importer, projection: projection}
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "reading upload", http.StatusBadRequest)
		return
	}

	video, project, err := h.importer.Import(r.Context(), header.Filename, content)
	if err != nil {
		writeError(w, err)
		return
	}
	h.projection.Install(video, project)

	writeJSON(w, http.StatusCreated, viewOf(project))
}

// RenameHandler sets the project name.
type RenameHandler struct {
	projection *services.ProjectionStore
}

func NewRenameHandler(projection *services.ProjectionStore) *RenameHandler {
	return &RenameHandler{projection: projection}
}

func (h *RenameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.projection.Rename(r.Context(), r.PathValue("id"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteProjectHandler removes a project; the last project referencing a
// video reclaims its bytes.
type DeleteProjectHandler struct {
	projection *services.ProjectionStore
}

func NewDeleteProjectHandler(projection *services.ProjectionStore) *DeleteProjectHandler {
	return &DeleteProjectHandler{projection: projection}
}

func (h *DeleteProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.projection.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ThumbnailHandler serves the project-card thumbnail.
type ThumbnailHandler struct {
	store services.ContentStore
}

func NewThumbnailHandler(store services.ContentStore) *ThumbnailHandler {
	return &ThumbnailHandler{store: store}
}

func (h *ThumbnailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(project.Thumbnail) == 0 {
		http.Error(w, "no thumbnail", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(project.Thumbnail)
}
