package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/matting-studio/internal/core/services"
)

// MattingJobHandler enqueues a matting run for a project. The run happens on
// the queue processor; the handler answers immediately with 202.
type MattingJobHandler struct {
	queue services.Queue
}

func NewMattingJobHandler(queue services.Queue) *MattingJobHandler {
	return &MattingJobHandler{queue: queue}
}

func (h *MattingJobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	var req struct {
		Start  int `json:"start"`
		Finish int `json:"finish"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(services.MattingJobPayload{
		ProjectID: projectID,
		Start:     req.Start,
		Finish:    req.Finish,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.queue.Publish(r.Context(), services.Message{
		MessageID: uuid.NewString(),
		Topic:     "matting",
		Key:       projectID,
		Payload:   payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// MatteHandler serves the raw alpha matte stored for one frame.
type MatteHandler struct {
	store services.ContentStore
}

func NewMatteHandler(store services.ContentStore) *MatteHandler {
	return &MatteHandler{store: store}
}

func (h *MatteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(r.PathValue("frame"))
	if err != nil {
		http.Error(w, "invalid frame", http.StatusBadRequest)
		return
	}

	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	matte, ok := project.Mattings[frame]
	if !ok {
		http.Error(w, "no matte for frame", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(matte)
}

// Previewer composites a matte over a frame image.
type Previewer interface {
	Composite(frame, matte []byte) ([]byte, error)
}

// PreviewHandler serves the paused-state preview for a frame: the stored
// matte blended over the video's representative frame fetched from the
// ingestion service.
type PreviewHandler struct {
	store      services.ContentStore
	ingest     services.Ingestor
	compositor Previewer
}

func NewPreviewHandler(store services.ContentStore, ingest services.Ingestor, compositor Previewer) *PreviewHandler {
	return &PreviewHandler{store: store, ingest: ingest, compositor: compositor}
}

func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(r.PathValue("frame"))
	if err != nil {
		http.Error(w, "invalid frame", http.StatusBadRequest)
		return
	}

	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	matte, ok := project.Mattings[frame]
	if !ok {
		http.Error(w, "no matte for frame", http.StatusNotFound)
		return
	}

	frameImage, err := h.ingest.FirstFrame(r.Context(), project.VideoHash)
	if err != nil {
		writeError(w, err)
		return
	}

	composite, err := h.compositor.Composite(frameImage, matte)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(composite)
}
