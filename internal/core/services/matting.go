package services

import (
	"context"
	"encoding/json"
	"fmt"
)

// MattingRequest is the payload submitted to the remote matting service.
// Points are (x, y) pairs in native coordinates.
type MattingRequest struct {
	VideoHash string
	Points    [][2]int
	Start     int
	Finish    int
}

// MattingClient is the opaque remote matting endpoint. It answers with an
// archive mapping frame index to an alpha-matte image blob.
type MattingClient interface {
	Submit(ctx context.Context, req MattingRequest) (map[int][]byte, error)
}

// MattingJobPayload is the queue message that triggers a matting run for a
// project.
type MattingJobPayload struct {
	ProjectID string `json:"projectID"`
	Start     int    `json:"start"`
	Finish    int    `json:"finish"`
}

// MattingService submits a project's points to the matting service and
// merges the resulting mattes into the project record. A remote failure
// leaves local state untouched.
type MattingService struct {
	store       ContentStore
	annotations *AnnotationService
	projection  *ProjectionStore
	client      MattingClient
}

func NewMattingService(store ContentStore, annotations *AnnotationService, projection *ProjectionStore, client MattingClient) *MattingService {
	return &MattingService{
		store:       store,
		annotations: annotations,
		projection:  projection,
		client:      client,
	}
}

// Run performs one matting round trip for the given project and range.
func (s *MattingService) Run(ctx context.Context, projectID string, start, finish int) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project %s: %w", projectID, err)
	}
	if len(project.Points) == 0 {
		return fmt.Errorf("project %s has no points to submit", projectID)
	}

	video, _, err := s.store.GetVideo(ctx, project.VideoHash)
	if err != nil {
		return fmt.Errorf("loading video %s: %w", project.VideoHash, err)
	}

	points := make([][2]int, 0, len(project.Points))
	for _, pt := range project.Points {
		points = append(points, [2]int{pt.X, pt.Y})
	}

	req := MattingRequest{
		VideoHash: project.VideoHash,
		Points:    points,
		Start:     clamp(start, 0, video.FrameCount-1),
		Finish:    clamp(finish, 0, video.FrameCount-1),
	}

	mattings, err := s.client.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: matting for project %s: %v", ErrRemote, projectID, err)
	}

	if err := s.annotations.SetRange(ctx, projectID, req.Start, req.Finish); err != nil {
		return err
	}
	return s.projection.SetMattings(ctx, projectID, mattings)
}

// MattingConsumer drains matting jobs from the queue, one at a time per
// project key. Failed jobs are retried by the queue.
type MattingConsumer struct {
	service *MattingService
}

func NewMattingConsumer(service *MattingService) *MattingConsumer {
	return &MattingConsumer{service: service}
}

func (c *MattingConsumer) Handle(ctx context.Context, msg Message) error {
	var payload MattingJobPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("parsing matting job payload: %w", err)
	}
	return c.service.Run(ctx, payload.ProjectID, payload.Start, payload.Finish)
}
