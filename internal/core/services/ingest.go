package services

import "context"

// VideoProbe is the stream metadata reported by the ingestion service for an
// uploaded video.
type VideoProbe struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Ingestor is the external ingestion pipeline: it receives raw video bytes
// and answers with decoded stream metadata, and serves the first frame as an
// image for thumbnails.
type Ingestor interface {
	Upload(ctx context.Context, hash, filename string, content []byte) (*VideoProbe, error)
	FirstFrame(ctx context.Context, hash string) ([]byte, error)
}
