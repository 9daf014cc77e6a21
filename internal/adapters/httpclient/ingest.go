package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/matting-studio/internal/core/services"
)

// HTTPIngestor talks to the ingestion backend: POST /upload with the hash
// and file, GET /frame/{hash} for the first frame image.
type HTTPIngestor struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPIngestor(baseURL string, client *http.Client) *HTTPIngestor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPIngestor{
		baseURL:    baseURL,
		httpClient: client,
	}
}

type uploadResponse struct {
	FPS        float64 `json:"fps"`
	Resolution [2]int  `json:"resolution"`
	Frames     int     `json:"frames"`
}

func (c *HTTPIngestor) Upload(ctx context.Context, hash, filename string, content []byte) (*services.VideoProbe, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("hash", hash); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: uploading video: %v", services.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upload returned status %d", services.ErrRemote, resp.StatusCode)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding upload response: %v", services.ErrRemote, err)
	}
	return &services.VideoProbe{
		Width:      decoded.Resolution[0],
		Height:     decoded.Resolution[1],
		FPS:        decoded.FPS,
		FrameCount: decoded.Frames,
	}, nil
}

func (c *HTTPIngestor) FirstFrame(ctx context.Context, hash string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/frame/"+hash, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching first frame: %v", services.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: first frame returned status %d", services.ErrRemote, resp.StatusCode)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading first frame: %v", services.ErrRemote, err)
	}
	return frame, nil
}
