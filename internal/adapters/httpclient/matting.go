package httpclient

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/matting-studio/internal/core/services"
)

// HTTPMattingClient submits points to the remote matting service and decodes
// the zip archive it answers with: one <frame-index>.<ext> image per matted
// frame.
type HTTPMattingClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPMattingClient(baseURL string, client *http.Client) *HTTPMattingClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMattingClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *HTTPMattingClient) Submit(ctx context.Context, req services.MattingRequest) (map[int][]byte, error) {
	points, err := json.Marshal(req.Points)
	if err != nil {
		return nil, fmt.Errorf("encoding points: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"points": string(points),
		"start":  strconv.Itoa(req.Start),
		"finish": strconv.Itoa(req.Finish),
		"hash":   req.VideoHash,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("building matting form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("building matting form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/matting", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: submitting matting: %v", services.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: matting returned status %d", services.ErrRemote, resp.StatusCode)
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading matting archive: %v", services.ErrRemote, err)
	}
	return DecodeMattingArchive(archive)
}

// DecodeMattingArchive maps each archive entry named <frame-index>.<ext> to
// its image bytes. Entries with non-numeric stems are rejected: a matte
// attributed to the wrong frame is worse than a failed run.
func DecodeMattingArchive(archive []byte) (map[int][]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening matting archive: %w", err)
	}

	mattings := make(map[int][]byte, len(reader.File))
	for _, file := range reader.File {
		stem, _, _ := strings.Cut(file.Name, ".")
		frame, err := strconv.Atoi(stem)
		if err != nil {
			return nil, fmt.Errorf("matting archive entry %q has no frame index", file.Name)
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening archive entry %q: %w", file.Name, err)
		}
		matte, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", file.Name, err)
		}
		mattings[frame] = matte
	}
	return mattings, nil
}
