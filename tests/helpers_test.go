package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	queuememory "github.com/matting-studio/internal/adapters/queue/memory"
	repomemory "github.com/matting-studio/internal/adapters/repo/memory"
	"github.com/matting-studio/internal/app/studio"
	"github.com/matting-studio/internal/core/services"
)

// fakeIngestor answers every upload with a fixed probe and serves a real
// decodable PNG as the first frame.
type fakeIngestor struct {
	probe   services.VideoProbe
	uploads int
}

func (f *fakeIngestor) Upload(ctx context.Context, hash, filename string, content []byte) (*services.VideoProbe, error) {
	f.uploads++
	probe := f.probe
	return &probe, nil
}

func (f *fakeIngestor) FirstFrame(ctx context.Context, hash string) ([]byte, error) {
	return pngImage(f.probe.Width, f.probe.Height, color.RGBA{R: 30, G: 30, B: 30, A: 255}), nil
}

// fakeMattingClient answers with one white matte per frame of the requested
// range and records the last request it saw.
type fakeMattingClient struct {
	lastRequest services.MattingRequest
	err         error
}

func (f *fakeMattingClient) Submit(ctx context.Context, req services.MattingRequest) (map[int][]byte, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	mattings := make(map[int][]byte)
	for frame := req.Start; frame <= req.Finish; frame++ {
		mattings[frame] = pngImage(64, 36, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return mattings, nil
}

func pngImage(width, height int, fill color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	app     *studio.App
	ingest  *fakeIngestor
	matting *fakeMattingClient
	clock   *services.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := services.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	ingest := &fakeIngestor{
		probe: services.VideoProbe{Width: 1280, Height: 720, FPS: 30, FrameCount: 90},
	}
	matting := &fakeMattingClient{}

	app, err := studio.Wire(studio.Config{ThumbnailWidth: 64}, &studio.WireOptions{
		Clock:         clock,
		Queue:         queuememory.NewInMemoryQueue(clock),
		Store:         repomemory.NewStore(),
		Ingestor:      ingest,
		MattingClient: matting,
	})
	if err != nil {
		t.Fatalf("wiring app: %v", err)
	}
	if err := app.SubscribeAll(context.Background()); err != nil {
		t.Fatalf("subscribing consumers: %v", err)
	}
	return &testEnv{app: app, ingest: ingest, matting: matting, clock: clock}
}

// importVideo uploads content through the HTTP surface and returns the
// created project's uuid.
func (e *testEnv) importVideo(t *testing.T, filename string, content []byte) string {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("building upload form: %v", err)
	}
	part.Write(content)
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	e.app.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("import returned %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		UUID string `json:"uuid"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decoding import response: %v", err)
	}
	return created.UUID
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.app.Handler.ServeHTTP(rec, req)
	return rec
}
