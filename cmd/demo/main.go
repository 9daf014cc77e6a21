// Command demo walks the full annotation flow end to end against in-memory
// adapters: import, frame-accurate playback with a simulated player, point
// placement through the overlay mapper, a matting round trip and cascade
// delete.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/matting-studio/internal/adapters/media/sim"
	queuememory "github.com/matting-studio/internal/adapters/queue/memory"
	repomemory "github.com/matting-studio/internal/adapters/repo/memory"
	"github.com/matting-studio/internal/adapters/render"
	"github.com/matting-studio/internal/app/studio"
	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
)

type fakeIngestor struct {
	frame []byte
}

func (f *fakeIngestor) Upload(ctx context.Context, hash, filename string, content []byte) (*services.VideoProbe, error) {
	return &services.VideoProbe{Width: 1280, Height: 720, FPS: 30, FrameCount: 90}, nil
}

func (f *fakeIngestor) FirstFrame(ctx context.Context, hash string) ([]byte, error) {
	return f.frame, nil
}

type fakeMattingClient struct {
	matte []byte
}

func (f *fakeMattingClient) Submit(ctx context.Context, req services.MattingRequest) (map[int][]byte, error) {
	mattings := make(map[int][]byte)
	for frame := req.Start; frame <= req.Finish; frame++ {
		mattings[frame] = f.matte
	}
	return mattings, nil
}

func encodePNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func header(text string) {
	fmt.Printf("\n%s%s== %s ==%s\n", colorBold, colorCyan, text, colorReset)
}

func ok(format string, args ...any) {
	fmt.Printf("%s  ✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
}

func main() {
	ctx := context.Background()
	clock := services.NewFakeClock(time.Now())
	queue := queuememory.NewInMemoryQueue(clock)

	app, err := studio.Wire(studio.Config{ThumbnailWidth: 100}, &studio.WireOptions{
		Clock:         clock,
		Queue:         queue,
		Store:         repomemory.NewStore(),
		Ingestor:      &fakeIngestor{frame: encodePNG(1280, 720, color.RGBA{R: 40, G: 80, B: 120, A: 255})},
		MattingClient: &fakeMattingClient{matte: encodePNG(768, 432, color.RGBA{R: 255, A: 255})},
	})
	if err != nil {
		fmt.Printf("wiring failed: %v\n", err)
		os.Exit(1)
	}
	app.SubscribeAll(ctx)

	header("IMPORT")
	content := []byte("synthetic-video-bytes")
	video, project, err := app.Importer.Import(ctx, "skater.mp4", content)
	if err != nil {
		fmt.Printf("import failed: %v\n", err)
		os.Exit(1)
	}
	app.Projection.Install(video, project)
	ok("imported %s as project %q (%dx%d, %.0f fps, %d frames)",
		video.Hash[:12], project.Name, video.Width, video.Height, video.FPS, video.FrameCount)

	_, second, _ := app.Importer.Import(ctx, "skater-copy.mp4", content)
	ok("re-importing identical bytes reused video %s for project %s", second.VideoHash[:12], second.UUID[:8])

	header("PLAYBACK")
	player := sim.NewPlayer()
	player.Load(video.FPS, video.FrameCount)
	controller := services.NewPlaybackController(player,
		app.Projection.SetCurrentFrame, app.Projection.SetPlaying)

	app.Projection.Select(ctx, project.UUID)
	controller.TogglePlay()
	for i := 0; i < 45; i++ {
		player.Advance(time.Second / 30)
	}
	controller.TogglePlay()
	ok("played 45 frame intervals, now paused on frame %d", controller.CurrentFrame())

	controller.GotoFrame(150)
	player.Flush()
	ok("gotoFrame(150) clamped to frame %d", controller.CurrentFrame())

	controller.Step(-1)
	player.Flush()
	ok("stepped back to frame %d", controller.CurrentFrame())

	header("ANNOTATION")
	mapper := services.NewOverlayMapper(video.Width, video.Height)
	mapper.SetDisplayRect(domain.Rect{Width: 640, Height: 360})
	x, y, _ := mapper.ToNative(100, 50)
	frame := controller.CurrentFrame()
	app.Projection.AddPoint(ctx, project.UUID, frame, x, y)
	snap := app.Projection.Snapshot()
	ok("display click (100,50) stored as native (%d,%d) on frame %d", x, y, frame)
	ok("projection reloaded canonical record: %d point(s)", len(snap.Projects[0].Points))

	header("MATTING")
	app.Matting.Run(ctx, project.UUID, frame, frame+5)
	reloaded, _ := app.Store.GetProject(ctx, project.UUID)
	ok("matting merged %d mattes into the project", len(reloaded.Mattings))

	compositor := render.NewCompositor()
	frameImage := encodePNG(1280, 720, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	composite, err := compositor.Composite(frameImage, reloaded.Mattings[frame])
	if err != nil {
		fmt.Printf("compositing failed: %v\n", err)
		os.Exit(1)
	}
	ok("composited matte preview for frame %d (%d bytes)", frame, len(composite))

	header("CASCADE DELETE")
	app.Projection.DeleteProject(ctx, second.UUID)
	if _, _, err := app.Store.GetVideo(ctx, video.Hash); err == nil {
		ok("sibling project deleted, video retained")
	}
	app.Projection.DeleteProject(ctx, project.UUID)
	if _, _, err := app.Store.GetVideo(ctx, video.Hash); err != nil {
		ok("last project deleted, video bytes reclaimed")
	}

	fmt.Println()
}
