package services_test

import (
	"testing"
	"time"

	"github.com/matting-studio/internal/adapters/media/sim"
	"github.com/matting-studio/internal/core/services"
)

func newController(t *testing.T, fps float64, frames int) (*sim.Player, *services.PlaybackController, *[]int) {
	t.Helper()
	player := sim.NewPlayer()
	player.Load(fps, frames)

	published := &[]int{}
	controller := services.NewPlaybackController(player, func(frame int) {
		*published = append(*published, frame)
	}, nil)
	return player, controller, published
}

func TestPlayback_FrameTracksMediaTime(t *testing.T) {
	player, controller, _ := newController(t, 30, 90)

	controller.TogglePlay()
	if !controller.Playing() {
		t.Fatal("controller should be playing")
	}

	for i := 0; i < 30; i++ {
		player.Advance(time.Second / 30)
	}

	// frame = round(time * fps) stays within one frame of the playhead.
	got := controller.CurrentFrame()
	if got < 29 || got > 31 {
		t.Errorf("after 1s at 30fps expected frame near 30, got %d", got)
	}
}

func TestPlayback_PauseCancelsCallbackChain(t *testing.T) {
	player, controller, published := newController(t, 30, 90)

	controller.TogglePlay()
	player.Advance(time.Second / 30)
	controller.TogglePlay()

	if controller.Playing() {
		t.Fatal("controller should be paused")
	}
	before := len(*published)

	// A stale frame presentation after the pause must publish nothing.
	player.Play()
	player.Advance(time.Second / 30)
	if len(*published) != before {
		t.Errorf("stale callback published after pause: %v", (*published)[before:])
	}
}

func TestPlayback_GotoFrameClampsToRange(t *testing.T) {
	player, controller, _ := newController(t, 30, 90)

	controller.GotoFrame(150)
	player.Flush()
	if got := controller.CurrentFrame(); got != 89 {
		t.Errorf("gotoFrame(150) should clamp to 89, got %d", got)
	}

	controller.GotoFrame(-5)
	player.Flush()
	if got := controller.CurrentFrame(); got != 0 {
		t.Errorf("gotoFrame(-5) should clamp to 0, got %d", got)
	}
}

func TestPlayback_GotoFrameIdempotent(t *testing.T) {
	player, controller, published := newController(t, 30, 90)

	controller.GotoFrame(10)
	player.Flush()
	controller.GotoFrame(10)
	player.Flush()

	if len(*published) != 1 {
		t.Errorf("expected exactly one frame notification, got %v", *published)
	}
}

func TestPlayback_StepFromZeroClampsWithNoEvent(t *testing.T) {
	player, controller, published := newController(t, 30, 90)

	controller.Step(-1)
	player.Flush()

	if got := controller.CurrentFrame(); got != 0 {
		t.Errorf("step(-1) from frame 0 should stay at 0, got %d", got)
	}
	if len(*published) != 0 {
		t.Errorf("clamped no-op step should emit no event, got %v", *published)
	}
}

func TestPlayback_StepWhilePlayingPausesFirst(t *testing.T) {
	player, controller, _ := newController(t, 30, 90)

	controller.TogglePlay()
	for i := 0; i < 10; i++ {
		player.Advance(time.Second / 30)
	}

	controller.Step(1)
	player.Flush()

	if controller.Playing() {
		t.Error("step while playing should transition to paused")
	}
	if got := controller.CurrentFrame(); got != 11 {
		t.Errorf("expected frame 11 after step from 10, got %d", got)
	}
}

func TestPlayback_PauseNotificationCanReadControllerState(t *testing.T) {
	player := sim.NewPlayer()
	player.Load(30, 90)

	var states []bool
	var controller *services.PlaybackController
	controller = services.NewPlaybackController(player, nil, func(playing bool) {
		states = append(states, playing)
		// Subscribers read the controller back from the notification.
		if controller.Playing() != playing {
			t.Errorf("state during notification: Playing()=%v, notified %v",
				controller.Playing(), playing)
		}
	})

	controller.TogglePlay()
	controller.TogglePlay()

	want := []bool{true, false}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("expected play then pause notifications, got %v", states)
	}
}

func TestPlayback_StepPauseNotificationCanReadControllerState(t *testing.T) {
	player := sim.NewPlayer()
	player.Load(30, 90)

	var controller *services.PlaybackController
	paused := false
	controller = services.NewPlaybackController(player, nil, func(playing bool) {
		if !playing {
			paused = true
			if controller.Playing() {
				t.Error("controller should already report paused from the notification")
			}
		}
	})

	controller.TogglePlay()
	for i := 0; i < 5; i++ {
		player.Advance(time.Second / 30)
	}
	controller.Step(1)
	player.Flush()

	if !paused {
		t.Error("step while playing should emit a pause notification")
	}
}

func TestPlayback_SeekTimeRoundTripsToFrame(t *testing.T) {
	for _, frame := range []int{1, 29, 30, 59, 88, 89} {
		player, controller, _ := newController(t, 30, 90)
		controller.GotoFrame(frame)
		player.Flush()
		if got := controller.CurrentFrame(); got != frame {
			t.Errorf("seek to frame %d read back %d", frame, got)
		}
	}
}

func TestPlayback_NoMetadataMeansNoOps(t *testing.T) {
	player := sim.NewPlayer() // Load never called

	var published []int
	controller := services.NewPlaybackController(player, func(frame int) {
		published = append(published, frame)
	}, nil)

	controller.TogglePlay()
	controller.GotoFrame(10)
	controller.Step(1)
	player.Flush()

	if controller.Playing() || len(published) != 0 {
		t.Errorf("operations before metadata should be no-ops (playing=%v, published=%v)",
			controller.Playing(), published)
	}
}

func TestPlayback_AutoPauseAtEndOfVideo(t *testing.T) {
	player, controller, _ := newController(t, 30, 10)

	controller.TogglePlay()
	for i := 0; i < 20; i++ {
		player.Advance(time.Second / 30)
	}

	if controller.Playing() {
		t.Error("controller should observe the player's end-of-video pause")
	}
	if got := controller.CurrentFrame(); got != 9 {
		t.Errorf("expected final frame 9, got %d", got)
	}
}
