package services

import (
	"math"
	"sync"
)

// MediaPlayer abstracts the host media pipeline. Implementations must not
// invoke any registered callback synchronously from within Play, Pause or
// Seek; events are delivered after the initiating call returns.
type MediaPlayer interface {
	Play()
	Pause()
	// Seek moves the playhead to the given media time in seconds. A seeked
	// callback registered via OnSeeked fires once the seek completes.
	Seek(seconds float64)

	// OnFrame registers a frame-presentation callback invoked with the
	// media time of each presented frame. It fires at most once; a
	// continuous chain re-registers from inside the callback.
	OnFrame(fn func(mediaTime float64)) (id uint64)
	CancelFrame(id uint64)

	// OnPause registers a one-shot callback fired when playback stops for
	// any reason, including reaching the end of the video.
	OnPause(fn func())

	// OnSeeked registers a one-shot callback fired when the next seek
	// completes, with the post-seek media time.
	OnSeeked(fn func(mediaTime float64))

	// Metadata reports fps and frame count once the video is loaded.
	// ok is false until then.
	Metadata() (fps float64, frameCount int, ok bool)
}

// PlaybackController owns the mapping between continuous media time and the
// discrete frame index: frame = round(time * fps). It is a two-state machine
// over {paused, playing}; every operation is a no-op until the player reports
// metadata.
//
// Frame-presentation callbacks form a chain: each callback publishes the
// current frame and re-registers itself. Starting playback mints a new
// generation token; pausing or seeking bumps the generation and cancels every
// outstanding callback, so a stale callback can never publish a frame after
// the transition and two chains can never run at once.
type PlaybackController struct {
	mu         sync.Mutex
	player     MediaPlayer
	generation uint64
	pending    []uint64
	playing    bool
	frame      int

	onFrame   func(frame int)
	onPlaying func(playing bool)
}

func NewPlaybackController(player MediaPlayer, onFrame func(int), onPlaying func(bool)) *PlaybackController {
	if onFrame == nil {
		onFrame = func(int) {}
	}
	if onPlaying == nil {
		onPlaying = func(bool) {}
	}
	return &PlaybackController{
		player:    player,
		onFrame:   onFrame,
		onPlaying: onPlaying,
	}
}

// Playing reports the current state.
func (c *PlaybackController) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// CurrentFrame is the last published frame index.
func (c *PlaybackController) CurrentFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// TogglePlay starts playback when paused and pauses when playing.
func (c *PlaybackController) TogglePlay() {
	fps, _, ok := c.player.Metadata()
	if !ok || fps <= 0 {
		return
	}

	c.mu.Lock()
	if c.playing {
		c.pauseLocked()
		c.mu.Unlock()
		c.onPlaying(false)
		return
	}

	gen := c.beginGenerationLocked()
	c.playing = true
	c.registerFrameChainLocked(gen, fps)
	c.mu.Unlock()

	c.player.OnPause(func() {
		c.mu.Lock()
		if c.playing {
			c.cancelPendingLocked()
			c.playing = false
			c.mu.Unlock()
			c.onPlaying(false)
			return
		}
		c.mu.Unlock()
	})
	c.player.Play()
	c.onPlaying(true)
}

// Step moves one or more frames while paused; if playing it pauses first.
// The target is clamped to [0, frameCount-1] and an unchanged target is a
// no-op with no event emitted.
func (c *PlaybackController) Step(delta int) {
	_, _, ok := c.player.Metadata()
	if !ok {
		return
	}

	c.mu.Lock()
	wasPlaying := c.playing
	if wasPlaying {
		c.pauseLocked()
	}
	target := c.frame + delta
	c.mu.Unlock()

	if wasPlaying {
		c.onPlaying(false)
	}
	c.GotoFrame(target)
}

// GotoFrame seeks to a frame. Idempotent: a target equal to the current
// frame is ignored.
func (c *PlaybackController) GotoFrame(frame int) {
	fps, frameCount, ok := c.player.Metadata()
	if !ok || fps <= 0 || frameCount <= 0 {
		return
	}

	c.mu.Lock()
	target := clamp(frame, 0, frameCount-1)
	if target == c.frame {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.player.OnSeeked(func(mediaTime float64) {
		c.publishTime(mediaTime, fps)
	})
	c.player.Seek(float64(target) / fps)
}

// pauseLocked transitions to paused and cancels the whole callback chain so
// nothing stale can publish after the transition. Callers emit the
// onPlaying(false) notification after releasing the lock; a subscriber may
// re-enter the controller from it.
func (c *PlaybackController) pauseLocked() {
	c.cancelPendingLocked()
	c.playing = false
	c.player.Pause()
}

// beginGenerationLocked invalidates every outstanding callback and returns
// the token for the next chain.
func (c *PlaybackController) beginGenerationLocked() uint64 {
	c.cancelPendingLocked()
	return c.generation
}

func (c *PlaybackController) cancelPendingLocked() {
	c.generation++
	for _, id := range c.pending {
		c.player.CancelFrame(id)
	}
	c.pending = c.pending[:0]
}

func (c *PlaybackController) registerFrameChainLocked(gen uint64, fps float64) {
	id := c.player.OnFrame(func(mediaTime float64) {
		c.mu.Lock()
		if gen != c.generation {
			// Stale chain; do not publish, do not re-register.
			c.mu.Unlock()
			return
		}
		c.registerFrameChainLocked(gen, fps)
		c.mu.Unlock()
		c.publishTime(mediaTime, fps)
	})
	// One chain per generation: the fired callback is consumed, so the new
	// id replaces it rather than accumulating.
	c.pending = append(c.pending[:0], id)
}

func (c *PlaybackController) publishTime(mediaTime, fps float64) {
	frame := int(math.Round(mediaTime * fps))

	c.mu.Lock()
	if frame == c.frame {
		c.mu.Unlock()
		return
	}
	c.frame = frame
	c.mu.Unlock()
	c.onFrame(frame)
}
