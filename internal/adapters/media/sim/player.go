// Package sim is a deterministic MediaPlayer for tests, the demo and
// headless sessions. The playhead only moves when Advance is called; Run
// drives Advance from a real-time ticker at the video's frame rate.
//
// Events are never delivered synchronously from Play, Pause or Seek: they
// are queued and fired by Flush (or by Advance/Run), which satisfies the
// MediaPlayer delivery contract.
package sim

import (
	"context"
	"math"
	"sync"
	"time"
)

type Player struct {
	mu         sync.Mutex
	fps        float64
	frameCount int
	loaded     bool

	mediaTime float64
	playing   bool

	nextID   uint64
	frameCBs map[uint64]func(float64)
	pauseCBs []func()
	seekCBs  []func(float64)

	queued []func()
}

func NewPlayer() *Player {
	return &Player{frameCBs: make(map[uint64]func(float64))}
}

// Load installs the stream metadata. Until it is called the player reports
// no metadata and the controller treats every operation as a no-op.
func (p *Player) Load(fps float64, frameCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fps = fps
	p.frameCount = frameCount
	p.loaded = true
	p.mediaTime = 0
	p.playing = false
}

func (p *Player) Metadata() (float64, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps, p.frameCount, p.loaded
}

// CurrentTime is the playhead position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mediaTime
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return
	}
	p.playing = true
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.playing = false
	p.queuePauseLocked()
}

func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return
	}
	p.mediaTime = math.Max(0, math.Min(seconds, p.durationLocked()))

	t := p.mediaTime
	cbs := p.seekCBs
	p.seekCBs = nil
	for _, fn := range cbs {
		fn := fn
		p.queued = append(p.queued, func() { fn(t) })
	}
}

func (p *Player) OnFrame(fn func(float64)) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.frameCBs[id] = fn
	return id
}

func (p *Player) CancelFrame(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.frameCBs, id)
}

func (p *Player) OnPause(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseCBs = append(p.pauseCBs, fn)
}

func (p *Player) OnSeeked(fn func(float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekCBs = append(p.seekCBs, fn)
}

// Advance moves the playhead by d when playing and queues one frame
// presentation. Reaching the end of the video pauses, as a media element
// does. Queued events are flushed before Advance returns.
func (p *Player) Advance(d time.Duration) {
	p.mu.Lock()
	if p.playing {
		p.mediaTime += d.Seconds()
		ended := p.mediaTime >= p.durationLocked()
		if ended {
			p.mediaTime = p.durationLocked()
		}
		// Present the final frame before pausing, as a media element does.
		p.queueFramePresentationLocked()
		if ended {
			p.playing = false
			p.queuePauseLocked()
		}
	}
	p.mu.Unlock()

	p.Flush()
}

// Flush delivers queued events until none remain. Callbacks run without the
// player lock held, so they may re-register or issue new player calls.
func (p *Player) Flush() {
	for {
		p.mu.Lock()
		if len(p.queued) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.queued[0]
		p.queued = p.queued[1:]
		p.mu.Unlock()

		fn()
	}
}

// Run drives playback in real time at the frame interval until the context
// is cancelled.
func (p *Player) Run(ctx context.Context) {
	p.mu.Lock()
	fps := p.fps
	p.mu.Unlock()
	if fps <= 0 {
		return
	}

	interval := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Advance(interval)
		}
	}
}

// queueFramePresentationLocked consumes every registered frame callback.
// They fire once each; a continuous chain re-registers from the callback.
func (p *Player) queueFramePresentationLocked() {
	t := p.mediaTime
	for id, fn := range p.frameCBs {
		fn := fn
		delete(p.frameCBs, id)
		p.queued = append(p.queued, func() { fn(t) })
	}
}

func (p *Player) queuePauseLocked() {
	cbs := p.pauseCBs
	p.pauseCBs = nil
	for _, fn := range cbs {
		p.queued = append(p.queued, fn)
	}
}

func (p *Player) durationLocked() float64 {
	if p.fps <= 0 || p.frameCount <= 0 {
		return 0
	}
	return float64(p.frameCount-1) / p.fps
}
