package domain

import "time"

// Video is the metadata record for an ingested video. The hash is a SHA-256
// digest of the raw bytes and serves as the dedup key: two imports of
// identical content resolve to a single Video shared by several projects.
type Video struct {
	Hash       string
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	CreatedAt  time.Time
}

// Duration is the playable length in seconds, spanning frames
// [0, FrameCount-1].
func (v *Video) Duration() float64 {
	if v.FPS <= 0 || v.FrameCount <= 0 {
		return 0
	}
	return float64(v.FrameCount-1) / v.FPS
}
