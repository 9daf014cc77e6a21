package services

import (
	"errors"
	"math"
	"sync"

	"github.com/matting-studio/internal/core/domain"
)

// ErrNoDisplayRect means no canvas rect has been observed yet, so no
// coordinate conversion (and hence no annotation placement) may proceed.
var ErrNoDisplayRect = errors.New("display rect not observed yet")

// OverlayMapper converts between display space, the rendered pixel rect of
// the canvas, and native space, the video's fixed resolution. Native space is
// the durable unit for point coordinates, which keeps annotations
// pixel-accurate however layout scales the canvas.
type OverlayMapper struct {
	mu      sync.RWMutex
	nativeW int
	nativeH int
	display domain.Rect
}

func NewOverlayMapper(nativeWidth, nativeHeight int) *OverlayMapper {
	return &OverlayMapper{nativeW: nativeWidth, nativeH: nativeHeight}
}

// SetDisplayRect installs the currently observed canvas rect. Call it again
// on every resize observation.
func (m *OverlayMapper) SetDisplayRect(r domain.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.display = r
}

// ToNative converts a display-space click position to native coordinates.
func (m *OverlayMapper) ToNative(displayX, displayY float64) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.display.Valid() {
		return 0, 0, ErrNoDisplayRect
	}
	x := int(math.Round(displayX * float64(m.nativeW) / m.display.Width))
	y := int(math.Round(displayY * float64(m.nativeH) / m.display.Height))
	return x, y, nil
}

// ToDisplay is the inverse of ToNative for rendering stored points onto the
// current canvas.
func (m *OverlayMapper) ToDisplay(nativeX, nativeY int) (float64, float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.display.Valid() {
		return 0, 0, ErrNoDisplayRect
	}
	dx := float64(nativeX) * m.display.Width / float64(m.nativeW)
	dy := float64(nativeY) * m.display.Height / float64(m.nativeH)
	return dx, dy, nil
}
