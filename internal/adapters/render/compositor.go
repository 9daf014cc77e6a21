// Package render composites alpha mattes over decoded frames for the paused
// preview: the matte is scaled to native resolution and blended additively
// at partial opacity so the subject reads through it.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

type Compositor struct {
	// Alpha is the matte opacity in [0,1].
	Alpha float64
}

func NewCompositor() *Compositor {
	return &Compositor{Alpha: 0.6}
}

// Composite draws the matte over the frame at the frame's own resolution and
// returns the result as PNG. The matte is scaled up or down to match, so
// mattes computed at a reduced service resolution still align with native
// coordinates.
func (c *Compositor) Composite(frame, matte []byte) ([]byte, error) {
	frameImg, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	matteImg, _, err := image.Decode(bytes.NewReader(matte))
	if err != nil {
		return nil, fmt.Errorf("decoding matte: %w", err)
	}

	bounds := frameImg.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, frameImg, bounds.Min, draw.Src)

	scaled := image.NewRGBA(bounds)
	xdraw.ApproxBiLinear.Scale(scaled, bounds, matteImg, matteImg.Bounds(), xdraw.Over, nil)

	alpha := uint8(c.Alpha * 255)
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(out, bounds, scaled, bounds.Min, mask, bounds.Min, draw.Over)

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, out); err != nil {
		return nil, fmt.Errorf("encoding composite: %w", err)
	}
	return encoded.Bytes(), nil
}
