// Package thumb scales first-frame images down to project-card thumbnails.
package thumb

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

type Scaler struct {
	quality int
}

func NewScaler() *Scaler {
	return &Scaler{quality: 85}
}

// Thumbnail resizes the image to the given width, preserving aspect ratio,
// and re-encodes it as JPEG.
func (s *Scaler) Thumbnail(image []byte, width int) ([]byte, error) {
	decoded, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("decoding frame image: %w", err)
	}

	resized := imaging.Resize(decoded, width, 0, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, resized, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return out.Bytes(), nil
}
