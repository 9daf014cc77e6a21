package domain

// Rect is the rendered size of the annotation canvas in display pixels. It
// changes whenever layout resizes the canvas; native resolution does not.
type Rect struct {
	Width  float64
	Height float64
}

// Valid reports whether the rect can be used for coordinate conversion.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}
