package services

// Thumbnailer scales a frame image down to a card-sized thumbnail.
type Thumbnailer interface {
	Thumbnail(image []byte, width int) ([]byte, error)
}
