package domain

// Point is a single annotation placed on one frame. X and Y are always in
// native video-resolution pixels, never in display-scaled units.
type Point struct {
	UUID  string
	Frame int
	X     int
	Y     int
}
