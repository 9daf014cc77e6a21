package domain

import "time"

// FrameRange bounds the frames submitted to the matting service.
type FrameRange struct {
	Start  int
	Finish int
}

// Project is an annotation session over one video. It exclusively owns its
// points and matting results and holds a non-owning reference to the video
// by content hash.
type Project struct {
	UUID         string
	VideoHash    string
	Name         string
	Thumbnail    []byte
	LastAccessed time.Time
	Range        FrameRange
	Points       []Point
	Mattings     map[int][]byte
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing mutable state.
func (p *Project) Clone() *Project {
	out := *p
	if p.Thumbnail != nil {
		out.Thumbnail = append([]byte(nil), p.Thumbnail...)
	}
	if p.Points != nil {
		out.Points = append([]Point(nil), p.Points...)
	}
	if p.Mattings != nil {
		out.Mattings = make(map[int][]byte, len(p.Mattings))
		for frame, matte := range p.Mattings {
			out.Mattings[frame] = append([]byte(nil), matte...)
		}
	}
	return &out
}

// PointsOnFrame reports whether any point annotates the given frame.
func (p *Project) PointsOnFrame(frame int) bool {
	for _, pt := range p.Points {
		if pt.Frame == frame {
			return true
		}
	}
	return false
}
