package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/matting-studio/internal/core/domain"
)

// AnnotationService exposes project mutations as record transforms applied
// through ContentStore.UpdateProject. Each operation reads the current record
// and writes the transformed one inside a single transaction, so concurrent
// mutations cannot clobber each other with stale in-memory copies.
type AnnotationService struct {
	store ContentStore
	clock Clock
}

func NewAnnotationService(store ContentStore, clock Clock) *AnnotationService {
	return &AnnotationService{store: store, clock: clock}
}

// AddPoint stores a point in native coordinates. The frame is clamped to the
// video's valid range before it ever reaches storage.
func (s *AnnotationService) AddPoint(ctx context.Context, projectID string, frame, x, y int) (*domain.Point, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	video, _, err := s.store.GetVideo(ctx, project.VideoHash)
	if err != nil {
		return nil, fmt.Errorf("loading video %s: %w", project.VideoHash, err)
	}

	point := domain.Point{
		UUID:  uuid.NewString(),
		Frame: clamp(frame, 0, video.FrameCount-1),
		X:     x,
		Y:     y,
	}

	_, err = s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Points = append(p.Points, point)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding point to project %s: %w", projectID, err)
	}
	return &point, nil
}

func (s *AnnotationService) DeletePoint(ctx context.Context, projectID, pointID string) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		kept := p.Points[:0]
		for _, pt := range p.Points {
			if pt.UUID != pointID {
				kept = append(kept, pt)
			}
		}
		p.Points = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting point %s: %w", pointID, err)
	}
	return nil
}

func (s *AnnotationService) DeleteAllPoints(ctx context.Context, projectID string) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Points = nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting all points of project %s: %w", projectID, err)
	}
	return nil
}

func (s *AnnotationService) DeleteFramePoints(ctx context.Context, projectID string, frame int) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		kept := p.Points[:0]
		for _, pt := range p.Points {
			if pt.Frame != frame {
				kept = append(kept, pt)
			}
		}
		p.Points = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting frame %d points of project %s: %w", frame, projectID, err)
	}
	return nil
}

// SetMattings merges matting results into the project, overwriting any
// previous matte for the same frame.
func (s *AnnotationService) SetMattings(ctx context.Context, projectID string, mattings map[int][]byte) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		if p.Mattings == nil {
			p.Mattings = make(map[int][]byte, len(mattings))
		}
		for frame, matte := range mattings {
			p.Mattings[frame] = matte
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("merging mattings into project %s: %w", projectID, err)
	}
	return nil
}

func (s *AnnotationService) Rename(ctx context.Context, projectID, name string) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Name = name
		return nil
	})
	if err != nil {
		return fmt.Errorf("renaming project %s: %w", projectID, err)
	}
	return nil
}

func (s *AnnotationService) SetRange(ctx context.Context, projectID string, start, finish int) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Range = domain.FrameRange{Start: start, Finish: finish}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting range of project %s: %w", projectID, err)
	}
	return nil
}

// Touch bumps the access timestamp. A missing project is a no-op, not an
// error: the caller may race a delete.
func (s *AnnotationService) Touch(ctx context.Context, projectID string) error {
	_, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.LastAccessed = s.clock.Now()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("touching project %s: %w", projectID, err)
	}
	return nil
}

// DeleteProject removes the record and, when it held the last reference to
// its video, reclaims the video bytes. Cleanup is best effort: orphaned bytes
// are never required for correctness, so a cleanup failure is logged and
// swallowed.
func (s *AnnotationService) DeleteProject(ctx context.Context, projectID string) error {
	videoHash, lastRef, err := s.store.DeleteProject(ctx, projectID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", projectID, err)
	}

	if lastRef {
		if err := s.store.DeleteVideo(ctx, videoHash); err != nil {
			log.Printf("cascade cleanup of video %s failed: %v", videoHash, err)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
