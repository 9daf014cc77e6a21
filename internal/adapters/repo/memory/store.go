package memory

import (
	"context"
	"sync"

	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

type videoRecord struct {
	video   domain.Video
	content []byte
}

// Store is an in-memory ContentStore for tests and the demo. The mutex
// stands in for the transaction boundary of the durable adapters: every
// multi-step operation holds it for its whole read-check-write span.
type Store struct {
	mu       sync.RWMutex
	videos   map[string]*videoRecord
	projects map[string]*domain.Project
}

func NewStore() *Store {
	return &Store{
		videos:   make(map[string]*videoRecord),
		projects: make(map[string]*domain.Project),
	}
}

func (s *Store) PutVideoIfAbsent(ctx context.Context, video *domain.Video, content []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.videos[video.Hash]; exists {
		return false, nil
	}
	s.videos[video.Hash] = &videoRecord{
		video:   *video,
		content: append([]byte(nil), content...),
	}
	return true, nil
}

func (s *Store) GetVideo(ctx context.Context, hash string) (*domain.Video, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.videos[hash]
	if !exists {
		return nil, nil, services.ErrNotFound
	}
	video := rec.video
	return &video, append([]byte(nil), rec.content...), nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Project, 0, len(s.projects))
	for _, project := range s.projects {
		out = append(out, project.Clone())
	}
	return out, nil
}

func (s *Store) PutProject(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.UUID]; exists {
		return services.ErrConflict
	}
	s.projects[project.UUID] = project.Clone()
	return nil
}

func (s *Store) GetProject(ctx context.Context, uuid string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, exists := s.projects[uuid]
	if !exists {
		return nil, services.ErrNotFound
	}
	return project.Clone(), nil
}

func (s *Store) UpdateProject(ctx context.Context, uuid string, transform func(*domain.Project) error) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.projects[uuid]
	if !exists {
		return nil, services.ErrNotFound
	}
	updated := stored.Clone()
	if err := transform(updated); err != nil {
		return nil, err
	}
	s.projects[uuid] = updated
	return updated.Clone(), nil
}

func (s *Store) DeleteProject(ctx context.Context, uuid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, exists := s.projects[uuid]
	if !exists {
		return "", false, services.ErrNotFound
	}
	delete(s.projects, uuid)

	for _, remaining := range s.projects {
		if remaining.VideoHash == project.VideoHash {
			return project.VideoHash, false, nil
		}
	}
	return project.VideoHash, true, nil
}

func (s *Store) DeleteVideo(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, hash)
	return nil
}
