package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matting-studio/internal/core/domain"
)

// Snapshot is the UI-observable projection of the store plus the ephemeral
// playback state. It is immutable: every field holds deep copies.
type Snapshot struct {
	SelectedProject string
	Projects        []*domain.Project
	Videos          map[string]*domain.Video

	CurrentFrame int
	Playing      bool
}

// ProjectionStore keeps the in-memory projection of project and video
// records. It never patches its cache from local knowledge: every mutation
// runs the store operation and then reloads the single canonical record for
// the affected project, so the projection only ever installs store-confirmed
// state (read-your-writes).
//
// Mutations for one project are serialized by a per-project lock; the
// per-operation store transaction alone would not prevent lost updates
// between two logically concurrent UI actions.
type ProjectionStore struct {
	store       ContentStore
	annotations *AnnotationService

	mu       sync.RWMutex
	projects map[string]*domain.Project
	videos   map[string]*domain.Video
	selected string
	frame    int
	playing  bool

	nextSubID uint64
	subs      map[uint64]func(Snapshot)

	locksMu      sync.Mutex
	projectLocks map[string]*sync.Mutex
}

func NewProjectionStore(store ContentStore, annotations *AnnotationService) *ProjectionStore {
	return &ProjectionStore{
		store:        store,
		annotations:  annotations,
		projects:     make(map[string]*domain.Project),
		videos:       make(map[string]*domain.Video),
		subs:         make(map[uint64]func(Snapshot)),
		projectLocks: make(map[string]*sync.Mutex),
	}
}

// Subscribe registers a snapshot consumer and immediately delivers the
// current snapshot. The returned function unsubscribes.
func (p *ProjectionStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = fn
	snap := p.snapshotLocked()
	p.mu.Unlock()

	fn(snap)
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Snapshot returns the current projection state.
func (p *ProjectionStore) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Load populates the projection from the store, as on page reload.
func (p *ProjectionStore) Load(ctx context.Context) error {
	projects, err := p.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	videos := make(map[string]*domain.Video)
	for _, project := range projects {
		if _, ok := videos[project.VideoHash]; ok {
			continue
		}
		video, _, err := p.store.GetVideo(ctx, project.VideoHash)
		if err != nil {
			return fmt.Errorf("loading video %s: %w", project.VideoHash, err)
		}
		videos[project.VideoHash] = video
	}

	p.mu.Lock()
	p.projects = make(map[string]*domain.Project, len(projects))
	for _, project := range projects {
		p.projects[project.UUID] = project
	}
	p.videos = videos
	p.mu.Unlock()

	p.notify()
	return nil
}

// Select switches the active project and resets the ephemeral playback state
// to frame zero, paused. Selecting touches the project's access time.
func (p *ProjectionStore) Select(ctx context.Context, projectID string) error {
	p.mu.Lock()
	p.selected = projectID
	p.frame = 0
	p.playing = false
	p.mu.Unlock()

	if projectID != "" {
		if err := p.mutate(ctx, projectID, func() error {
			return p.annotations.Touch(ctx, projectID)
		}); err != nil {
			return err
		}
	}
	p.notify()
	return nil
}

// SetCurrentFrame publishes a frame observed by the playback controller.
func (p *ProjectionStore) SetCurrentFrame(frame int) {
	p.mu.Lock()
	p.frame = frame
	p.mu.Unlock()
	p.notify()
}

// SetPlaying publishes a playback state transition.
func (p *ProjectionStore) SetPlaying(playing bool) {
	p.mu.Lock()
	p.playing = playing
	p.mu.Unlock()
	p.notify()
}

// Install registers a freshly imported video and project, both already
// store-confirmed by the import pipeline.
func (p *ProjectionStore) Install(video *domain.Video, project *domain.Project) {
	p.mu.Lock()
	p.videos[video.Hash] = video
	p.projects[project.UUID] = project.Clone()
	p.mu.Unlock()
	p.notify()
}

func (p *ProjectionStore) AddPoint(ctx context.Context, projectID string, frame, x, y int) error {
	return p.mutate(ctx, projectID, func() error {
		_, err := p.annotations.AddPoint(ctx, projectID, frame, x, y)
		return err
	})
}

func (p *ProjectionStore) DeletePoint(ctx context.Context, projectID, pointID string) error {
	return p.mutate(ctx, projectID, func() error {
		return p.annotations.DeletePoint(ctx, projectID, pointID)
	})
}

func (p *ProjectionStore) DeleteAllPoints(ctx context.Context, projectID string) error {
	return p.mutate(ctx, projectID, func() error {
		return p.annotations.DeleteAllPoints(ctx, projectID)
	})
}

func (p *ProjectionStore) DeleteFramePoints(ctx context.Context, projectID string, frame int) error {
	return p.mutate(ctx, projectID, func() error {
		return p.annotations.DeleteFramePoints(ctx, projectID, frame)
	})
}

func (p *ProjectionStore) SetMattings(ctx context.Context, projectID string, mattings map[int][]byte) error {
	return p.mutate(ctx, projectID, func() error {
		return p.annotations.SetMattings(ctx, projectID, mattings)
	})
}

func (p *ProjectionStore) Rename(ctx context.Context, projectID, name string) error {
	return p.mutate(ctx, projectID, func() error {
		return p.annotations.Rename(ctx, projectID, name)
	})
}

// DeleteProject removes the project from the store (with cascade cleanup)
// and drops it from the projection. A deleted selected project deselects.
func (p *ProjectionStore) DeleteProject(ctx context.Context, projectID string) error {
	lock := p.projectLock(projectID)
	lock.Lock()
	err := p.annotations.DeleteProject(ctx, projectID)
	lock.Unlock()
	if err != nil {
		return err
	}

	p.mu.Lock()
	project := p.projects[projectID]
	delete(p.projects, projectID)
	if project != nil && !p.hashReferencedLocked(project.VideoHash) {
		delete(p.videos, project.VideoHash)
	}
	if p.selected == projectID {
		p.selected = ""
		p.frame = 0
		p.playing = false
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

// mutate runs a store mutation and then reloads the canonical record,
// replacing the cached copy with the freshly read one. The write completes
// before the read begins.
func (p *ProjectionStore) mutate(ctx context.Context, projectID string, op func() error) error {
	lock := p.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := op(); err != nil {
		return err
	}

	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("reloading project %s: %w", projectID, err)
	}

	p.mu.Lock()
	p.projects[projectID] = project
	p.mu.Unlock()

	p.notify()
	return nil
}

func (p *ProjectionStore) projectLock(projectID string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()
	lock, ok := p.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.projectLocks[projectID] = lock
	}
	return lock
}

func (p *ProjectionStore) hashReferencedLocked(hash string) bool {
	for _, project := range p.projects {
		if project.VideoHash == hash {
			return true
		}
	}
	return false
}

func (p *ProjectionStore) snapshotLocked() Snapshot {
	projects := make([]*domain.Project, 0, len(p.projects))
	for _, project := range p.projects {
		projects = append(projects, project.Clone())
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastAccessed.After(projects[j].LastAccessed)
	})

	videos := make(map[string]*domain.Video, len(p.videos))
	for hash, video := range p.videos {
		copied := *video
		videos[hash] = &copied
	}

	return Snapshot{
		SelectedProject: p.selected,
		Projects:        projects,
		Videos:          videos,
		CurrentFrame:    p.frame,
		Playing:         p.playing,
	}
}

func (p *ProjectionStore) notify() {
	p.mu.RLock()
	snap := p.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}
