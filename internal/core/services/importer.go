package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matting-studio/internal/core/domain"
)

// ImportService runs the ingestion pipeline for a new video file: hash the
// bytes, upload to the ingestion service for probing, write the video
// dedup-aware, then create a project referencing it.
type ImportService struct {
	store  ContentStore
	ingest Ingestor
	thumbs Thumbnailer
	clock  Clock
	thumbW int
}

func NewImportService(store ContentStore, ingest Ingestor, thumbs Thumbnailer, clock Clock, thumbnailWidth int) *ImportService {
	if thumbnailWidth <= 0 {
		thumbnailWidth = 200
	}
	return &ImportService{
		store:  store,
		ingest: ingest,
		thumbs: thumbs,
		clock:  clock,
		thumbW: thumbnailWidth,
	}
}

// HashContent computes the content address of raw video bytes.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Import ingests one file and returns the (possibly pre-existing) video and
// the newly created project. Importing identical bytes twice yields one
// video record and two projects referencing its hash.
func (s *ImportService) Import(ctx context.Context, filename string, content []byte) (*domain.Video, *domain.Project, error) {
	hash := HashContent(content)

	probe, err := s.ingest.Upload(ctx, hash, filename, content)
	if err != nil {
		return nil, nil, fmt.Errorf("uploading video %s: %w", hash, err)
	}

	video := &domain.Video{
		Hash:       hash,
		Width:      probe.Width,
		Height:     probe.Height,
		FPS:        probe.FPS,
		FrameCount: probe.FrameCount,
		CreatedAt:  s.clock.Now(),
	}

	added, err := s.store.PutVideoIfAbsent(ctx, video, content)
	if err != nil {
		return nil, nil, fmt.Errorf("storing video %s: %w", hash, err)
	}
	if !added {
		// Identical bytes already stored; reuse the canonical record.
		video, _, err = s.store.GetVideo(ctx, hash)
		if err != nil {
			return nil, nil, fmt.Errorf("loading deduplicated video %s: %w", hash, err)
		}
	}

	thumbnail := s.buildThumbnail(ctx, hash)

	project := &domain.Project{
		UUID:         uuid.NewString(),
		VideoHash:    hash,
		Name:         nameFromFilename(filename),
		Thumbnail:    thumbnail,
		LastAccessed: s.clock.Now(),
		Range:        domain.FrameRange{Start: 0, Finish: video.FrameCount - 1},
	}
	if err := s.store.PutProject(ctx, project); err != nil {
		return nil, nil, fmt.Errorf("creating project for video %s: %w", hash, err)
	}

	return video, project, nil
}

// buildThumbnail is best effort: a project without a thumbnail is still
// fully usable.
func (s *ImportService) buildThumbnail(ctx context.Context, hash string) []byte {
	frame, err := s.ingest.FirstFrame(ctx, hash)
	if err != nil {
		log.Printf("fetching first frame of %s: %v", hash, err)
		return nil
	}
	thumbnail, err := s.thumbs.Thumbnail(frame, s.thumbW)
	if err != nil {
		log.Printf("scaling thumbnail of %s: %v", hash, err)
		return nil
	}
	return thumbnail
}

func nameFromFilename(filename string) string {
	base := filepath.Base(filename)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
