package services

import (
	"context"
	"errors"

	"github.com/matting-studio/internal/core/domain"
)

var (
	// ErrNotFound is returned by Get-style calls when no record exists for
	// the given key.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a write transaction aborted on a duplicate key or a
	// failed precondition. The whole operation is a no-op; callers must not
	// assume partial effects.
	ErrConflict = errors.New("transaction aborted")

	// ErrRemote wraps failures of the ingestion or matting services. No
	// local state is mutated when it is returned.
	ErrRemote = errors.New("remote service failure")
)

// ContentStore is the durable, transactional mapping backing the studio:
// video metadata and bytes keyed by content hash, project records keyed by
// uuid. Every multi-step operation executes inside a single transaction so
// no intermediate state is observable.
type ContentStore interface {
	// PutVideoIfAbsent writes the metadata record and the byte blob
	// atomically. If the hash already exists the call is a no-op and
	// added is false.
	PutVideoIfAbsent(ctx context.Context, video *domain.Video, content []byte) (added bool, err error)

	// GetVideo returns the metadata and bytes for a hash, or ErrNotFound.
	GetVideo(ctx context.Context, hash string) (*domain.Video, []byte, error)

	ListProjects(ctx context.Context) ([]*domain.Project, error)

	// PutProject inserts a new record; ErrConflict if the uuid exists.
	PutProject(ctx context.Context, project *domain.Project) error

	// GetProject returns the canonical record for a uuid, or ErrNotFound.
	GetProject(ctx context.Context, uuid string) (*domain.Project, error)

	// UpdateProject reads the record, applies the transform and writes the
	// result back, all inside one transaction. The transform sees the
	// current stored state, never a stale in-memory copy. Returns the
	// record as written, or ErrNotFound if the uuid has no record.
	UpdateProject(ctx context.Context, uuid string, transform func(*domain.Project) error) (*domain.Project, error)

	// DeleteProject removes the record and reports, atomically with the
	// delete, whether any remaining project still references the same
	// video hash.
	DeleteProject(ctx context.Context, uuid string) (videoHash string, lastRef bool, err error)

	// DeleteVideo removes the metadata record and the byte blob.
	DeleteVideo(ctx context.Context, hash string) error
}
