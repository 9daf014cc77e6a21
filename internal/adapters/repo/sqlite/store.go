// Package sqlite is the default durable ContentStore, an embedded
// single-file database suited to the single-user studio.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matting-studio/internal/adapters/repo/record"
	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

const schema = `
CREATE TABLE IF NOT EXISTS video_info (
	hash        TEXT PRIMARY KEY,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	fps         REAL NOT NULL,
	frame_count INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS video_data (
	hash    TEXT PRIMARY KEY,
	content BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS project (
	uuid       TEXT PRIMARY KEY,
	video_hash TEXT NOT NULL,
	record     BLOB NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// One connection serializes writers; sqlite allows a single writer
	// anyway and this avoids SQLITE_BUSY under concurrent transactions.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutVideoIfAbsent(ctx context.Context, video *domain.Video, content []byte) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM video_info WHERE hash = ?`, video.Hash).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("checking video %s: %w", video.Hash, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO video_info (hash, width, height, fps, frame_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		video.Hash, video.Width, video.Height, video.FPS, video.FrameCount, video.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting video info %s: %w", video.Hash, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO video_data (hash, content) VALUES (?, ?)`, video.Hash, content)
	if err != nil {
		return false, fmt.Errorf("inserting video data %s: %w", video.Hash, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: committing video %s: %v", services.ErrConflict, video.Hash, err)
	}
	return true, nil
}

func (s *Store) GetVideo(ctx context.Context, hash string) (*domain.Video, []byte, error) {
	var video domain.Video
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, width, height, fps, frame_count, created_at FROM video_info WHERE hash = ?`, hash).
		Scan(&video.Hash, &video.Width, &video.Height, &video.FPS, &video.FrameCount, &video.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, services.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading video info %s: %w", hash, err)
	}

	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM video_data WHERE hash = ?`, hash).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, nil, services.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading video data %s: %w", hash, err)
	}
	return &video, content, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM project`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		project, err := record.DecodeProject(data)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *Store) PutProject(ctx context.Context, project *domain.Project) error {
	data, err := record.EncodeProject(project)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM project WHERE uuid = ?`, project.UUID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: project %s already exists", services.ErrConflict, project.UUID)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking project %s: %w", project.UUID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project (uuid, video_hash, record) VALUES (?, ?, ?)`,
		project.UUID, project.VideoHash, data)
	if err != nil {
		return fmt.Errorf("inserting project %s: %w", project.UUID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing project %s: %v", services.ErrConflict, project.UUID, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, uuid string) (*domain.Project, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM project WHERE uuid = ?`, uuid).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", uuid, err)
	}
	return record.DecodeProject(data)
}

func (s *Store) UpdateProject(ctx context.Context, uuid string, transform func(*domain.Project) error) (*domain.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx, `SELECT record FROM project WHERE uuid = ?`, uuid).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", uuid, err)
	}

	project, err := record.DecodeProject(data)
	if err != nil {
		return nil, err
	}
	if err := transform(project); err != nil {
		return nil, err
	}

	updated, err := record.EncodeProject(project)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE project SET video_hash = ?, record = ? WHERE uuid = ?`,
		project.VideoHash, updated, uuid)
	if err != nil {
		return nil, fmt.Errorf("updating project %s: %w", uuid, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing project %s: %v", services.ErrConflict, uuid, err)
	}
	return project, nil
}

func (s *Store) DeleteProject(ctx context.Context, uuid string) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var videoHash string
	err = tx.QueryRowContext(ctx, `SELECT video_hash FROM project WHERE uuid = ?`, uuid).Scan(&videoHash)
	if err == sql.ErrNoRows {
		return "", false, services.ErrNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("loading project %s: %w", uuid, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project WHERE uuid = ?`, uuid); err != nil {
		return "", false, fmt.Errorf("deleting project %s: %w", uuid, err)
	}

	var remaining int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM project WHERE video_hash = ?`, videoHash).Scan(&remaining)
	if err != nil {
		return "", false, fmt.Errorf("counting references to video %s: %w", videoHash, err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("%w: committing delete of %s: %v", services.ErrConflict, uuid, err)
	}
	return videoHash, remaining == 0, nil
}

func (s *Store) DeleteVideo(ctx context.Context, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM video_info WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("deleting video info %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM video_data WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("deleting video data %s: %w", hash, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing delete of video %s: %v", services.ErrConflict, hash, err)
	}
	return nil
}
