package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedVideo(t *testing.T, store *Store, hash string) *domain.Video {
	t.Helper()
	video := &domain.Video{
		Hash:       hash,
		Width:      1280,
		Height:     720,
		FPS:        29.97,
		FrameCount: 300,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	added, err := store.PutVideoIfAbsent(context.Background(), video, []byte("content-"+hash))
	if err != nil || !added {
		t.Fatalf("seeding video %s: added=%v err=%v", hash, added, err)
	}
	return video
}

func TestSQLite_VideoSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "studio.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	video := &domain.Video{
		Hash:       "abc",
		Width:      640,
		Height:     480,
		FPS:        30,
		FrameCount: 90,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if _, err := store.PutVideoIfAbsent(ctx, video, []byte("bytes")); err != nil {
		t.Fatalf("PutVideoIfAbsent failed: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	got, content, err := reopened.GetVideo(ctx, "abc")
	if err != nil {
		t.Fatalf("GetVideo after reopen failed: %v", err)
	}
	if got.FPS != 30 || got.FrameCount != 90 || string(content) != "bytes" {
		t.Errorf("reopened store returned %+v content=%q", got, content)
	}
}

func TestSQLite_PutVideoIfAbsentDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seedVideo(t, store, "abc")

	added, err := store.PutVideoIfAbsent(ctx, &domain.Video{Hash: "abc", FPS: 60, CreatedAt: time.Now()}, []byte("other"))
	if err != nil || added {
		t.Fatalf("duplicate put: added=%v err=%v", added, err)
	}

	got, content, err := store.GetVideo(ctx, "abc")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got.FPS != 29.97 || string(content) != "content-abc" {
		t.Errorf("duplicate put must not replace the stored record, got fps=%v content=%q", got.FPS, content)
	}
}

func TestSQLite_ProjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	video := seedVideo(t, store, "abc")

	project := &domain.Project{
		UUID:         "p1",
		VideoHash:    video.Hash,
		Name:         "clip",
		LastAccessed: time.Now().UTC().Truncate(time.Second),
		Range:        domain.FrameRange{Start: 10, Finish: 200},
		Points:       []domain.Point{{UUID: "pt1", Frame: 12, X: 100, Y: 50}},
		Mattings:     map[int][]byte{12: []byte("matte")},
	}
	if err := store.PutProject(ctx, project); err != nil {
		t.Fatalf("PutProject failed: %v", err)
	}

	got, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Name != "clip" || got.Range.Finish != 200 {
		t.Errorf("project fields lost: %+v", got)
	}
	if len(got.Points) != 1 || got.Points[0].UUID != "pt1" {
		t.Errorf("points lost: %+v", got.Points)
	}
	if string(got.Mattings[12]) != "matte" {
		t.Errorf("mattes lost: %+v", got.Mattings)
	}

	if err := store.PutProject(ctx, project); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate uuid, got %v", err)
	}
}

func TestSQLite_UpdateProjectPersistsTransform(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	video := seedVideo(t, store, "abc")
	store.PutProject(ctx, &domain.Project{UUID: "p1", VideoHash: video.Hash, Name: "before"})

	updated, err := store.UpdateProject(ctx, "p1", func(p *domain.Project) error {
		p.Name = "after"
		p.Points = append(p.Points, domain.Point{UUID: "pt1", Frame: 3, X: 1, Y: 2})
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if updated.Name != "after" {
		t.Errorf("returned project not transformed: %+v", updated)
	}

	got, _ := store.GetProject(ctx, "p1")
	if got.Name != "after" || len(got.Points) != 1 {
		t.Errorf("transform not persisted: %+v", got)
	}
}

func TestSQLite_DeleteProjectCountsReferencesInTransaction(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	video := seedVideo(t, store, "abc")
	store.PutProject(ctx, &domain.Project{UUID: "p1", VideoHash: video.Hash})
	store.PutProject(ctx, &domain.Project{UUID: "p2", VideoHash: video.Hash})

	hash, lastRef, err := store.DeleteProject(ctx, "p1")
	if err != nil || hash != "abc" || lastRef {
		t.Fatalf("first delete: hash=%q lastRef=%v err=%v", hash, lastRef, err)
	}
	hash, lastRef, err = store.DeleteProject(ctx, "p2")
	if err != nil || hash != "abc" || !lastRef {
		t.Fatalf("second delete: hash=%q lastRef=%v err=%v", hash, lastRef, err)
	}

	if err := store.DeleteVideo(ctx, "abc"); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}
	if _, _, err := store.GetVideo(ctx, "abc"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound after video delete, got %v", err)
	}
}

func TestSQLite_MissingRecordsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.GetProject(ctx, "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("GetProject: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.GetVideo(ctx, "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("GetVideo: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.DeleteProject(ctx, "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("DeleteProject: expected ErrNotFound, got %v", err)
	}
}
