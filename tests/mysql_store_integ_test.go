package tests

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/matting-studio/internal/adapters/repo/mysql"
	"github.com/matting-studio/internal/core/domain"
	"github.com/matting-studio/internal/core/services"
)

func TestMySQL_StoreContract(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set, skipping integration test")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("connecting to MySQL: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("pinging MySQL: %v", err)
	}

	ctx := context.Background()
	store := mysql.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	hash := "integ-" + time.Now().Format("20060102150405")
	video := &domain.Video{
		Hash:       hash,
		Width:      640,
		Height:     480,
		FPS:        25,
		FrameCount: 100,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	t.Cleanup(func() {
		store.DeleteProject(ctx, "integ-p1")
		store.DeleteVideo(ctx, hash)
	})

	added, err := store.PutVideoIfAbsent(ctx, video, []byte("integ-content"))
	if err != nil || !added {
		t.Fatalf("first put: added=%v err=%v", added, err)
	}
	added, err = store.PutVideoIfAbsent(ctx, video, []byte("other"))
	if err != nil || added {
		t.Fatalf("duplicate put: added=%v err=%v", added, err)
	}

	project := &domain.Project{
		UUID:         "integ-p1",
		VideoHash:    hash,
		Name:         "integ",
		LastAccessed: time.Now().UTC().Truncate(time.Second),
		Range:        domain.FrameRange{Start: 0, Finish: 99},
	}
	if err := store.PutProject(ctx, project); err != nil {
		t.Fatalf("PutProject failed: %v", err)
	}
	if err := store.PutProject(ctx, project); !errors.Is(err, services.ErrConflict) {
		t.Errorf("duplicate project should conflict, got %v", err)
	}

	updated, err := store.UpdateProject(ctx, "integ-p1", func(p *domain.Project) error {
		p.Points = append(p.Points, domain.Point{UUID: "pt1", Frame: 5, X: 10, Y: 20})
		return nil
	})
	if err != nil || len(updated.Points) != 1 {
		t.Fatalf("UpdateProject: points=%d err=%v", len(updated.Points), err)
	}

	got, err := store.GetProject(ctx, "integ-p1")
	if err != nil || len(got.Points) != 1 || got.Points[0].UUID != "pt1" {
		t.Fatalf("GetProject after update: %+v err=%v", got, err)
	}

	videoHash, lastRef, err := store.DeleteProject(ctx, "integ-p1")
	if err != nil || videoHash != hash || !lastRef {
		t.Fatalf("DeleteProject: hash=%q lastRef=%v err=%v", videoHash, lastRef, err)
	}
	if err := store.DeleteVideo(ctx, hash); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}
	if _, _, err := store.GetVideo(ctx, hash); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound after cleanup, got %v", err)
	}
}
