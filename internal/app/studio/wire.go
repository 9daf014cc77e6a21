package studio

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/go-sql-driver/mysql"

	"github.com/matting-studio/internal/adapters/httpapi"
	"github.com/matting-studio/internal/adapters/httpclient"
	queuememory "github.com/matting-studio/internal/adapters/queue/memory"
	repomemory "github.com/matting-studio/internal/adapters/repo/memory"
	"github.com/matting-studio/internal/adapters/repo/mysql"
	"github.com/matting-studio/internal/adapters/repo/sqlite"
	"github.com/matting-studio/internal/adapters/render"
	"github.com/matting-studio/internal/adapters/thumb"
	"github.com/matting-studio/internal/core/services"
)

type TickableQueue interface {
	services.Queue
	Tick(ctx context.Context) (delivered int, requeued int)
	Process(ctx context.Context) int
	PendingCount() int
}

type App struct {
	Handler         http.Handler
	Queue           TickableQueue
	Clock           services.Clock
	Store           services.ContentStore
	Annotations     *services.AnnotationService
	Projection      *services.ProjectionStore
	Importer        *services.ImportService
	Matting         *services.MattingService
	MattingConsumer *services.MattingConsumer

	closer func() error
}

// WireOptions override individual ports; nil fields take the config-driven
// default. Tests use them to substitute memory adapters and fakes.
type WireOptions struct {
	Clock         services.Clock
	Queue         TickableQueue
	Store         services.ContentStore
	Ingestor      services.Ingestor
	MattingClient services.MattingClient
	Thumbnailer   services.Thumbnailer
}

func Wire(cfg Config, opts *WireOptions) (*App, error) {
	var clock services.Clock
	var queue TickableQueue
	var store services.ContentStore
	var ingestor services.Ingestor
	var mattingClient services.MattingClient
	var thumbnailer services.Thumbnailer
	closer := func() error { return nil }

	if opts != nil && opts.Clock != nil {
		clock = opts.Clock
	} else {
		clock = services.RealClock{}
	}

	if opts != nil && opts.Queue != nil {
		queue = opts.Queue
	} else {
		queue = queuememory.NewInMemoryQueue(clock)
	}

	if opts != nil && opts.Store != nil {
		store = opts.Store
	} else {
		var err error
		store, closer, err = openStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	if opts != nil && opts.Ingestor != nil {
		ingestor = opts.Ingestor
	} else {
		ingestor = httpclient.NewHTTPIngestor(cfg.IngestBaseURL, nil)
	}

	if opts != nil && opts.MattingClient != nil {
		mattingClient = opts.MattingClient
	} else {
		mattingClient = httpclient.NewHTTPMattingClient(cfg.MattingBaseURL, nil)
	}

	if opts != nil && opts.Thumbnailer != nil {
		thumbnailer = opts.Thumbnailer
	} else {
		thumbnailer = thumb.NewScaler()
	}

	annotations := services.NewAnnotationService(store, clock)
	projection := services.NewProjectionStore(store, annotations)
	importer := services.NewImportService(store, ingestor, thumbnailer, clock, cfg.ThumbnailWidth)
	matting := services.NewMattingService(store, annotations, projection, mattingClient)
	mattingConsumer := services.NewMattingConsumer(matting)
	compositor := render.NewCompositor()

	mux := http.NewServeMux()
	mux.Handle("GET /v1/projects", httpapi.NewProjectListHandler(projection))
	mux.Handle("POST /v1/projects/import", httpapi.NewImportHandler(importer, projection))
	mux.Handle("POST /v1/projects/{id}/name", httpapi.NewRenameHandler(projection))
	mux.Handle("DELETE /v1/projects/{id}", httpapi.NewDeleteProjectHandler(projection))
	mux.Handle("GET /v1/projects/{id}/thumbnail", httpapi.NewThumbnailHandler(store))
	mux.Handle("POST /v1/projects/{id}/points", httpapi.NewAddPointHandler(projection))
	mux.Handle("DELETE /v1/projects/{id}/points/{pointID}", httpapi.NewDeletePointHandler(projection))
	mux.Handle("DELETE /v1/projects/{id}/points", httpapi.NewDeletePointsHandler(projection))
	mux.Handle("POST /v1/projects/{id}/matting", httpapi.NewMattingJobHandler(queue))
	mux.Handle("GET /v1/projects/{id}/mattes/{frame}", httpapi.NewMatteHandler(store))
	mux.Handle("GET /v1/projects/{id}/preview/{frame}", httpapi.NewPreviewHandler(store, ingestor, compositor))

	return &App{
		Handler:         mux,
		Queue:           queue,
		Clock:           clock,
		Store:           store,
		Annotations:     annotations,
		Projection:      projection,
		Importer:        importer,
		Matting:         matting,
		MattingConsumer: mattingConsumer,
		closer:          closer,
	}, nil
}

// SubscribeAll attaches the background consumers to the queue.
func (a *App) SubscribeAll(ctx context.Context) error {
	if err := a.Queue.Subscribe(ctx, "studio:matting", "matting", "", a.MattingConsumer.Handle); err != nil {
		return err
	}
	return nil
}

func (a *App) Close() error {
	return a.closer()
}

func openStore(cfg Config) (services.ContentStore, func() error, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening mysql: %w", err)
		}
		store := mysql.NewStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	case "memory":
		return repomemory.NewStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
