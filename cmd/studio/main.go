package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matting-studio/internal/app/studio"
)

func main() {
	cfg, err := studio.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	app, err := studio.Wire(cfg, nil)
	if err != nil {
		log.Fatalf("wiring app: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.SubscribeAll(ctx); err != nil {
		log.Fatalf("subscribing consumers: %v", err)
	}

	if err := app.Projection.Load(ctx); err != nil {
		log.Fatalf("loading projection: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: app.Handler,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Printf("matting studio listening on :%s (store driver %s)", cfg.Port, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(cfg.QueueTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				app.Queue.Tick(groupCtx)
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("shutdown complete")
}
