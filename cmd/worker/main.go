package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/bootstrap"
	"github.com/qs3c/listing_sub_server/internal/pkg/alert"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/cron"
	"github.com/qs3c/listing_sub_server/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := alert.Init(&cfg.Sentry); err != nil {
		log.Printf("Warning: Failed to init sentry: %v", err)
	}
	defer alert.Flush()

	app, err := bootstrap.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := cron.NewService(
		app.Reminders,
		cfg.Reminder.RunHour,
		cfg.Reminder.Timezone,
		clock.Real{},
	)
	notifier := worker.NewNotifier(app.UserRepo, app.Transport, app.Notices, &cfg.Reminder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		log.Printf("Notifier started, max workers: %d", cfg.Queue.MaxWorkers)
		notifier.Run(gctx, cfg.Queue.MaxWorkers)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Worker stopped with error: %v", err)
	}
	log.Println("Worker shutdown complete")
}
