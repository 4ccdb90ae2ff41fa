package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/api"
	"github.com/qs3c/listing_sub_server/internal/api/handler"
	"github.com/qs3c/listing_sub_server/internal/bootstrap"
	"github.com/qs3c/listing_sub_server/internal/pkg/alert"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load(configPath())
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

	if n, err := app.Catalog.Seed(context.Background()); err != nil {
		log.Printf("Warning: Failed to seed catalog: %v", err)
	} else if n > 0 {
		log.Printf("Catalog seeded with %d packages", n)
	}

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	defer wsHub.Shutdown()

	// 初始化 Handler
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins)
	router := api.NewRouter(
		handler.NewClaimHandler(app.Claims),
		handler.NewVerificationHandler(app.Verification),
		handler.NewCatalogHandler(app.Catalog),
		handler.NewSubscriptionHandler(app.Ledger),
		handler.NewEntitlementHandler(app.Entitlement),
		handler.NewReminderHandler(app.Reminders),
		websocketHandler,
		app.Entitlement,
		cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 订阅事件推送给在线用户
	go func() {
		err := pubsub.NewSubscriber(app.Redis).Subscribe(ctx, websocketHandler.PushEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Event subscriber stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("Server shutdown complete")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
