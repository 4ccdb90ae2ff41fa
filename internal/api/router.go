package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/api/handler"
	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/pkg/alert"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type Router struct {
	claimHandler        *handler.ClaimHandler
	verificationHandler *handler.VerificationHandler
	catalogHandler      *handler.CatalogHandler
	subscriptionHandler *handler.SubscriptionHandler
	entitlementHandler  *handler.EntitlementHandler
	reminderHandler     *handler.ReminderHandler
	websocketHandler    *handler.WebSocketHandler
	entitlementService  *service.EntitlementService
	cfg                 *config.Config
}

func NewRouter(
	claimHandler *handler.ClaimHandler,
	verificationHandler *handler.VerificationHandler,
	catalogHandler *handler.CatalogHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	entitlementHandler *handler.EntitlementHandler,
	reminderHandler *handler.ReminderHandler,
	websocketHandler *handler.WebSocketHandler,
	entitlementService *service.EntitlementService,
	cfg *config.Config,
) *Router {
	return &Router{
		claimHandler:        claimHandler,
		verificationHandler: verificationHandler,
		catalogHandler:      catalogHandler,
		subscriptionHandler: subscriptionHandler,
		entitlementHandler:  entitlementHandler,
		reminderHandler:     reminderHandler,
		websocketHandler:    websocketHandler,
		entitlementService:  entitlementService,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if alert.Enabled() {
		engine.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 套餐目录
		api.GET("/catalog", r.catalogHandler.List)
		api.GET("/catalog/:tier/:duration", r.catalogHandler.Lookup)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.POST("/claims", r.claimHandler.Submit)
			authenticated.GET("/claims", r.claimHandler.ListMine)

			authenticated.GET("/subscription", r.subscriptionHandler.Status)
			authenticated.GET("/subscription/upgrade-quote", r.subscriptionHandler.UpgradeQuote)

			authenticated.GET("/entitlement", r.entitlementHandler.Mine)
			authenticated.POST("/uploads/authorize",
				middleware.UploadGate(r.entitlementService),
				r.entitlementHandler.Authorize,
			)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.AdminOnly(r.cfg))
		{
			admin.GET("/claims", r.claimHandler.AdminList)
			admin.POST("/claims/:id/verify", r.verificationHandler.Verify)
			admin.POST("/claims/:id/reject", r.verificationHandler.Reject)

			admin.POST("/catalog", r.catalogHandler.Create)
			admin.POST("/catalog/:id/deactivate", r.catalogHandler.Deactivate)

			admin.PUT("/subscriptions/:subject_id", r.subscriptionHandler.AdminUpsert)
			admin.PUT("/subscriptions/:subject_id/active", r.subscriptionHandler.SetActive)
			admin.GET("/subjects/:subject_id/entitlement", r.entitlementHandler.ForSubject)

			admin.POST("/reminders/sweep", r.reminderHandler.Sweep)
			admin.GET("/reminders", r.reminderHandler.ListLogs)
		}
	}

	return engine
}
