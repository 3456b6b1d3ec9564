package router

import (
	"net/http"
	"time"

	"payrelay/config"
	"payrelay/internal/handler"
	"payrelay/internal/middleware"
	"payrelay/internal/repository"
	"payrelay/internal/service"
	"payrelay/pkg/mollie"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-API-KEY")
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, time.Minute)))

	paymentRepo := repository.NewPaymentRepository(db)
	reconciler := service.NewReconciler(paymentRepo)
	client := mollie.NewClient(mollie.Config{
		APIKey:  cfg.Mollie.APIKey,
		BaseURL: cfg.Mollie.BaseURL,
	})

	paymentHandler := handler.NewPaymentHandler(cfg, client, reconciler, paymentRepo)
	webhookHandler := handler.NewWebhookHandler(client, reconciler)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	payments := r.Group("/payments")
	{
		authed := payments.Group("")
		authed.Use(middleware.APIKeyRequired(cfg.Service.APIKey))
		{
			authed.POST("/create", paymentHandler.Create)
			authed.GET("/status/:mollie_id", paymentHandler.Status)
			authed.GET("", paymentHandler.List)
		}
		// Mollie calls this; there is no shared secret on processor-initiated
		// requests. The follow-up fetch is the trust anchor.
		payments.POST("/webhook", webhookHandler.Handle)
	}

	return r
}
