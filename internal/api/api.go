package api

import (
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/api/handlers"
	"github.com/andresuchdata/stockcount/internal/api/middleware"
	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/notify"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/andresuchdata/stockcount/internal/storage"
	"github.com/andresuchdata/stockcount/pkg/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Items      *service.ItemService
	Schedule   *service.ScheduleService
	Recounts   *service.RecountService
	Orders     *service.OrderService
	Dashboard  *service.DashboardService
	Alerts     *service.AlertRecorder
	Dispatcher *notify.Dispatcher
	Archive    storage.ObjectStorage
}

type Options struct {
	AllowedOrigins []string
	Auth           auth.Config
	Now            service.Clock
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	apiGroup := router.Group("/api/v1")
	apiGroup.Use(middleware.Auth(opts.Auth))

	counts := handlers.NewCountHandler(services.Schedule, services.Recounts, services.Dashboard, now)
	apiGroup.GET("/checklist", counts.GetChecklist)
	apiGroup.POST("/recounts", counts.SubmitRecounts)
	apiGroup.GET("/progress", counts.GetProgress)

	items := handlers.NewItemHandler(services.Items)
	itemGroup := apiGroup.Group("/items")
	{
		itemGroup.GET("", items.ListItems)
		itemGroup.POST("", items.CreateItem)
		itemGroup.GET("/low", items.GetLowStock)
		itemGroup.GET("/high", items.GetHighStock)
		itemGroup.GET("/:id", items.GetItem)
		itemGroup.PUT("/:id", items.UpdateItem)
		itemGroup.DELETE("/:id", items.DeleteItem)
	}

	orders := handlers.NewOrderHandler(services.Orders, services.Archive)
	orderGroup := apiGroup.Group("/orders")
	{
		orderGroup.POST("", middleware.RequireManager(), orders.GenerateOrder)
		orderGroup.GET("", orders.ListOrders)
		orderGroup.GET("/:id", orders.GetOrder)
		orderGroup.GET("/:id/text", orders.GetOrderText)
		orderGroup.GET("/:id/export", orders.ExportOrder)
		orderGroup.PUT("/:id/status", orders.UpdateStatus)
	}

	dashboard := handlers.NewDashboardHandler(services.Dashboard, services.Alerts, now)
	apiGroup.GET("/dashboard", dashboard.GetDashboard)
	apiGroup.POST("/alerts/scan", dashboard.ScanAlerts)
	apiGroup.GET("/alerts", dashboard.ListAlerts)

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			cfg.AllowOrigins = nil
			cfg.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			cfg.AllowOrigins = normalizedOrigins
		}
	}
	return cfg
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
