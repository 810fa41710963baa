package routes

import (
	"context"
	"time"

	"aanganwadi/internal/core/container"
	"aanganwadi/internal/middleware"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func RegisterProtectedRoutes(router *gin.Engine, container *container.Container, jwtSecret []byte, timeout time.Duration) {
	protectedRoutes := router.Group("/api")
	protectedRoutes.Use(security.JWTMiddleware(jwtSecret), middleware.TimeoutMiddleware(timeout))

	container.UserHandler.RegisterRoutes(protectedRoutes)
	container.InventoryHandler.RegisterRoutes(protectedRoutes)
	container.AppealHandler.RegisterRoutes(protectedRoutes)
	container.NotificationHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine, container *container.Container) {
	health := middleware.NewHealth(version)
	health.AddCheck("database", func(ctx context.Context) error {
		return container.Repository.DB.PingContext(ctx)
	})
	if container.Redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return container.Redis.Ping(ctx).Err()
		})
	}

	router.GET("/health", health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{})))
}
