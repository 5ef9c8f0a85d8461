package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	appsvc "portfolio-rag/internal/app"
	"portfolio-rag/internal/bootstrap"
	"portfolio-rag/internal/transport/http/handler"
	"portfolio-rag/internal/transport/http/middleware"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Chat      *handler.ChatHandler
	Documents *handler.DocumentHandler
	Health    *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	defaults := appsvc.DefaultChatOptions()
	defaults.MaxContextLength = app.Config.Chat.MaxContextLength
	temperature := app.Config.Chat.Temperature
	defaults.Temperature = &temperature
	defaults.RetrievalCount = app.Config.RAG.RetrievalCount

	return Routes(Handlers{
		Auth:      handler.NewAuthHandler(app.Auth),
		Chat:      handler.NewChatHandler(app.Chat, defaults),
		Documents: handler.NewDocumentHandler(app.Ingest),
		Health:    handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app)),
	}, app.Config.Auth.JWTSecret)
}

// Routes wires handlers onto a fresh engine.
func Routes(h Handlers, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = 16 << 20

	router.GET("/healthz", h.Health.Check)

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", h.Auth.Login)

	v1.POST("/chat", h.Chat.Chat)
	v1.POST("/chat/ask", h.Chat.Ask)
	v1.GET("/conversations/:id/messages", h.Chat.Messages)

	admin := v1.Group("")
	admin.Use(middleware.AuthJWT(jwtSecret), middleware.RequireRole(appsvc.RoleAdmin))
	admin.GET("/documents", h.Documents.List)
	admin.POST("/documents", h.Documents.Create)
	admin.POST("/documents/upload", h.Documents.Upload)
	admin.DELETE("/documents/:id", h.Documents.Delete)
	admin.POST("/cv", h.Documents.IngestCV)

	return router
}

func healthChecks(app *bootstrap.App) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if app.Config.Redis.Enabled {
		checks["redis"] = func(ctx context.Context) error {
			if app.Redis == nil {
				return errors.New("not connected")
			}
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.Config.RabbitMQ.Enabled {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn == nil || app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}
