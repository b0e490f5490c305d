package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cmejo/AI-Scholar-sub014/internal/middleware"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/response"
)

type RouterDeps struct {
	Auth           *AuthHandler
	Documents      *DocumentHandler
	Chunking       *ChunkingHandler
	TokenSecret    []byte
	AuthRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	api.POST("/auth/token", middleware.RateLimit(deps.AuthRateWindow), deps.Auth.Token)

	authGroup := api.Group("")
	authGroup.Use(middleware.TokenAuth(deps.TokenSecret))
	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.GET("/documents/:id/chunks", deps.Documents.Chunks)
	authGroup.GET("/documents/:id/runs", deps.Documents.Runs)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.POST("/chunk", deps.Chunking.Chunk)
	authGroup.GET("/hierarchy/statistics", deps.Chunking.HierarchyStatistics)
	authGroup.GET("/hierarchy/validate", deps.Chunking.ValidateHierarchy)
	authGroup.GET("/chunks/:id/context", deps.Chunking.Context)
	authGroup.GET("/chunks/:id/relationships", deps.Chunking.Relationships)
	authGroup.PUT("/config/overlap", deps.Chunking.UpdateOverlapConfig)
	authGroup.GET("/overlap/statistics", deps.Chunking.OverlapStatistics)
	authGroup.POST("/reset", deps.Chunking.Reset)
}
