package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/errcode"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/response"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
)

type ChunkingHandler struct {
	chunking *service.ChunkingService
}

func NewChunkingHandler(chunkingSvc *service.ChunkingService) *ChunkingHandler {
	return &ChunkingHandler{chunking: chunkingSvc}
}

type chunkRequest struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

func (h *ChunkingHandler) Chunk(c *gin.Context) {
	var req chunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	chunks, err := h.chunking.ChunkDocument(c.Request.Context(), req.Text, req.Strategy)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": chunks, "total_chunks": len(chunks)})
}

func (h *ChunkingHandler) HierarchyStatistics(c *gin.Context) {
	response.Success(c, h.chunking.HierarchyStatistics(c.Request.Context()))
}

func (h *ChunkingHandler) ValidateHierarchy(c *gin.Context) {
	response.Success(c, h.chunking.ValidateIntegrity(c.Request.Context()))
}

func (h *ChunkingHandler) Context(c *gin.Context) {
	window := 1
	if value := c.Query("window"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			response.Error(c, errcode.ErrInvalid, "invalid window")
			return
		}
		window = parsed
	}
	chunks, err := h.chunking.ContextualChunks(c.Request.Context(), c.Param("id"), window)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": chunks})
}

func (h *ChunkingHandler) Relationships(c *gin.Context) {
	response.Success(c, h.chunking.Relationships(c.Request.Context(), c.Param("id")))
}

func (h *ChunkingHandler) UpdateOverlapConfig(c *gin.Context) {
	var req chunking.OverlapUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	response.Success(c, h.chunking.UpdateOverlapConfiguration(c.Request.Context(), req))
}

func (h *ChunkingHandler) OverlapStatistics(c *gin.Context) {
	response.Success(c, h.chunking.OverlapStatistics(c.Request.Context()))
}

func (h *ChunkingHandler) Reset(c *gin.Context) {
	h.chunking.Reset(c.Request.Context())
	response.Success(c, gin.H{"ok": true})
}
